// Package session owns the authenticated session of the console: the state
// machine, the credential in memory, the refresh and warning timers, and the
// single coordination point for token refresh.
//
// There is exactly one Manager per process, created and wired explicitly in
// main. All mutation funnels through its mutex; concurrent Refresh calls
// coalesce onto one in-flight network call, and a generation counter makes
// sure a refresh finishing after logout cannot resurrect the session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/liimonx/ispadmin/apperrors"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

// ErrNotAuthenticated is returned by operations that need a live session
// when there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

type Manager struct {
	gateway Gateway
	store   Store
	logger  zerolog.Logger
	nowTime func() time.Time

	mu         sync.Mutex
	state      State
	credential token.Credential
	user       *users.User
	expiry     time.Time
	err        error

	// generation increments whenever the session identity changes (login,
	// logout, fatal refresh). In-flight calls capture it at start and
	// discard their result on mismatch.
	generation uint64

	inflight     *refreshCall
	initInflight *initCall

	sched *scheduler

	changeListeners  []ChangeListener
	warningListeners []WarningListener
}

// refreshCall is the shared record of one in-flight refresh. Joiners wait on
// done and read err afterwards.
type refreshCall struct {
	done chan struct{}
	err  error
}

type initCall struct {
	done chan struct{}
	err  error
}

type ManagerOptions func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOptions {
	return func(m *Manager) { m.logger = logger }
}

func WithNowTime(nowTime func() time.Time) ManagerOptions {
	return func(m *Manager) { m.nowTime = nowTime }
}

// NewManager wires the session core to its gateway and store. Timers stay
// idle until a login or initialize succeeds.
func NewManager(gw Gateway, store Store, options ...ManagerOptions) *Manager {
	m := &Manager{
		gateway: gw,
		store:   store,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
		state:   StateUnauthenticated,
	}
	for _, opt := range options {
		opt(m)
	}
	m.sched = newScheduler(m.nowTime, m.scheduledRefresh, m.emitWarning)
	return m
}

// OnChange registers fn for every state transition. Callbacks run outside
// the manager lock; snapshots are copies and safe to retain.
func (m *Manager) OnChange(fn ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeListeners = append(m.changeListeners, fn)
}

// OnExpiryWarning registers fn for the approaching-expiry warning.
func (m *Manager) OnExpiryWarning(fn WarningListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warningListeners = append(m.warningListeners, fn)
}

// Initialize restores the session from the credential store. Concurrent
// calls coalesce into a single run. No stored credential leaves the session
// unauthenticated; a live one is adopted and the profile cache refreshed
// best-effort; an expired or undecodable one gets a single refresh attempt
// that decides the session's fate.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if call := m.initInflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "[Initialize] canceled while waiting")
		}
	}
	call := &initCall{done: make(chan struct{})}
	m.initInflight = call
	m.state = StateAuthenticating
	m.err = nil
	emit := m.changeEventLocked()
	m.mu.Unlock()
	emit()

	call.err = m.initialize(ctx)

	m.mu.Lock()
	m.initInflight = nil
	m.mu.Unlock()
	close(call.done)
	return call.err
}

func (m *Manager) initialize(ctx context.Context) error {
	credential := m.store.Load()
	if credential == nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		emit := m.changeEventLocked()
		m.mu.Unlock()
		emit()
		return nil
	}

	cachedUser := m.store.LoadCachedUser()

	expiry, ok := token.Expiry(credential.AccessToken)
	if !ok || !m.nowTime().Before(expiry) {
		// Expired token, or one whose expiry cannot be read. Adopt the
		// refresh token and let a single refresh decide; failure clears
		// the store and leaves the session unauthenticated.
		m.mu.Lock()
		m.credential = *credential
		m.user = cachedUser
		m.mu.Unlock()

		if err := m.Refresh(ctx); err != nil {
			m.logger.Info().Err(err).Msg("stored session could not be renewed, login required")
			return nil
		}

		m.mu.Lock()
		generation := m.generation
		m.mu.Unlock()
		m.refreshUserCache(ctx, generation)
		return nil
	}

	m.mu.Lock()
	m.credential = *credential
	m.user = cachedUser
	m.expiry = expiry
	m.state = StateAuthenticated
	m.err = nil
	m.generation++
	generation := m.generation
	armed := m.sched.armForExpiry(expiry)
	emit := m.changeEventLocked()
	m.mu.Unlock()
	emit()

	if !armed {
		// Live token already inside the refresh window: renew immediately
		// instead of waiting for a timer that would never be armed.
		if err := m.Refresh(ctx); err != nil {
			m.logger.Info().Err(err).Msg("stored session could not be renewed, login required")
			return nil
		}
	}

	m.refreshUserCache(ctx, generation)
	return nil
}

// Login authenticates with the backend and starts the refresh cycle. On
// failure the session stays unauthenticated and the classified error is both
// recorded in the snapshot and returned.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.mu.Lock()
	m.state = StateAuthenticating
	m.err = nil
	emit := m.changeEventLocked()
	m.mu.Unlock()
	emit()

	result, err := m.gateway.Login(ctx, username, password)
	if err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.err = err
		emit = m.changeEventLocked()
		m.mu.Unlock()
		emit()
		return errors.Wrap(err, "[Login] m.gateway.Login")
	}

	if err := m.store.Save(result.Credential, result.User); err != nil {
		m.logger.Warn().Err(err).Msg("credential save failed")
	}

	expiry, _ := token.Expiry(result.Credential.AccessToken)

	m.mu.Lock()
	m.credential = result.Credential
	user := result.User
	m.user = &user
	m.expiry = expiry
	m.state = StateAuthenticated
	m.err = nil
	m.generation++
	armed := m.sched.armForExpiry(expiry)
	emit = m.changeEventLocked()
	m.mu.Unlock()

	m.logger.Info().Str("username", user.Username).Msg("logged in")
	emit()

	if !armed {
		// The backend handed out a token already inside the refresh window.
		// Accept the login and renew right away.
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("post-login refresh failed")
		}
	}
	return nil
}

// Logout ends the session locally no matter what the backend says: timers
// are cancelled synchronously, the store is cleared and the state drops to
// unauthenticated before the revocation call's outcome is known. The server
// call is best effort and its result is discarded.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	credential := m.credential
	m.credential = token.Credential{}
	m.user = nil
	m.expiry = time.Time{}
	m.state = StateUnauthenticated
	m.err = nil
	m.generation++
	m.inflight = nil
	m.sched.cancel()
	emit := m.changeEventLocked()
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("credential clear failed")
	}
	m.logger.Info().Msg("logged out")
	emit()

	if credential.RefreshToken != "" {
		if err := m.gateway.Logout(ctx, credential.AccessToken, credential.RefreshToken); err != nil {
			m.logger.Debug().Err(err).Msg("server-side logout failed")
		}
	}
	return nil
}

// Refresh renews the access token. Concurrent callers coalesce onto one
// in-flight network call and all observe the same outcome. An auth failure
// is fatal immediately; network and server failures get one internal retry
// and are fatal after the second miss. A fatal refresh clears the store,
// cancels the timers and drops the session to unauthenticated.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "[Refresh] canceled while waiting")
		}
	}
	if m.credential.RefreshToken == "" {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	generation := m.generation
	refreshToken := m.credential.RefreshToken
	if m.state == StateAuthenticated {
		m.state = StateRefreshing
	}
	emit := m.changeEventLocked()
	m.mu.Unlock()
	emit()

	credential, err := m.gateway.Refresh(ctx, refreshToken)
	if err != nil && retryableRefresh(err) {
		m.logger.Debug().Err(err).Msg("refresh failed, retrying once")
		credential, err = m.gateway.Refresh(ctx, refreshToken)
	}

	call.err = m.completeRefresh(call, generation, credential, err)
	close(call.done)
	return call.err
}

// retryableRefresh reports whether a failed refresh gets its one internal
// retry. Only transport and 5xx failures do; an auth rejection is final.
func retryableRefresh(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindNetwork, apperrors.KindServer:
		return true
	}
	return false
}

// completeRefresh applies the outcome of the in-flight refresh. Results that
// arrive after a logout or relogin (generation mismatch) are discarded.
func (m *Manager) completeRefresh(call *refreshCall, generation uint64, credential token.Credential, refreshErr error) error {
	m.mu.Lock()
	if m.inflight == call {
		m.inflight = nil
	}

	if m.generation != generation {
		m.mu.Unlock()
		m.logger.Debug().Msg("stale refresh result discarded")
		return ErrNotAuthenticated
	}

	if refreshErr != nil {
		m.credential = token.Credential{}
		m.user = nil
		m.expiry = time.Time{}
		m.state = StateUnauthenticated
		m.err = refreshErr
		m.generation++
		m.sched.cancel()
		emit := m.changeEventLocked()
		m.mu.Unlock()

		if err := m.store.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("credential clear failed")
		}
		m.logger.Info().Err(refreshErr).Msg("session ended, refresh failed")
		emit()
		return errors.Wrap(refreshErr, "[Refresh] m.gateway.Refresh")
	}

	m.credential = credential
	expiry, ok := token.Expiry(credential.AccessToken)
	m.expiry = expiry
	m.state = StateAuthenticated
	m.err = nil
	armed := false
	if ok {
		armed = m.sched.armForExpiry(expiry)
		if !armed {
			m.sched.armRefreshRetry()
		}
	} else {
		m.sched.cancel()
	}
	user := users.User{}
	if m.user != nil {
		user = *m.user
	}
	emit := m.changeEventLocked()
	m.mu.Unlock()

	if err := m.store.Save(credential, user); err != nil {
		m.logger.Warn().Err(err).Msg("credential save failed")
	}
	if !ok {
		m.logger.Warn().Msg("new access token has unreadable expiry, timers not armed")
	} else if !armed {
		m.logger.Warn().Msg("new access token already inside refresh window, renewal on retry floor")
	}
	emit()
	return nil
}

// UpdateProfile applies a partial profile update. On success the cached user
// is replaced in memory and on disk; token state is untouched.
func (m *Manager) UpdateProfile(ctx context.Context, patch users.ProfilePatch) (users.User, error) {
	m.mu.Lock()
	accessToken := m.credential.AccessToken
	generation := m.generation
	m.mu.Unlock()
	if accessToken == "" {
		return users.User{}, ErrNotAuthenticated
	}

	user, err := m.gateway.UpdateMe(ctx, accessToken, patch)
	if err != nil {
		return users.User{}, errors.Wrap(err, "[UpdateProfile] m.gateway.UpdateMe")
	}

	m.mu.Lock()
	if m.generation != generation || m.state == StateUnauthenticated {
		m.mu.Unlock()
		return user, nil
	}
	m.user = &user
	credential := m.credential
	emit := m.changeEventLocked()
	m.mu.Unlock()

	if err := m.store.Save(credential, user); err != nil {
		m.logger.Warn().Err(err).Msg("credential save failed")
	}
	emit()
	return user, nil
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentAccessToken returns the access token for outgoing requests, or the
// empty string when the session holds none.
func (m *Manager) CurrentAccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential.AccessToken
}

// scheduledRefresh is the refresh timer callback.
func (m *Manager) scheduledRefresh() {
	if err := m.Refresh(context.Background()); err != nil {
		m.logger.Debug().Err(err).Msg("scheduled refresh failed")
	}
}

// emitWarning is the warning timer callback. A warning racing a logout is
// dropped here rather than shown for a session that no longer exists.
func (m *Manager) emitWarning(remaining time.Duration) {
	m.mu.Lock()
	if m.state != StateAuthenticated && m.state != StateRefreshing {
		m.mu.Unlock()
		return
	}
	listeners := append([]WarningListener(nil), m.warningListeners...)
	m.mu.Unlock()

	m.logger.Info().Dur("remaining", remaining).Msg("session expiry warning")
	for _, fn := range listeners {
		fn(remaining)
	}
}

// refreshUserCache fetches the profile best-effort and re-persists the
// document. Failures are logged and tolerated; the cached profile stays.
func (m *Manager) refreshUserCache(ctx context.Context, generation uint64) {
	m.mu.Lock()
	accessToken := m.credential.AccessToken
	m.mu.Unlock()
	if accessToken == "" {
		return
	}

	user, err := m.gateway.Me(ctx, accessToken)
	if err != nil {
		m.logger.Debug().Err(err).Msg("profile fetch failed, keeping cached user")
		return
	}

	m.mu.Lock()
	if m.generation != generation || m.state == StateUnauthenticated {
		m.mu.Unlock()
		return
	}
	m.user = &user
	credential := m.credential
	emit := m.changeEventLocked()
	m.mu.Unlock()

	if err := m.store.Save(credential, user); err != nil {
		m.logger.Warn().Err(err).Msg("credential save failed")
	}
	emit()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       m.state,
		TokenExpiry: m.expiry,
		Refreshing:  m.inflight != nil,
		Err:         m.err,
	}
	if m.user != nil {
		user := *m.user
		snap.User = &user
	}
	return snap
}

// changeEventLocked captures the snapshot and listener set under the lock
// and returns the emit step to run after unlocking.
func (m *Manager) changeEventLocked() func() {
	snap := m.snapshotLocked()
	listeners := append([]ChangeListener(nil), m.changeListeners...)
	return func() {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}
