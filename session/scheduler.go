package session

import "time"

const (
	// RefreshLead is how long before access-token expiry a silent refresh
	// runs.
	RefreshLead = 5 * time.Minute

	// WarnLead is how long before access-token expiry the warning fires.
	WarnLead = 10 * time.Minute

	// refreshRetryFloor spaces renewal attempts for tokens issued already
	// inside the refresh window, where rearming from expiry would fire at
	// once and refreshing again immediately would loop against a server
	// that only hands out short-lived tokens.
	refreshRetryFloor = 30 * time.Second
)

// refreshDelay returns the time until the refresh point (expiry minus
// RefreshLead). ok=false means the point has already passed and a refresh
// should run immediately instead of being scheduled.
func refreshDelay(expiry, now time.Time) (delay time.Duration, ok bool) {
	delay = expiry.Add(-RefreshLead).Sub(now)
	if delay <= 0 {
		return 0, false
	}
	return delay, true
}

// warnDelay returns the time until the warning point (expiry minus WarnLead).
// ok=false means the point has already passed; the warning is then skipped
// entirely, never emitted retroactively.
func warnDelay(expiry, now time.Time) (delay time.Duration, ok bool) {
	delay = expiry.Add(-WarnLead).Sub(now)
	if delay <= 0 {
		return 0, false
	}
	return delay, true
}

// scheduler owns the two lifecycle timers. It is driven by the manager and
// holds no session state of its own.
type scheduler struct {
	refreshTimer *CancelableTimer
	warnTimer    *CancelableTimer
	nowTime      func() time.Time
	retryFloor   time.Duration

	onRefresh func()
	onWarn    func(remaining time.Duration)
}

func newScheduler(nowTime func() time.Time, onRefresh func(), onWarn func(time.Duration)) *scheduler {
	return &scheduler{
		refreshTimer: NewCancelableTimer(),
		warnTimer:    NewCancelableTimer(),
		nowTime:      nowTime,
		retryFloor:   refreshRetryFloor,
		onRefresh:    onRefresh,
		onWarn:       onWarn,
	}
}

// armForExpiry rearms both timers for the given expiry. It returns false
// when the refresh point has already passed; nothing is armed then and the
// caller must refresh immediately.
func (s *scheduler) armForExpiry(expiry time.Time) bool {
	now := s.nowTime()

	if delay, ok := warnDelay(expiry, now); ok {
		s.warnTimer.Arm(delay, func() {
			remaining := expiry.Sub(s.nowTime())
			if remaining > 0 {
				s.onWarn(remaining)
			}
		})
	} else {
		s.warnTimer.Cancel()
	}

	delay, ok := refreshDelay(expiry, now)
	if !ok {
		s.refreshTimer.Cancel()
		return false
	}
	s.refreshTimer.Arm(delay, s.onRefresh)
	return true
}

// armRefreshRetry arms the refresh timer on the fixed retry floor instead of
// a point derived from expiry. The caller uses it after a refresh whose new
// token is already inside the refresh window, so renewal keeps running
// without tight-looping.
func (s *scheduler) armRefreshRetry() {
	s.refreshTimer.Arm(s.retryFloor, s.onRefresh)
}

func (s *scheduler) cancel() {
	s.refreshTimer.Cancel()
	s.warnTimer.Cancel()
}
