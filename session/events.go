package session

import (
	"time"

	"github.com/liimonx/ispadmin/users"
)

// State is the lifecycle position of the session. Transitions are
// unauthenticated → authenticating → authenticated ⇄ refreshing, with any
// state able to drop back to unauthenticated on logout or fatal refresh.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// Snapshot is a point-in-time copy of the session handed to observers. Err
// is orthogonal to State: a snapshot can be unauthenticated and still carry
// the failure that ended the previous session.
type Snapshot struct {
	State       State
	User        *users.User
	TokenExpiry time.Time
	Refreshing  bool // a refresh call is in flight
	Err         error
}

// Authenticated reports whether the session currently holds a usable token.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated || s.State == StateRefreshing
}

// ChangeListener receives a snapshot after every state transition. Listeners
// run outside the manager lock and may call back into the manager.
type ChangeListener func(Snapshot)

// WarningListener receives the time remaining until token expiry when the
// warning point is crossed.
type WarningListener func(remaining time.Duration)
