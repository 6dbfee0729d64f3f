package session

import (
	"context"

	"github.com/liimonx/ispadmin/gateway"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

// Gateway is the slice of the auth backend the manager depends on.
// Implemented by gateway.Client, faked in gatewayfakes for tests.
type Gateway interface {
	Login(ctx context.Context, username, password string) (gateway.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (token.Credential, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Me(ctx context.Context, accessToken string) (users.User, error)
	UpdateMe(ctx context.Context, accessToken string, patch users.ProfilePatch) (users.User, error)
}

// Store persists the credential pair and cached profile between runs.
// Implemented by credstore.Store. Loads report misses as nils, never errors.
type Store interface {
	Save(credential token.Credential, user users.User) error
	Load() *token.Credential
	LoadCachedUser() *users.User
	Clear() error
}
