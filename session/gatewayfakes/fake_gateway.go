// Package gatewayfakes provides a programmable in-memory session.Gateway
// for tests.
package gatewayfakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/liimonx/ispadmin/gateway"
	"github.com/liimonx/ispadmin/session"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

// FakeGateway answers each call through its corresponding Fn field and
// counts invocations. Unset Fn fields fail the call.
type FakeGateway struct {
	mu sync.Mutex

	LoginFn    func(username, password string) (gateway.LoginResult, error)
	RefreshFn  func(refreshToken string) (token.Credential, error)
	LogoutFn   func(accessToken, refreshToken string) error
	MeFn       func(accessToken string) (users.User, error)
	UpdateMeFn func(accessToken string, patch users.ProfilePatch) (users.User, error)

	loginCalls    int
	refreshCalls  int
	logoutCalls   int
	meCalls       int
	updateMeCalls int
}

var _ session.Gateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (f *FakeGateway) Login(_ context.Context, username, password string) (gateway.LoginResult, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.LoginFn
	f.mu.Unlock()
	if fn == nil {
		return gateway.LoginResult{}, errors.New("gatewayfakes: LoginFn not set")
	}
	return fn(username, password)
}

func (f *FakeGateway) Refresh(_ context.Context, refreshToken string) (token.Credential, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.RefreshFn
	f.mu.Unlock()
	if fn == nil {
		return token.Credential{}, errors.New("gatewayfakes: RefreshFn not set")
	}
	return fn(refreshToken)
}

func (f *FakeGateway) Logout(_ context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	f.logoutCalls++
	fn := f.LogoutFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(accessToken, refreshToken)
}

func (f *FakeGateway) Me(_ context.Context, accessToken string) (users.User, error) {
	f.mu.Lock()
	f.meCalls++
	fn := f.MeFn
	f.mu.Unlock()
	if fn == nil {
		return users.User{}, errors.New("gatewayfakes: MeFn not set")
	}
	return fn(accessToken)
}

func (f *FakeGateway) UpdateMe(_ context.Context, accessToken string, patch users.ProfilePatch) (users.User, error) {
	f.mu.Lock()
	f.updateMeCalls++
	fn := f.UpdateMeFn
	f.mu.Unlock()
	if fn == nil {
		return users.User{}, errors.New("gatewayfakes: UpdateMeFn not set")
	}
	return fn(accessToken, patch)
}

func (f *FakeGateway) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

func (f *FakeGateway) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *FakeGateway) LogoutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

func (f *FakeGateway) MeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

func (f *FakeGateway) UpdateMeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateMeCalls
}
