// Package storefakes provides an in-memory session.Store for tests.
package storefakes

import (
	"sync"

	"github.com/liimonx/ispadmin/session"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

// FakeStore keeps the document in memory. SaveErr and ClearErr, when set,
// are returned by the corresponding method without touching the document.
type FakeStore struct {
	mu         sync.Mutex
	credential *token.Credential
	user       *users.User

	SaveErr  error
	ClearErr error

	saveCalls  int
	clearCalls int
}

var _ session.Store = (*FakeStore)(nil)

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// Seed places a document in the store without counting as a Save.
func (f *FakeStore) Seed(credential token.Credential, user users.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = &credential
	f.user = &user
}

func (f *FakeStore) Save(credential token.Credential, user users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.credential = &credential
	f.user = &user
	return nil
}

func (f *FakeStore) Load() *token.Credential {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credential == nil || f.credential.IsZero() {
		return nil
	}
	credential := *f.credential
	return &credential
}

func (f *FakeStore) LoadCachedUser() *users.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil || f.user.ID == 0 {
		return nil
	}
	user := *f.user
	return &user
}

func (f *FakeStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.credential = nil
	f.user = nil
	return nil
}

func (f *FakeStore) SaveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

func (f *FakeStore) ClearCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}
