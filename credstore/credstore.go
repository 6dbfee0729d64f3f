// Package credstore persists the credential pair and cached operator profile
// between console runs. Both are sealed into a single document with secretbox
// under a machine-local key kept in a sibling file, and every write is an
// atomic temp-file rename with 0600 permissions.
//
// Reads never return errors: a missing, truncated or tampered file reads as
// a cache miss, the console falls back to interactive login, and the next
// Save overwrites whatever was on disk.
package credstore

import (
	"crypto/rand"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	keySize   = 32
	nonceSize = 24
)

// Document is the unit of persistence. Credential and profile are sealed
// together, never as separate files.
type Document struct {
	Credential token.Credential `json:"credential"`
	User       users.User       `json:"user"`
	SavedAt    time.Time        `json:"saved_at"`
}

type Store struct {
	path    string
	keyPath string
	nowTime func() time.Time
}

type StoreOptions func(*Store)

// WithKeyPath overrides the default "<path>.key" location of the sealing key.
func WithKeyPath(path string) StoreOptions {
	return func(s *Store) { s.keyPath = path }
}

func WithNowTime(nowTime func() time.Time) StoreOptions {
	return func(s *Store) { s.nowTime = nowTime }
}

// New returns a store that seals its document at path.
func New(path string, options ...StoreOptions) *Store {
	s := &Store{
		path:    path,
		keyPath: path + ".key",
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Save seals credential and profile into a single document and atomically
// replaces the previous one. The sealing key is created on first use.
func (s *Store) Save(credential token.Credential, user users.User) error {
	doc := Document{Credential: credential, User: user, SavedAt: s.nowTime().UTC()}

	plaintext, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[Save] json.Marshal")
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return errors.Wrap(err, "[Save] s.loadOrCreateKey")
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return errors.Wrap(err, "[Save] rand.Read")
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, key)

	if err := writeFileAtomic(s.path, sealed); err != nil {
		return errors.Wrap(err, "[Save] writeFileAtomic")
	}
	return nil
}

// Load returns the stored credential, or nil on any miss: no file, unreadable
// key, failed seal check or malformed document.
func (s *Store) Load() *token.Credential {
	doc, ok := s.readDocument()
	if !ok || doc.Credential.IsZero() {
		return nil
	}
	credential := doc.Credential
	return &credential
}

// LoadCachedUser returns the profile cached by the last Save, or nil. The
// cache lets the console greet the operator before any network call.
func (s *Store) LoadCachedUser() *users.User {
	doc, ok := s.readDocument()
	if !ok || doc.User.ID == 0 {
		return nil
	}
	user := doc.User
	return &user
}

// Clear removes the sealed document. The key file stays so a later Save
// reuses it. Clearing an already empty store is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "[Clear] os.Remove")
	}
	return nil
}

func (s *Store) readDocument() (Document, bool) {
	key, err := s.readKey()
	if err != nil {
		return Document{}, false
	}

	sealed, err := os.ReadFile(s.path)
	if err != nil || len(sealed) <= nonceSize {
		return Document{}, false
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return Document{}, false
	}

	var doc Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return Document{}, false
	}
	return doc, true
}

func (s *Store) loadOrCreateKey() (*[keySize]byte, error) {
	if key, err := s.readKey(); err == nil {
		return key, nil
	}

	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, errors.Wrap(err, "rand.Read")
	}
	if err := writeFileAtomic(s.keyPath, key[:]); err != nil {
		return nil, errors.Wrap(err, "writeFileAtomic")
	}
	return &key, nil
}

func (s *Store) readKey() (*[keySize]byte, error) {
	raw, err := os.ReadFile(s.keyPath)
	if err != nil {
		return nil, err
	}
	if len(raw) != keySize {
		return nil, errors.Errorf("key file %s: expected %d bytes, got %d", s.keyPath, keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "os.CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return errors.Wrap(err, "tmp.Chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "tmp.Write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "tmp.Close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "os.Rename")
	}
	return nil
}
