package credstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liimonx/ispadmin/credstore"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

var (
	testCredential = token.Credential{AccessToken: "access-1", RefreshToken: "refresh-1"}
	testUser       = users.User{ID: 7, Username: "admin", Email: "admin@example.com", Role: users.RoleAdmin}
)

func setupStore(t *testing.T) (*credstore.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.sealed")
	return credstore.New(path), path
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))

	credential := store.Load()
	require.NotNil(t, credential)
	require.Equal(t, testCredential, *credential)

	user := store.LoadCachedUser()
	require.NotNil(t, user)
	require.Equal(t, testUser, *user)
}

func TestLoad_NoFile(t *testing.T) {
	store, _ := setupStore(t)

	require.Nil(t, store.Load())
	require.Nil(t, store.LoadCachedUser())
}

func TestSave_Overwrites(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))

	second := token.Credential{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, store.Save(second, testUser))

	credential := store.Load()
	require.NotNil(t, credential)
	require.Equal(t, second, *credential)
}

func TestClear_RemovesDocument(t *testing.T) {
	store, path := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))
	require.NoError(t, store.Clear())

	require.Nil(t, store.Load())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestClear_Idempotent(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestLoad_TamperedFile(t *testing.T) {
	store, path := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.Nil(t, store.Load())
	require.Nil(t, store.LoadCachedUser())
}

func TestLoad_MissingKeyFile(t *testing.T) {
	store, path := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))
	require.NoError(t, os.Remove(path+".key"))

	require.Nil(t, store.Load())
}

func TestSave_FilePermissions(t *testing.T) {
	store, path := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))

	for _, name := range []string{path, path + ".key"} {
		info, err := os.Stat(name)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}
}

func TestLoadCachedUser_ZeroUser(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Save(testCredential, users.User{}))

	require.NotNil(t, store.Load())
	require.Nil(t, store.LoadCachedUser())
}

func TestSave_ReusesKey(t *testing.T) {
	store, path := setupStore(t)

	require.NoError(t, store.Save(testCredential, testUser))
	firstKey, err := os.ReadFile(path + ".key")
	require.NoError(t, err)

	require.NoError(t, store.Save(testCredential, testUser))
	secondKey, err := os.ReadFile(path + ".key")
	require.NoError(t, err)

	require.Equal(t, firstKey, secondKey)
}
