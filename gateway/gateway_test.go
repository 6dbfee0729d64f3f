package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liimonx/ispadmin/apperrors"
	"github.com/liimonx/ispadmin/gateway"
	"github.com/liimonx/ispadmin/internal/utils"
	"github.com/liimonx/ispadmin/users"
)

func setupGateway(t *testing.T, handler http.HandlerFunc) *gateway.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return gateway.New(server.URL)
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestLogin_Success(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body := decodeBody(t, r)
		require.Equal(t, "admin", body["username"])
		require.Equal(t, "hunter2", body["password"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access":"acc-token","refresh":"ref-token","user":{"id":7,"username":"admin","role":"admin"}}`)
	})

	result, err := client.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "acc-token", result.Credential.AccessToken)
	require.Equal(t, "ref-token", result.Credential.RefreshToken)
	require.Equal(t, int64(7), result.User.ID)
	require.Equal(t, users.RoleAdmin, result.User.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"no active account found with the given credentials"}`)
	})

	_, err := client.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindAuth))

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Equal(t, "no active account found with the given credentials", appErr.Message)
}

func TestLogin_RateLimited(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Login(context.Background(), "admin", "hunter2")
	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Equal(t, apperrors.KindRateLimit, appErr.Kind)
	require.Equal(t, 45*time.Second, appErr.RetryAfter)
}

func TestLogin_MissingTokens(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user":{"id":1}}`)
	})

	_, err := client.Login(context.Background(), "admin", "hunter2")
	require.True(t, apperrors.IsKind(err, apperrors.KindServer))
}

func TestRefresh_RotatesToken(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/token/refresh", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "old-refresh", body["refresh"])

		fmt.Fprint(w, `{"access":"new-access","refresh":"new-refresh"}`)
	})

	credential, err := client.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-access", credential.AccessToken)
	require.Equal(t, "new-refresh", credential.RefreshToken)
}

func TestRefresh_KeepsTokenWithoutRotation(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access":"new-access"}`)
	})

	credential, err := client.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-access", credential.AccessToken)
	require.Equal(t, "old-refresh", credential.RefreshToken)
}

func TestRefresh_MissingAccessToken(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := client.Refresh(context.Background(), "old-refresh")
	require.True(t, apperrors.IsKind(err, apperrors.KindServer))
}

func TestRefresh_RejectedToken(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"token is blacklisted"}`)
	})

	_, err := client.Refresh(context.Background(), "revoked")
	require.True(t, apperrors.IsKind(err, apperrors.KindAuth))
}

func TestMe_SendsBearer(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/auth/me", r.URL.Path)
		require.Equal(t, "Bearer acc-token", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{"id":7,"username":"admin","email":"admin@example.com"}`)
	})

	user, err := client.Me(context.Background(), "acc-token")
	require.NoError(t, err)
	require.Equal(t, "admin", user.Username)
}

func TestUpdateMe_SendsOnlySetFields(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]any{"first_name": "Nina"}, body)

		fmt.Fprint(w, `{"id":7,"username":"admin","first_name":"Nina"}`)
	})

	user, err := client.UpdateMe(context.Background(), "acc-token", users.ProfilePatch{
		FirstName: utils.Ptr("Nina"),
	})
	require.NoError(t, err)
	require.Equal(t, "Nina", user.FirstName)
}

func TestUpdateMe_ValidationError(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"email":["enter a valid email address"]}`)
	})

	_, err := client.UpdateMe(context.Background(), "acc-token", users.ProfilePatch{
		Email: utils.Ptr("nope"),
	})

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Equal(t, apperrors.KindValidation, appErr.Kind)
	require.Equal(t, []string{"enter a valid email address"}, appErr.Fields["email"])
}

func TestLogout_SendsRefreshToken(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody = decodeBody(t, r)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Logout(context.Background(), "acc-token", "ref-token"))
	require.Equal(t, "/auth/logout", gotPath)
	require.Equal(t, "Bearer acc-token", gotAuth)
	require.Equal(t, "ref-token", gotBody["refresh"])
}

func TestGateway_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := gateway.New(server.URL)

	_, err := client.Me(context.Background(), "acc-token")
	require.True(t, apperrors.IsKind(err, apperrors.KindNetwork))
}

func TestGateway_MalformedSuccessBody(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": forty-two}`)
	})

	_, err := client.Me(context.Background(), "acc-token")
	require.True(t, apperrors.IsKind(err, apperrors.KindServer))
}

func TestGateway_ServerErrorBody(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"detail":"maintenance window"}`)
	})

	_, err := client.Me(context.Background(), "acc-token")
	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Equal(t, apperrors.KindServer, appErr.Kind)
	require.Equal(t, "maintenance window", appErr.Message)
	require.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
}
