package apperrors_test

import (
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/liimonx/ispadmin/apperrors"
)

func TestFromResponse_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperrors.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"token expired"}`, apperrors.KindAuth},
		{"forbidden", http.StatusForbidden, `{"detail":"no permission"}`, apperrors.KindAuth},
		{"rate limited", http.StatusTooManyRequests, `{"detail":"slow down"}`, apperrors.KindRateLimit},
		{"validation", http.StatusBadRequest, `{"email":["enter a valid address"]}`, apperrors.KindValidation},
		{"unprocessable", 422, `{"name":["required"]}`, apperrors.KindValidation},
		{"server error", http.StatusInternalServerError, ``, apperrors.KindServer},
		{"bad gateway", http.StatusBadGateway, `<html>nginx</html>`, apperrors.KindServer},
		{"plain 404", http.StatusNotFound, `{"detail":"not found"}`, apperrors.KindUnknown},
		{"detail-only 400", http.StatusBadRequest, `{"detail":"malformed request"}`, apperrors.KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := apperrors.FromResponse(tc.status, http.Header{}, []byte(tc.body))
			require.Equal(t, tc.wantKind, err.Kind)
			require.Equal(t, tc.status, err.StatusCode)
			require.NotEmpty(t, err.Message)
		})
	}
}

func TestFromResponse_DetailMessage(t *testing.T) {
	err := apperrors.FromResponse(http.StatusUnauthorized, http.Header{}, []byte(`{"detail":"token expired"}`))
	require.Equal(t, "token expired", err.Message)
	require.EqualError(t, err, "auth: token expired")
}

func TestFromResponse_FieldErrors(t *testing.T) {
	body := `{"email":["enter a valid address","already taken"],"name":"required"}`
	err := apperrors.FromResponse(http.StatusBadRequest, http.Header{}, []byte(body))

	require.Equal(t, apperrors.KindValidation, err.Kind)
	require.Equal(t, []string{"enter a valid address", "already taken"}, err.Fields["email"])
	require.Equal(t, []string{"required"}, err.Fields["name"])
	require.Equal(t, []string{
		"email: enter a valid address",
		"email: already taken",
		"name: required",
	}, err.FieldMessages())
}

func TestFromResponse_NonFieldErrors(t *testing.T) {
	body := `{"non_field_errors":["start date must precede end date"]}`
	err := apperrors.FromResponse(http.StatusBadRequest, http.Header{}, []byte(body))

	require.Equal(t, apperrors.KindValidation, err.Kind)
	require.Equal(t, "start date must precede end date", err.Message)
}

func TestFromResponse_RetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")
	err := apperrors.FromResponse(http.StatusTooManyRequests, header, nil)

	require.Equal(t, apperrors.KindRateLimit, err.Kind)
	require.Equal(t, 30*time.Second, err.RetryAfter)
}

func TestFromResponse_RetryAfterUnparseable(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	err := apperrors.FromResponse(http.StatusTooManyRequests, header, nil)

	require.Equal(t, apperrors.KindRateLimit, err.Kind)
	require.Zero(t, err.RetryAfter)
}

func TestFromResponse_GarbageBody(t *testing.T) {
	err := apperrors.FromResponse(http.StatusInternalServerError, http.Header{}, []byte("{{{not json"))
	require.Equal(t, apperrors.KindServer, err.Kind)
	require.Equal(t, "{{{not json", err.Message)
}

func TestFromResponse_TruncatedDetailKeepsRunesWhole(t *testing.T) {
	// 240 bytes of three-byte runes puts the 200-byte cut mid-rune; the
	// truncation must back off to the previous boundary, never emit an
	// invalid tail.
	body := []byte(strings.Repeat("障", 80))
	err := apperrors.FromResponse(http.StatusBadGateway, http.Header{}, body)

	require.Equal(t, apperrors.KindServer, err.Kind)
	require.True(t, utf8.ValidString(err.Message))
	require.Len(t, err.Message, 198)
}

func TestKindOf_WrappedChain(t *testing.T) {
	classified := apperrors.New(apperrors.KindAuth, "refresh token rejected")
	wrapped := errors.Wrap(classified, "[Refresh] m.gateway.Refresh")

	require.Equal(t, apperrors.KindAuth, apperrors.KindOf(wrapped))
	require.True(t, apperrors.IsKind(wrapped, apperrors.KindAuth))
	require.False(t, apperrors.IsKind(wrapped, apperrors.KindNetwork))
}

func TestKindOf_Unclassified(t *testing.T) {
	require.Equal(t, apperrors.KindUnknown, apperrors.KindOf(errors.New("plain")))
	require.Equal(t, apperrors.KindUnknown, apperrors.KindOf(nil))
}

func TestNetwork_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := apperrors.Network(cause)

	require.Equal(t, apperrors.KindNetwork, err.Kind)
	require.True(t, apperrors.Is(err, cause))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := apperrors.Wrap(cause, apperrors.KindServer, "malformed response body")

	require.Equal(t, apperrors.KindServer, apperrors.KindOf(err))
	require.True(t, apperrors.Is(err, cause))
	require.EqualError(t, err, "server: malformed response body")
}
