// Package token holds the credential pair issued by the backend and the
// expiry arithmetic the session core schedules against. Access tokens are
// treated as opaque bearer strings whose JWT payload is read without
// signature verification. Verifying signatures is the server's job; the
// client only needs the exp claim to plan its own renewal.
package token

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Credential is the access/refresh token pair. It is owned by the credential
// store: replaced atomically on every login and refresh, deleted on logout.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero reports whether no credential is present.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Expiry decodes the exp claim of a JWT access token. It is total: any
// malformed input (wrong segment count, invalid base64, missing or
// non-numeric exp) yields ok=false rather than an error, since corrupted
// storage and version skew make malformed tokens a reachable runtime state.
func Expiry(accessToken string) (time.Time, bool) {
	if strings.TrimSpace(accessToken) == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Remaining reports the token lifetime left at now. Expired and undecodable
// tokens report zero remaining and ok accordingly.
func Remaining(accessToken string, now time.Time) (time.Duration, bool) {
	expiry, ok := Expiry(accessToken)
	if !ok {
		return 0, false
	}
	left := expiry.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}
