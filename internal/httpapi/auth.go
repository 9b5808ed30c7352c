package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

type authError struct {
	status  int
	code    string
	message string
}

func (e *authError) Error() string {
	return e.message
}

// authorizeBearer checks the Authorization header against the configured
// token. An empty configured token disables authentication. Tokens are
// hashed before comparison so the compare is constant time regardless of
// length.
func authorizeBearer(authHeader, token string) *authError {
	if token == "" {
		return nil
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return &authError{
			status:  401,
			code:    "unauthorized",
			message: "missing or invalid bearer token",
		}
	}
	presented := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	got := sha256.Sum256([]byte(presented))
	want := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return &authError{
			status:  401,
			code:    "unauthorized",
			message: "bearer token mismatch",
		}
	}
	return nil
}
