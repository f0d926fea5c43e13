package auth

import (
	"errors"
	"fmt"
)

// ErrNoRefreshToken signals the credential record has no refresh token,
// so the access token cannot be renewed. Re-authentication is required;
// callers must not retry.
var ErrNoRefreshToken = errors.New("credential record has no refresh token: re-authentication required")

// CredentialLoadError reports a missing, unreadable, or malformed
// credential file. The message names the expected path and the OAuth
// scope the caller needs so the user can re-authenticate correctly.
type CredentialLoadError struct {
	Path  string
	Scope string
	Err   error
}

func (e *CredentialLoadError) Error() string {
	return fmt.Sprintf(
		"loading credentials from %s (scope %s): %v",
		e.Path, e.Scope, e.Err,
	)
}

func (e *CredentialLoadError) Unwrap() error {
	return e.Err
}

// TokenRefreshError reports a non-2xx response from the OAuth token
// endpoint. The body is carried verbatim for diagnostics.
type TokenRefreshError struct {
	Status int
	Body   string
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed (status %d): %s", e.Status, e.Body)
}
