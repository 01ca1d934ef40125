package auth

import "fmt"

// AuthenticationError indicates the OAuth flow cannot proceed: missing
// credentials, a failed code exchange, or no usable token in the store.
type AuthenticationError struct {
	Message    string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// TokenExpiredError indicates the stored tokens are no longer usable and the
// merchant must re-authorize through the Cafe24 consent screen.
type TokenExpiredError struct {
	Message string
}

func (e *TokenExpiredError) Error() string {
	return fmt.Sprintf("token expired: %s", e.Message)
}
