package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrInvalidInput marks missing or malformed request parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCredentialsMissing means no delegated mailbox credential is stored for the user.
	ErrCredentialsMissing = errors.New("credentials not found")
	// ErrAuthExpired means Gmail rejected the stored credential; the user must re-authenticate.
	ErrAuthExpired = errors.New("gmail credential expired")
	// ErrUpstream covers every other Gmail failure.
	ErrUpstream = errors.New("gmail upstream failure")
)

// classify wraps err with ErrAuthExpired when Gmail answered 401 or the token
// refresh was refused, and with ErrUpstream otherwise. Errors that already
// carry a sentinel keep it.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuthExpired) || errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrCredentialsMissing) || errors.Is(err, ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %v", op, ErrAuthExpired, err)
	}
	var refreshErr *oauth2.RetrieveError
	if errors.As(err, &refreshErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrAuthExpired, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
}
