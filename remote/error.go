package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any RemoteError with status 401.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrNetwork matches transport failures (no HTTP response).
	ErrNetwork = errors.New("remote: network failure")
	// ErrApplication matches 2xx responses carrying {"success": false}.
	ErrApplication = errors.New("remote: application failure")
)

// DefaultMessage is used when a failure carries no readable message.
const DefaultMessage = "request failed"

// RemoteError is the single error shape returned by Client.Do.
type RemoteError struct {
	// Status is the HTTP status, 0 for transport failures.
	Status    int
	Code      string
	Message   string
	RequestID string
	Err       error

	application bool
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("remote: %s", e.Message)
	case e.Code != "":
		return fmt.Sprintf("remote: %d %s: %s", e.Status, e.Code, e.Message)
	default:
		return fmt.Sprintf("remote: %d: %s", e.Status, e.Message)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNetwork:
		return e.Status == 0
	case ErrApplication:
		return e.application
	}
	return false
}

// AsRemoteError unwraps err into a *RemoteError when possible.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
