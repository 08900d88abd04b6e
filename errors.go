package courtdesk

import (
	"errors"
	"sort"
	"strings"

	"github.com/picklecourt/courtdesk/session"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("courtdesk: invalid config")
	// ErrStorageKeyMissing is returned when a durable backend has no encryption key.
	ErrStorageKeyMissing = session.ErrStorageKeyMissing
	// ErrInvalidCredentials is returned when the identity service refuses a login.
	ErrInvalidCredentials = errors.New("courtdesk: invalid credentials")
	// ErrInvalidLoginResponse is returned when a login response carries no token.
	ErrInvalidLoginResponse = errors.New("courtdesk: login response carried no token")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("courtdesk: not authenticated")
	// ErrPaymentDisabled is returned when no payment websocket URL is configured.
	ErrPaymentDisabled = errors.New("courtdesk: payment watching is not configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("courtdesk: desk is closed")
)

// ValidationError reports form fields that failed client-side validation. No request
// is made when one is returned.
type ValidationError struct {
	// Fields maps a field name to its message.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "courtdesk: validation failed: " + strings.Join(parts, "; ")
}
