package courtdesk

import (
	"context"

	"github.com/picklecourt/courtdesk/remote"
)

// WithReturnPath records the screen a request originates from. A 401 on that request
// sends the user to the login path with this path as ?source=.
func WithReturnPath(ctx context.Context, path string) context.Context {
	return remote.WithReturnPath(ctx, path)
}
