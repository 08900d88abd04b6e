package remote

import (
	"context"
	"net/url"
)

type returnPathKey struct{}

// WithReturnPath records the screen path a request originates from so a 401 can send
// the user back to it after login.
func WithReturnPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, returnPathKey{}, path)
}

// ReturnPath reads the path stored by WithReturnPath.
func ReturnPath(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(returnPathKey{}).(string)
	return v
}

// LoginURL builds "<loginPath>?source=<path>", or just loginPath when path is empty.
func LoginURL(loginPath, returnPath string) string {
	if returnPath == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"source": {returnPath}}.Encode()
}
