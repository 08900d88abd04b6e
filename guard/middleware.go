package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/picklecourt/courtdesk/permission"
	"github.com/picklecourt/courtdesk/remote"
)

type stateContextKey struct{}

// StateFromContext returns the State the middleware admitted the request with.
func StateFromContext(ctx context.Context) (State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(State)
	return st, ok
}

// SessionResolver finds the session a request belongs to. Returning nil means
// unauthenticated.
type SessionResolver func(r *http.Request) SessionView

// StaticSession resolves every request to one session, for single-user deployments
// such as a counter kiosk.
func StaticSession(view SessionView) SessionResolver {
	return func(*http.Request) SessionView { return view }
}

// BearerSession resolves the session from the Authorization header via lookup.
func BearerSession(lookup func(ctx context.Context, token string) SessionView) SessionResolver {
	return func(r *http.Request) SessionView {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || lookup == nil {
			return nil
		}
		return lookup(r.Context(), token)
	}
}

// Middleware gates net/http handlers with the rule set. Unauthenticated requests get a
// 302 to the login path carrying the requested path as "source"; forbidden ones get 403.
// The login and forbidden paths themselves are always let through.
func Middleware(rules *permission.RuleSet, resolve SessionResolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := New(nil, rules, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == cfg.loginPath || r.URL.Path == cfg.forbiddenPath {
				next.ServeHTTP(w, r)
				return
			}

			var view SessionView
			if resolve != nil {
				view = resolve(r)
			}
			st := stateOf(view)

			switch decide(st, rules.Required(r.URL.Path)) {
			case RedirectToLogin:
				http.Redirect(w, r, remote.LoginURL(cfg.loginPath, r.URL.Path), http.StatusFound)
				return
			case RedirectToForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), stateContextKey{}, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
