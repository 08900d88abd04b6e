package guard

import (
	"github.com/picklecourt/courtdesk/permission"
	"github.com/picklecourt/courtdesk/remote"
)

// Decision is the outcome of a guard check.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToForbidden:
		return "redirect_to_forbidden"
	default:
		return "unknown"
	}
}

// SessionView is the read side of the session store.
type SessionView interface {
	IsAuthenticated() bool
	EffectiveRole() permission.Role
}

// State is the guard's view of the session: Unauthenticated, or Authenticated with a
// role.
type State struct {
	Authenticated bool
	Role          permission.Role
}

// Guard is safe for concurrent use; it reads the session on every check.
type Guard struct {
	session       SessionView
	rules         *permission.RuleSet
	loginPath     string
	forbiddenPath string
}

// Option customizes a Guard.
type Option func(*Guard)

// WithLoginPath overrides the login screen path (default "/login").
func WithLoginPath(p string) Option {
	return func(g *Guard) { g.loginPath = p }
}

// WithForbiddenPath overrides the forbidden screen path (default "/404").
func WithForbiddenPath(p string) Option {
	return func(g *Guard) { g.forbiddenPath = p }
}

func New(session SessionView, rules *permission.RuleSet, opts ...Option) *Guard {
	g := &Guard{
		session:       session,
		rules:         rules,
		loginPath:     "/login",
		forbiddenPath: "/404",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State reports the current session state.
func (g *Guard) State() State {
	return stateOf(g.session)
}

// Check decides access for an explicit list of required roles.
func (g *Guard) Check(required []permission.Role) Decision {
	return decide(g.State(), required)
}

// CheckPath decides access for a screen path using the rule set.
func (g *Guard) CheckPath(path string) Decision {
	return g.Check(g.rules.Required(path))
}

// Target returns where a non-Allow decision should send the user. returnPath is
// carried to the login screen.
func (g *Guard) Target(d Decision, returnPath string) string {
	switch d {
	case RedirectToLogin:
		return remote.LoginURL(g.loginPath, returnPath)
	case RedirectToForbidden:
		return g.forbiddenPath
	default:
		return ""
	}
}

// Rules returns the rule set backing CheckPath.
func (g *Guard) Rules() *permission.RuleSet {
	return g.rules
}

func stateOf(view SessionView) State {
	if view == nil || !view.IsAuthenticated() {
		return State{}
	}
	return State{Authenticated: true, Role: view.EffectiveRole()}
}

func decide(st State, required []permission.Role) Decision {
	if !st.Authenticated {
		return RedirectToLogin
	}
	if len(required) == 0 || permission.Contains(required, st.Role) {
		return Allow
	}
	return RedirectToForbidden
}
