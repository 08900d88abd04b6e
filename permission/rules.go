package permission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule is returned by NewRuleSet for malformed rules.
var ErrInvalidRule = errors.New("permission: invalid rule")

// Rule binds a navigation entry to the route patterns it owns and the roles that may
// see and enter it. A rule with no Roles inherits the RuleSet default. Children are
// shown under their parent and are only visible when the parent is.
type Rule struct {
	Key      string
	Label    string
	Paths    []string
	Roles    []Role
	Children []Rule
}

// MenuItem is one visible navigation entry.
type MenuItem struct {
	Key      string
	Label    string
	Path     string
	Children []MenuItem
}

type compiledRule struct {
	key      string
	segments [][]string
	roles    []Role
}

// RuleSet is the single table consulted by both the menu renderer and the route
// guard. It is immutable after construction.
type RuleSet struct {
	defaults []Role
	rules    []Rule
	compiled []compiledRule
}

// NewRuleSet validates rules and compiles their route patterns. defaults applies to
// rules that declare no roles and to paths that match no rule; an empty defaults list
// means "any authenticated user".
func NewRuleSet(defaults []Role, rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{defaults: normalizeAll(defaults)}
	seen := make(map[string]struct{})
	var walk func(parentRoles []Role, list []Rule) ([]Rule, error)
	walk = func(parentRoles []Role, list []Rule) ([]Rule, error) {
		out := make([]Rule, 0, len(list))
		for _, r := range list {
			if strings.TrimSpace(r.Key) == "" {
				return nil, fmt.Errorf("%w: empty key", ErrInvalidRule)
			}
			if _, dup := seen[r.Key]; dup {
				return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidRule, r.Key)
			}
			seen[r.Key] = struct{}{}

			roles := normalizeAll(r.Roles)
			if len(roles) == 0 {
				roles = parentRoles
			}
			cr := compiledRule{key: r.Key, roles: roles}
			for _, p := range r.Paths {
				if !strings.HasPrefix(p, "/") {
					return nil, fmt.Errorf("%w: path %q of %q must be absolute", ErrInvalidRule, p, r.Key)
				}
				cr.segments = append(cr.segments, splitPath(p))
			}
			rs.compiled = append(rs.compiled, cr)

			children, err := walk(roles, r.Children)
			if err != nil {
				return nil, err
			}
			r.Roles = roles
			r.Children = children
			out = append(out, r)
		}
		return out, nil
	}
	compiled, err := walk(rs.defaults, rules)
	if err != nil {
		return nil, err
	}
	rs.rules = compiled
	return rs, nil
}

// MustRuleSet is NewRuleSet that panics on error.
func MustRuleSet(defaults []Role, rules ...Rule) *RuleSet {
	rs, err := NewRuleSet(defaults, rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Required returns the roles needed to enter path. The most specific matching pattern
// wins: literal segments beat ":param" segments, longer patterns beat shorter ones.
// Paths matching no rule require the defaults.
func (rs *RuleSet) Required(path string) []Role {
	if rs == nil {
		return nil
	}
	segs := splitPath(path)
	bestScore := -1
	var best []Role
	for _, cr := range rs.compiled {
		for _, pattern := range cr.segments {
			score, ok := matchSegments(pattern, segs)
			if ok && score > bestScore {
				bestScore = score
				best = cr.roles
			}
		}
	}
	if bestScore < 0 {
		best = rs.defaults
	}
	out := make([]Role, len(best))
	copy(out, best)
	return out
}

// Allowed reports whether role may enter path.
func (rs *RuleSet) Allowed(path string, role Role) bool {
	required := rs.Required(path)
	return len(required) == 0 || Contains(required, role)
}

// Menu returns the navigation entries visible to role, in declaration order.
func (rs *RuleSet) Menu(role Role) []MenuItem {
	if rs == nil {
		return nil
	}
	return menuFor(rs.rules, role)
}

// Rules returns the normalized rule tree.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func menuFor(rules []Rule, role Role) []MenuItem {
	var items []MenuItem
	for _, r := range rules {
		if len(r.Roles) > 0 && !Contains(r.Roles, role) {
			continue
		}
		item := MenuItem{Key: r.Key, Label: r.Label}
		if len(r.Paths) > 0 {
			item.Path = r.Paths[0]
		}
		item.Children = menuFor(r.Children, role)
		if item.Path == "" && len(item.Children) == 0 {
			continue
		}
		items = append(items, item)
	}
	return items
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

// matchSegments scores literal matches at 2 and params at 1 so specific routes win.
func matchSegments(pattern, path []string) (int, bool) {
	if len(pattern) != len(path) {
		return 0, false
	}
	score := 1
	for i, seg := range pattern {
		switch {
		case strings.HasPrefix(seg, ":"):
			if path[i] == "" {
				return 0, false
			}
			score++
		case seg == path[i]:
			score += 2
		default:
			return 0, false
		}
	}
	return score, true
}

func normalizeAll(roles []Role) []Role {
	if len(roles) == 0 {
		return nil
	}
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if n := Normalize(string(r)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
