package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a role name as issued by the identity service.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleUser    Role = "USER"

	// RoleStudent is a pricing marker, not a precedence member.
	RoleStudent Role = "STUDENT"
)

var (
	// ErrEmptyPrecedence is returned when a precedence order has no roles.
	ErrEmptyPrecedence = errors.New("permission: empty precedence order")
	// ErrDuplicateRole is returned when a role appears twice in a precedence order.
	ErrDuplicateRole = errors.New("permission: duplicate role in precedence order")
	// ErrEmptyRole is returned for blank role names.
	ErrEmptyRole = errors.New("permission: empty role name")
)

// Precedence is a total order over roles, highest first. The effective role of a user
// is the first entry the user holds; a user holding none of them resolves to the last
// (lowest) entry.
type Precedence struct {
	order []Role
	rank  map[Role]int
}

// DefaultPrecedence is ADMIN > MANAGER > STAFF > USER.
var DefaultPrecedence = MustPrecedence(RoleAdmin, RoleManager, RoleStaff, RoleUser)

// NewPrecedence validates that order is non-empty, has no blanks and no duplicates.
func NewPrecedence(order ...Role) (Precedence, error) {
	if len(order) == 0 {
		return Precedence{}, ErrEmptyPrecedence
	}
	p := Precedence{
		order: make([]Role, 0, len(order)),
		rank:  make(map[Role]int, len(order)),
	}
	for i, r := range order {
		r = Normalize(string(r))
		if r == "" {
			return Precedence{}, ErrEmptyRole
		}
		if _, dup := p.rank[r]; dup {
			return Precedence{}, fmt.Errorf("%w: %s", ErrDuplicateRole, r)
		}
		p.rank[r] = i
		p.order = append(p.order, r)
	}
	return p, nil
}

// MustPrecedence is NewPrecedence that panics on invalid input. For package-level
// tables only.
func MustPrecedence(order ...Role) Precedence {
	p, err := NewPrecedence(order...)
	if err != nil {
		panic(err)
	}
	return p
}

// Order returns a copy of the order, highest first.
func (p Precedence) Order() []Role {
	out := make([]Role, len(p.order))
	copy(out, p.order)
	return out
}

// Resolve returns the highest-ranked role among held. Unknown names are ignored.
func (p Precedence) Resolve(held []Role) Role {
	if len(p.order) == 0 {
		return ""
	}
	best := -1
	for _, r := range held {
		i, ok := p.rank[Normalize(string(r))]
		if !ok {
			continue
		}
		if best == -1 || i < best {
			best = i
		}
	}
	if best == -1 {
		return p.order[len(p.order)-1]
	}
	return p.order[best]
}

// Rank reports the position of r (0 is highest).
func (p Precedence) Rank(r Role) (int, bool) {
	i, ok := p.rank[Normalize(string(r))]
	return i, ok
}

// Normalize upper-cases and trims a role name.
func Normalize(name string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(name)))
}

// Contains reports whether roles includes r.
func Contains(roles []Role, r Role) bool {
	r = Normalize(string(r))
	for _, x := range roles {
		if Normalize(string(x)) == r {
			return true
		}
	}
	return false
}
