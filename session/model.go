package session

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/picklecourt/courtdesk/permission"
)

// Session is the authenticated token plus the user it belongs to.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// User is the profile returned by the identity service.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Roles       []Role `json:"roles"`
}

// Role is a named permission bundle.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UnmarshalJSON accepts permissions either as plain codes or as {"name": ...} objects,
// which is how the identity service returns them on some endpoints.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Permissions []json.RawMessage `json:"permissions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Name = raw.Name
	r.Description = raw.Description
	r.Permissions = nil
	for _, p := range raw.Permissions {
		p = bytes.TrimSpace(p)
		if len(p) == 0 {
			continue
		}
		if p[0] == '"' {
			var code string
			if err := json.Unmarshal(p, &code); err != nil {
				return err
			}
			r.Permissions = append(r.Permissions, code)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(p, &obj); err != nil {
			return err
		}
		r.Permissions = append(r.Permissions, obj.Name)
	}
	return nil
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// RoleNames returns the normalized names of every held role.
func (u User) RoleNames() []permission.Role {
	out := make([]permission.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, permission.Normalize(r.Name))
	}
	return out
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role permission.Role) bool {
	return permission.Contains(u.RoleNames(), role)
}

// Permissions unions the permission codes of every held role.
func (u User) Permissions() permission.Set {
	var codes []string
	for _, r := range u.Roles {
		codes = append(codes, r.Permissions...)
	}
	return permission.NewSet(codes...)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User.Roles = make([]Role, len(s.User.Roles))
	for i, r := range s.User.Roles {
		out.User.Roles[i] = r
		out.User.Roles[i].Permissions = append([]string(nil), r.Permissions...)
	}
	return &out
}
