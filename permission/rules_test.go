package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredMatchesParams(t *testing.T) {
	rs := DefaultAdminRules()

	assert.Equal(t, []Role{RoleAdmin}, rs.Required("/court-prices/edit/17"))
	assert.Equal(t, []Role{RoleAdmin}, rs.Required("/court-prices/add"))
	assert.Equal(t, []Role{RoleManager}, rs.Required("/staff/42"))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, rs.Required("/orders"))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, rs.Required("/"))
	assert.Equal(t, []Role{RoleStaff}, rs.Required("/booking/"))
}

func TestRequiredFallsBackToDefaults(t *testing.T) {
	rs := DefaultAdminRules()
	assert.Equal(t, ConsoleRoles, rs.Required("/profile"))
}

func TestLiteralBeatsParam(t *testing.T) {
	rs := MustRuleSet(nil,
		Rule{Key: "detail", Paths: []string{"/items/:id"}, Roles: []Role{RoleUser}},
		Rule{Key: "new", Paths: []string{"/items/new"}, Roles: []Role{RoleAdmin}},
	)
	assert.Equal(t, []Role{RoleAdmin}, rs.Required("/items/new"))
	assert.Equal(t, []Role{RoleUser}, rs.Required("/items/9"))
	assert.Empty(t, rs.Required("/elsewhere"))
	assert.True(t, rs.Allowed("/elsewhere", RoleUser))
}

func TestAllowedAndMenuAgree(t *testing.T) {
	rs := DefaultAdminRules()
	for _, role := range []Role{RoleAdmin, RoleManager, RoleStaff, RoleUser} {
		var walk func(items []MenuItem)
		walk = func(items []MenuItem) {
			for _, item := range items {
				if item.Path != "" {
					assert.True(t, rs.Allowed(item.Path, role), "role %s sees %s but cannot enter", role, item.Path)
				}
				walk(item.Children)
			}
		}
		walk(rs.Menu(role))
	}
}

func TestMenuByRole(t *testing.T) {
	rs := DefaultAdminRules()

	keys := func(items []MenuItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.Key)
		}
		return out
	}

	assert.Equal(t, []string{"dashboard", "partners", "court-prices", "role", "courts"}, keys(rs.Menu(RoleAdmin)))
	assert.Equal(t, []string{"dashboard", "staff", "courts"}, keys(rs.Menu(RoleManager)))
	assert.Equal(t, []string{"counter"}, keys(rs.Menu(RoleStaff)))
	assert.Empty(t, rs.Menu(RoleUser))

	staff := rs.Menu(RoleStaff)
	require.Len(t, staff, 1)
	assert.Equal(t, "/sells", staff[0].Children[0].Path)
}

func TestNewRuleSetValidation(t *testing.T) {
	_, err := NewRuleSet(nil, Rule{Key: ""})
	require.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRuleSet(nil, Rule{Key: "a"}, Rule{Key: "a"})
	require.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRuleSet(nil, Rule{Key: "a", Paths: []string{"relative"}})
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestNilRuleSet(t *testing.T) {
	var rs *RuleSet
	assert.Nil(t, rs.Required("/x"))
	assert.True(t, rs.Allowed("/x", RoleUser))
	assert.Nil(t, rs.Menu(RoleAdmin))
}
