package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePairwiseFollowsPrecedence(t *testing.T) {
	order := DefaultPrecedence.Order()
	for i := 0; i < len(order); i++ {
		for j := 0; j < len(order); j++ {
			held := []Role{order[i], order[j]}
			want := order[i]
			if j < i {
				want = order[j]
			}
			assert.Equal(t, want, DefaultPrecedence.Resolve(held), "held=%v", held)

			reversed := []Role{order[j], order[i]}
			assert.Equal(t, want, DefaultPrecedence.Resolve(reversed), "held=%v", reversed)
		}
	}
}

func TestResolveAdminAndStaff(t *testing.T) {
	assert.Equal(t, RoleAdmin, DefaultPrecedence.Resolve([]Role{RoleStaff, RoleAdmin}))
}

func TestResolveFallsBackToLowest(t *testing.T) {
	assert.Equal(t, RoleUser, DefaultPrecedence.Resolve(nil))
	assert.Equal(t, RoleUser, DefaultPrecedence.Resolve([]Role{"AUDITOR", RoleStudent}))
}

func TestResolveNormalizesCase(t *testing.T) {
	assert.Equal(t, RoleManager, DefaultPrecedence.Resolve([]Role{" manager ", "user"}))
}

func TestNewPrecedenceRejectsInvalidOrders(t *testing.T) {
	_, err := NewPrecedence()
	require.ErrorIs(t, err, ErrEmptyPrecedence)

	_, err = NewPrecedence(RoleAdmin, "admin")
	require.ErrorIs(t, err, ErrDuplicateRole)

	_, err = NewPrecedence(RoleAdmin, "  ")
	require.ErrorIs(t, err, ErrEmptyRole)
}

func TestCustomPrecedence(t *testing.T) {
	p, err := NewPrecedence(RoleManager, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, p.Resolve([]Role{RoleAdmin, RoleManager}))
	assert.Equal(t, RoleAdmin, p.Resolve([]Role{RoleStaff}))

	rank, ok := p.Rank(RoleAdmin)
	assert.True(t, ok)
	assert.Equal(t, 1, rank)
}

func TestSet(t *testing.T) {
	s := NewSet("ORDER_READ", "", "ORDER_WRITE", "ORDER_READ")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("ORDER_WRITE"))
	assert.False(t, s.Has("USER_DELETE"))
	assert.Equal(t, []string{"ORDER_READ", "ORDER_WRITE"}, s.Codes())

	var zero Set
	assert.False(t, zero.Has("x"))
}
