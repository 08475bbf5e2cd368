package memberauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clubware/memberauth"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role  string
		valid bool
	}{
		{memberauth.RoleUser, true},
		{memberauth.RoleSecretary, true},
		{memberauth.RoleAdmin, true},
		{memberauth.RoleSuperAdmin, true},
		{"owner", false},
		{"", false},
		{"Admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.valid, memberauth.IsValidRole(tt.role))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := memberauth.ParseRole("secretary")
	assert.True(t, ok)
	assert.Equal(t, memberauth.RoleSecretary, role)

	_, ok = memberauth.ParseRole("root")
	assert.False(t, ok)
}

func TestGetAllRoles(t *testing.T) {
	roles := memberauth.GetAllRoles()
	assert.Len(t, roles, 4)
	assert.Contains(t, roles, memberauth.RoleUser)
	assert.Contains(t, roles, memberauth.RoleSuperAdmin)
}

func TestRoleIn(t *testing.T) {
	t.Run("member of the allowed set", func(t *testing.T) {
		assert.True(t, memberauth.RoleIn(memberauth.RoleAdmin, memberauth.RoleAdmin, memberauth.RoleSuperAdmin))
	})

	t.Run("outside the allowed set", func(t *testing.T) {
		assert.False(t, memberauth.RoleIn(memberauth.RoleUser, memberauth.RoleAdmin, memberauth.RoleSuperAdmin))
	})

	t.Run("no hierarchy between roles", func(t *testing.T) {
		// superadmin does not implicitly pass an admin-only check
		assert.False(t, memberauth.RoleIn(memberauth.RoleSuperAdmin, memberauth.RoleAdmin))
	})

	t.Run("empty allowed set rejects everyone", func(t *testing.T) {
		assert.False(t, memberauth.RoleIn(memberauth.RoleAdmin))
	})
}
