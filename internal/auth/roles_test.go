package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthorized(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		allowed []Role
		want    bool
	}{
		{"empty set allows any role", RoleMedicoAuditor, nil, true},
		{"empty set allows guest", RoleInvitado, []Role{}, true},
		{"member", RoleJefeFinanciero, []Role{RoleSuperusuario, RoleJefeFinanciero}, true},
		{"non-member", RoleMedicoAuditor, []Role{RoleSuperusuario}, false},
		{"guest is not a member", RoleInvitado, []Role{RoleSuperusuario}, false},
		{"case sensitive", Role("superusuario"), []Role{RoleSuperusuario}, false},
		{"accent sensitive", Role("Medico Auditor"), []Role{RoleMedicoAuditor}, false},
		{"trailing space", Role("Superusuario "), []Role{RoleSuperusuario}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.role, tt.allowed))
		})
	}
}

func TestIsAuthorizedMembershipForEveryRole(t *testing.T) {
	all := append(Roles(), RoleInvitado)
	for _, set := range [][]Role{{RoleSuperusuario}, {RoleAnalistaConcertado, RoleCoordinadorRegional}, Roles()} {
		for _, r := range all {
			member := false
			for _, a := range set {
				if a == r {
					member = true
				}
			}
			assert.Equal(t, member, IsAuthorized(r, set), "role %q set %v", r, set)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, IsValidRole(r), "role %q", r)
	}
	for _, r := range []Role{RoleInvitado, "", "admin", "SUPERUSUARIO"} {
		assert.False(t, IsValidRole(r), "role %q", r)
	}
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, RoleInvitado, RoleOf(nil))
	assert.Equal(t, RoleJefeFinanciero, RoleOf(&UserSession{Role: RoleJefeFinanciero}))
}
