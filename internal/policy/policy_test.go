package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgm/internal/auth"
)

func session(role auth.Role, states ...string) *auth.UserSession {
	return &auth.UserSession{ID: "u", Email: "u@example.com", Role: role, AssignedStates: states}
}

func TestAuthorize(t *testing.T) {
	table := Default()

	tests := []struct {
		name string
		op   Operation
		s    *auth.UserSession
		want Result
	}{
		{"no session", OpUsuarios, nil, Unauthenticated},
		{"no session on unrestricted op", OpDashboard, nil, Unauthenticated},
		{"superuser on usuarios", OpUsuarios, session(auth.RoleSuperusuario), Granted},
		{"auditor on usuarios", OpUsuarios, session(auth.RoleMedicoAuditor), Forbidden},
		{"finance on pagos", OpPagos, session(auth.RoleJefeFinanciero), Granted},
		{"analyst on pagos", OpPagos, session(auth.RoleAnalistaConcertado), Forbidden},
		{"any role on dashboard", OpDashboard, session(auth.RoleMedicoAuditor), Granted},
		{"unknown role on dashboard", OpDashboard, session("Desconocido"), Granted},
		{"unknown role on casos", OpCasos, session("Desconocido"), Forbidden},
		{"unknown operation", Operation("nope"), session(auth.RoleSuperusuario), Forbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Authorize(tt.op, tt.s))
		})
	}
}

func TestDefaultTableUsesOnlyAssignableRoles(t *testing.T) {
	table := Default()
	for _, op := range table.Operations() {
		roles, ok := table.Allowed(op)
		require.True(t, ok)
		for _, r := range roles {
			assert.True(t, auth.IsValidRole(r), "operation %s role %s", op, r)
		}
	}
}

func TestWithOverrides(t *testing.T) {
	table, err := New(map[string][]string{
		"usuarios": {"Superusuario", "Coordinador Regional"},
		"archivo":  {},
	})
	require.NoError(t, err)

	assert.Equal(t, Granted, table.Authorize(OpUsuarios, session(auth.RoleCoordinadorRegional)))
	assert.Equal(t, Granted, table.Authorize(Operation("archivo"), session(auth.RoleMedicoAuditor)))
	assert.Equal(t, Granted, table.Authorize(OpPagos, session(auth.RoleJefeFinanciero)), "untouched rules keep defaults")

	assert.Equal(t, Forbidden, Default().Authorize(OpUsuarios, session(auth.RoleCoordinadorRegional)), "defaults are not mutated")
}

func TestWithOverridesRejectsUnknownRole(t *testing.T) {
	_, err := New(map[string][]string{"pagos": {"superusuario"}})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = New(map[string][]string{"pagos": {"Invitado"}})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestAllowedReturnsCopy(t *testing.T) {
	table := Default()
	roles, ok := table.Allowed(OpUsuarios)
	require.True(t, ok)
	roles[0] = auth.RoleMedicoAuditor

	assert.Equal(t, Forbidden, table.Authorize(OpUsuarios, session(auth.RoleMedicoAuditor)))

	_, ok = table.Allowed(Operation("nope"))
	assert.False(t, ok)
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{Restricted: true, States: []string{"Abierto"}}, ScopeFor(session(auth.RoleAnalistaConcertado, "Abierto")))
	assert.Equal(t, Scope{Restricted: true, States: []string{}}, ScopeFor(session(auth.RoleAnalistaConcertado)))
	assert.Equal(t, Scope{States: []string{}}, ScopeFor(session(auth.RoleSuperusuario, "Abierto")))
	assert.True(t, ScopeFor(nil).Restricted)
}
