package auth

// Role is a named permission level stored on the user record.
type Role string

const (
	RoleSuperusuario        Role = "Superusuario"
	RoleCoordinadorRegional Role = "Coordinador Regional"
	RoleAnalistaConcertado  Role = "Analista Concertado"
	RoleMedicoAuditor       Role = "Médico Auditor"
	RoleJefeFinanciero      Role = "Jefe Financiero"

	// RoleInvitado is implied when no session resolves. It is never stored.
	RoleInvitado Role = "Invitado"
)

var assignableRoles = []Role{
	RoleSuperusuario,
	RoleCoordinadorRegional,
	RoleAnalistaConcertado,
	RoleMedicoAuditor,
	RoleJefeFinanciero,
}

// Roles returns every role that can be stored on a user record.
func Roles() []Role {
	return append([]Role(nil), assignableRoles...)
}

// IsValidRole reports whether role is one of the assignable roles.
// Matching is exact and case-sensitive.
func IsValidRole(role Role) bool {
	for _, r := range assignableRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthorized reports whether role may proceed given the allowed set.
// An empty allowed set means the operation carries no role restriction.
func IsAuthorized(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RoleOf returns the session role, or RoleInvitado for a nil session.
func RoleOf(s *UserSession) Role {
	if s == nil {
		return RoleInvitado
	}
	return s.Role
}
