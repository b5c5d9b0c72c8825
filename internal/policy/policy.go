// Package policy holds the operation -> allowed-role table shared by page
// handlers and API handlers so both enforcement points read the same rules.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"cgm/internal/auth"
	"cgm/internal/metrics"
)

type Operation string

const (
	OpDashboard    Operation = "dashboard"
	OpPerfil       Operation = "perfil"
	OpCasos        Operation = "casos"
	OpClientes     Operation = "clientes"
	OpUsuarios     Operation = "usuarios"
	OpPagos        Operation = "pagos"
	OpBaremos      Operation = "baremos"
	OpAseguradoras Operation = "aseguradoras"
	OpAuditoria    Operation = "auditoria"
	OpReportes     Operation = "reportes"
)

var ErrUnknownRole = errors.New("unknown role")

// Result of an authorization check.
type Result int

const (
	Granted Result = iota
	Unauthenticated
	Forbidden
)

func (r Result) String() string {
	switch r {
	case Granted:
		return "granted"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Table maps operations to allowed roles. An operation with an empty role
// list only requires a session. Operations missing from the table are denied.
type Table struct {
	rules map[Operation][]auth.Role
}

func defaultRules() map[Operation][]auth.Role {
	return map[Operation][]auth.Role{
		OpDashboard: {},
		OpPerfil:    {},
		OpCasos: {
			auth.RoleSuperusuario,
			auth.RoleCoordinadorRegional,
			auth.RoleAnalistaConcertado,
			auth.RoleMedicoAuditor,
			auth.RoleJefeFinanciero,
		},
		OpClientes:     {auth.RoleSuperusuario, auth.RoleCoordinadorRegional, auth.RoleAnalistaConcertado},
		OpUsuarios:     {auth.RoleSuperusuario},
		OpPagos:        {auth.RoleSuperusuario, auth.RoleJefeFinanciero},
		OpBaremos:      {auth.RoleSuperusuario, auth.RoleJefeFinanciero, auth.RoleMedicoAuditor},
		OpAseguradoras: {auth.RoleSuperusuario, auth.RoleJefeFinanciero},
		OpAuditoria:    {auth.RoleSuperusuario, auth.RoleMedicoAuditor, auth.RoleCoordinadorRegional},
		OpReportes:     {auth.RoleSuperusuario, auth.RoleCoordinadorRegional, auth.RoleJefeFinanciero},
	}
}

// Default returns the built-in table.
func Default() *Table {
	return &Table{rules: defaultRules()}
}

// New builds a table from raw role names, rejecting roles outside the
// assignable enumeration.
func New(raw map[string][]string) (*Table, error) {
	return Default().WithOverrides(raw)
}

// WithOverrides returns a copy of t where every operation named in raw is
// replaced by the given roles.
func (t *Table) WithOverrides(raw map[string][]string) (*Table, error) {
	rules := make(map[Operation][]auth.Role, len(t.rules)+len(raw))
	for op, roles := range t.rules {
		rules[op] = append([]auth.Role{}, roles...)
	}

	for op, names := range raw {
		roles := make([]auth.Role, 0, len(names))
		for _, name := range names {
			role := auth.Role(name)
			if !auth.IsValidRole(role) {
				return nil, fmt.Errorf("%w %q for operation %q", ErrUnknownRole, name, op)
			}
			roles = append(roles, role)
		}
		rules[Operation(op)] = roles
	}
	return &Table{rules: rules}, nil
}

// Allowed returns the allowed roles for op and whether op is known.
func (t *Table) Allowed(op Operation) ([]auth.Role, bool) {
	roles, ok := t.rules[op]
	if !ok {
		return nil, false
	}
	return append([]auth.Role{}, roles...), true
}

// Operations lists the known operations in name order.
func (t *Table) Operations() []Operation {
	ops := make([]Operation, 0, len(t.rules))
	for op := range t.rules {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Authorize checks s against op. A nil session is Unauthenticated regardless
// of the rule; a session whose role is not allowed is Forbidden.
func (t *Table) Authorize(op Operation, s *auth.UserSession) Result {
	result := t.authorize(op, s)
	metrics.AuthorizationDecisions.WithLabelValues(string(op), result.String()).Inc()
	return result
}

func (t *Table) authorize(op Operation, s *auth.UserSession) Result {
	if s == nil {
		return Unauthenticated
	}
	roles, ok := t.rules[op]
	if !ok {
		return Forbidden
	}
	if !auth.IsAuthorized(s.Role, roles) {
		return Forbidden
	}
	return Granted
}

// Scope narrows downstream case queries for a session.
type Scope struct {
	// Restricted is true when only States may be shown.
	Restricted bool     `json:"restricted"`
	States     []string `json:"states"`
}

// ScopeFor returns the case-state scope of s. Analysts only see their
// assigned states; an analyst with none assigned sees nothing.
func ScopeFor(s *auth.UserSession) Scope {
	if s == nil {
		return Scope{Restricted: true, States: []string{}}
	}
	if s.Role == auth.RoleAnalistaConcertado {
		states := append([]string{}, s.AssignedStates...)
		return Scope{Restricted: true, States: states}
	}
	return Scope{States: []string{}}
}
