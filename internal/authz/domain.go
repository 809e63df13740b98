package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Role enumerates the staff roles known to the shop.
type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleManager    Role = "MANAGER"
	RoleCashier    Role = "CASHIER"
	RoleTechnician Role = "TECHNICIAN"
)

// roleRanks is the fixed total order over roles. A higher rank implies the
// permissions of every lower rank, so "MANAGER or above" is expressed by
// requiring RoleManager and comparing ranks instead of listing every role.
var roleRanks = map[Role]int{
	RoleOwner:      4,
	RoleManager:    3,
	RoleCashier:    2,
	RoleTechnician: 1,
}

// Rank returns the hierarchy rank of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// ParseRole normalises and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", s)
	}
	return r, nil
}

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	WorkerID int64
	Role     Role
}

// Requirement declares what a route demands from the caller. The zero value
// means authenticated-only. Requirements are attached to routes when the
// router is built and never change at request time.
type Requirement struct {
	public bool
	roles  []Role
}

// Public marks a route as reachable without any principal.
func Public() Requirement {
	return Requirement{public: true}
}

// Authenticated allows any logged-in worker.
func Authenticated() Requirement {
	return Requirement{}
}

// AnyOf allows callers whose rank meets or exceeds at least one of the given
// roles.
func AnyOf(roles ...Role) Requirement {
	return Requirement{roles: roles}
}

// IsPublic reports whether the requirement skips all checks.
func (q Requirement) IsPublic() bool {
	return q.public
}

// Roles returns the required role set, empty for authenticated-only.
func (q Requirement) Roles() []Role {
	return q.roles
}

var (
	// ErrUnauthenticated means no principal is attached to the request.
	// Clients should be told to log in.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden means a principal is present but its rank is below every
	// required role. Logging in again will not help.
	ErrForbidden = errors.New("authz: forbidden")
)
