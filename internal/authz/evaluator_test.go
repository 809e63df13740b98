package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleRanksAreTotalOrder(t *testing.T) {
	require.Greater(t, RoleOwner.Rank(), RoleManager.Rank())
	require.Greater(t, RoleManager.Rank(), RoleCashier.Rank())
	require.Greater(t, RoleCashier.Rank(), RoleTechnician.Rank())
	require.Greater(t, RoleTechnician.Rank(), 0)
	require.Equal(t, 0, Role("INTERN").Rank())
}

func TestParseRoleNormalises(t *testing.T) {
	role, err := ParseRole("  cashier ")
	require.NoError(t, err)
	require.Equal(t, RoleCashier, role)

	_, err = ParseRole("ADMIN")
	require.Error(t, err)
}

func TestEvaluatePublicSkipsEverything(t *testing.T) {
	eval := NewEvaluator("/healthz", "/auth/login")

	// Public requirement allows even a principal with a garbage role.
	bad := &Principal{WorkerID: 1, Role: Role("???")}
	require.NoError(t, eval.Evaluate("/sales", Public(), bad))

	// Public path pattern allows anonymous callers regardless of requirement.
	require.NoError(t, eval.Evaluate("/healthz", AnyOf(RoleOwner), nil))
	require.NoError(t, eval.Evaluate("/auth/login", AnyOf(RoleOwner), nil))
}

func TestEvaluatePublicPathWildcard(t *testing.T) {
	eval := NewEvaluator("/docs/*")
	require.NoError(t, eval.Evaluate("/docs/openapi.json", AnyOf(RoleOwner), nil))
	require.NoError(t, eval.Evaluate("/docs/guides/setup", AnyOf(RoleOwner), nil))
	require.ErrorIs(t, eval.Evaluate("/sales", AnyOf(RoleOwner), nil), ErrUnauthenticated)
}

func TestEvaluateAnonymousIsUnauthenticatedNotForbidden(t *testing.T) {
	eval := NewEvaluator()
	require.ErrorIs(t, eval.Evaluate("/sales", AnyOf(RoleCashier), nil), ErrUnauthenticated)
	require.ErrorIs(t, eval.Evaluate("/sales", Authenticated(), nil), ErrUnauthenticated)

	// A principal with no valid identity counts as anonymous.
	require.ErrorIs(t, eval.Evaluate("/sales", Authenticated(), &Principal{}), ErrUnauthenticated)
	require.ErrorIs(t, eval.Evaluate("/sales", Authenticated(), &Principal{WorkerID: 3, Role: "GUEST"}), ErrUnauthenticated)
}

func TestEvaluateEmptyRequirementAllowsAnyWorker(t *testing.T) {
	eval := NewEvaluator()
	for _, role := range []Role{RoleTechnician, RoleCashier, RoleManager, RoleOwner} {
		principal := &Principal{WorkerID: 1, Role: role}
		require.NoError(t, eval.Evaluate("/profile", Authenticated(), principal))
	}
}

func TestEvaluateRankIsUpwardPermissive(t *testing.T) {
	eval := NewEvaluator()
	req := AnyOf(RoleCashier)

	require.ErrorIs(t, eval.Evaluate("/sales", req, &Principal{WorkerID: 1, Role: RoleTechnician}), ErrForbidden)
	require.NoError(t, eval.Evaluate("/sales", req, &Principal{WorkerID: 1, Role: RoleCashier}))
	require.NoError(t, eval.Evaluate("/sales", req, &Principal{WorkerID: 1, Role: RoleManager}))
	require.NoError(t, eval.Evaluate("/sales", req, &Principal{WorkerID: 1, Role: RoleOwner}))
}

func TestEvaluateAnyOfUsesLowestBar(t *testing.T) {
	eval := NewEvaluator()

	// Requiring {MANAGER, TECHNICIAN} means rank >= TECHNICIAN suffices.
	req := AnyOf(RoleManager, RoleTechnician)
	require.NoError(t, eval.Evaluate("/repairs", req, &Principal{WorkerID: 1, Role: RoleTechnician}))
	require.NoError(t, eval.Evaluate("/repairs", req, &Principal{WorkerID: 1, Role: RoleCashier}))
}

func TestEvaluateOwnerOnly(t *testing.T) {
	eval := NewEvaluator()
	req := AnyOf(RoleOwner)

	for _, role := range []Role{RoleTechnician, RoleCashier, RoleManager} {
		err := eval.Evaluate("/workers", req, &Principal{WorkerID: 1, Role: role})
		require.ErrorIs(t, err, ErrForbidden, "role %s", role)
	}
	require.NoError(t, eval.Evaluate("/workers", req, &Principal{WorkerID: 1, Role: RoleOwner}))
}
