package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-client/internal/domain"
)

var allRoles = []domain.Role{domain.RoleBuyer, domain.RoleSeller, domain.RoleAdmin}

func TestIsAllowedExclusivePaths(t *testing.T) {
	exclusive := map[domain.Role][]string{
		domain.RoleBuyer:  {"/home", "/wishlist/42", "/orders", "/profile/settings", "/checkout"},
		domain.RoleSeller: {"/seller/dashboard", "/seller/listings/7"},
		domain.RoleAdmin:  {"/admin/dashboard", "/admin/users"},
	}

	for owner, paths := range exclusive {
		for _, path := range paths {
			assert.True(t, IsAllowed(owner, path), "%s should reach %s", owner, path)
			for _, other := range allRoles {
				if other == owner {
					continue
				}
				assert.False(t, IsAllowed(other, path), "%s should not reach %s", other, path)
			}
		}
	}
}

func TestIsAllowedPublicPaths(t *testing.T) {
	public := []string{"/", "/login", "/signup", "/pets/123", "/search", "/about"}

	for _, path := range public {
		assert.True(t, IsAllowed("", path), "anonymous should reach %s", path)
		for _, role := range allRoles {
			assert.True(t, IsAllowed(role, path), "%s should reach %s", role, path)
		}
	}
}

func TestIsAllowedFailsClosed(t *testing.T) {
	for _, path := range []string{"/internal/debug", "/sellerstuff", "/adminx", "/homebrew"} {
		assert.False(t, IsAllowed("", path))
		for _, role := range allRoles {
			assert.False(t, IsAllowed(role, path), "%s should not reach unclassified %s", role, path)
		}
	}
}

func TestDefaultRouteForIsStableAndSelfReachable(t *testing.T) {
	for _, role := range allRoles {
		first := DefaultRouteFor(role)
		require.Equal(t, first, DefaultRouteFor(role))
		assert.True(t, IsAllowed(role, first), "default route for %s must not redirect again", role)
	}
	assert.Equal(t, LoginRoute, DefaultRouteFor("ferret"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}
