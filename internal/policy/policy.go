// Package policy holds the static role→route access rules for the storefront.
// Every decision is a pure function over the route table; nothing here talks
// to the network or mutates state.
package policy

import (
	"fmt"
	"strings"

	"github.com/spec-kit/storefront-client/internal/domain"
)

// Route prefixes, grouped by the role that owns them. The families are
// disjoint, so classification never needs a tie-break.
var (
	publicPrefixes = []string{"/", "/login", "/signup", "/pets", "/search", "/about"}
	buyerPrefixes  = []string{"/home", "/wishlist", "/orders", "/profile", "/checkout"}
	sellerPrefixes = []string{"/seller"}
	adminPrefixes  = []string{"/admin"}
)

// defaultRoutes maps each role to its landing page after login or after a
// denied navigation.
var defaultRoutes = map[domain.Role]string{
	domain.RoleBuyer:  "/home",
	domain.RoleSeller: "/seller/dashboard",
	domain.RoleAdmin:  "/admin/dashboard",
}

// LoginRoute is where unauthenticated visitors are sent.
const LoginRoute = "/login"

// DefaultRouteFor returns the landing route for a role. Unknown roles fall
// back to the login route so a bad token can never land on protected content.
func DefaultRouteFor(role domain.Role) string {
	if route, ok := defaultRoutes[role]; ok {
		return route
	}
	return LoginRoute
}

// IsAllowed reports whether a visitor with the given role may see path.
// Public paths are open to everyone including anonymous visitors; any path
// outside the known families is denied.
func IsAllowed(role domain.Role, path string) bool {
	if matchesAny(path, publicPrefixes) {
		return true
	}
	switch {
	case matchesAny(path, buyerPrefixes):
		return role == domain.RoleBuyer
	case matchesAny(path, sellerPrefixes):
		return role == domain.RoleSeller
	case matchesAny(path, adminPrefixes):
		return role == domain.RoleAdmin
	}
	return false
}

// Validate asserts that every role's default route passes its own access
// check. A table violating this would redirect a denied visitor to a route
// that denies them again, forever. Called once at composition time.
func Validate() error {
	for role, route := range defaultRoutes {
		if !IsAllowed(role, route) {
			return fmt.Errorf("default route %q is not reachable by role %q", route, role)
		}
	}
	return nil
}

// matchesAny reports whether path falls under one of the prefixes. The bare
// root prefix matches only the root itself; everything else matches on whole
// path segments, so "/sellerstuff" does not fall under "/seller".
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
