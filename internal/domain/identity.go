package domain

// Role classifies what kind of visitor holds the session.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one of the known marketplace roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated visitor's profile. It is replaced wholesale
// on re-authentication and never partially patched.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	IsVerified  bool   `json:"isVerified"`
}

// Credential is the opaque bearer token proving the session to the backend.
type Credential string

// Empty reports whether no credential is held.
func (c Credential) Empty() bool {
	return c == ""
}
