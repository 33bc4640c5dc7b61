package stubapi

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront-client/internal/domain"
)

// Account is a fixture login for the stub backend.
type Account struct {
	Identity     domain.Identity
	PasswordHash []byte
	// revoked marks sessions ended by logout; tokens for a revoked account
	// fail the identity check until the next login.
	revoked bool
}

// AccountStore holds the in-memory fixture accounts, one per role.
type AccountStore struct {
	mu      sync.Mutex
	byEmail map[string]*Account
	byID    map[string]*Account
}

// NewAccountStore seeds one account per marketplace role, all sharing the
// given password.
func NewAccountStore(password string) (*AccountStore, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	seeds := []domain.Identity{
		{ID: uuid.NewString(), DisplayName: "Bella Buyer", Email: "buyer@example.com", Role: domain.RoleBuyer, IsVerified: true},
		{ID: uuid.NewString(), DisplayName: "Sam Seller", Email: "seller@example.com", Role: domain.RoleSeller, IsVerified: true},
		{ID: uuid.NewString(), DisplayName: "Ada Admin", Email: "admin@example.com", Role: domain.RoleAdmin, IsVerified: true},
	}

	store := &AccountStore{
		byEmail: make(map[string]*Account, len(seeds)),
		byID:    make(map[string]*Account, len(seeds)),
	}
	for _, identity := range seeds {
		account := &Account{Identity: identity, PasswordHash: hash}
		store.byEmail[identity.Email] = account
		store.byID[identity.ID] = account
	}
	return store, nil
}

// Authenticate verifies email/password and reactivates the account.
func (s *AccountStore) Authenticate(email, password string) (*domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byEmail[email]
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		return nil, false
	}
	account.revoked = false
	identity := account.Identity
	return &identity, true
}

// Lookup returns the identity for an active account id.
func (s *AccountStore) Lookup(id string) (*domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok || account.revoked {
		return nil, false
	}
	identity := account.Identity
	return &identity, true
}

// Revoke ends the account's session server-side.
func (s *AccountStore) Revoke(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.byID[id]; ok {
		account.revoked = true
	}
}
