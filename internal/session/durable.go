package session

import (
	"errors"

	"github.com/spec-kit/storefront-client/internal/domain"
)

// ErrNotFound reports that the durable mirror holds no session.
var ErrNotFound = errors.New("no stored session")

// IsNotFound reports whether err means the mirror is simply empty.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DurableStore is the persistence mirror behind the runtime Store. The
// contract mirrors the two-keys-as-one rule: identity and credential are
// written together and deleted together, never one without the other.
type DurableStore interface {
	Load() (*domain.Identity, domain.Credential, error)
	Save(identity *domain.Identity, credential domain.Credential) error
	Delete() error
}
