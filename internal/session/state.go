// Package session owns the single in-process record of who the visitor is.
// All other components read it or request mutation through the Store; none
// keep a private copy. A durable mirror (file or Redis) lets a session
// survive process restarts the way a browser session survives a reload.
package session

import "github.com/spec-kit/storefront-client/internal/domain"

// State is a snapshot of the current visitor.
type State struct {
	Identity        *domain.Identity
	Credential      domain.Credential
	IsAuthenticated bool
	IsLoading       bool
}

// LoggedOut is the state every session starts in and returns to.
func LoggedOut() State {
	return State{}
}
