package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/events"
)

// Store is the centralized runtime copy of the session, guarded by a mutex
// so every reader sees identity and credential move together. It is injected
// at the composition root rather than held as a package global, so tests can
// substitute it freely.
//
// The generation counter orders writers: it bumps on every transition out of
// the authenticated state, and a verification result may only land if the
// generation it started under is still current. A logout can therefore always
// stomp a stale "authenticated" write arriving after it.
type Store struct {
	mu         sync.Mutex
	state      State
	generation uint64
	watch      chan struct{}

	durable    DurableStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewStore builds a store in the logged-out state.
func NewStore(durable DurableStore, dispatcher events.Dispatcher, logger *zap.Logger) *Store {
	return &Store{
		state:      LoggedOut(),
		watch:      make(chan struct{}),
		durable:    durable,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Get returns a snapshot of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the runtime state wholesale. The durable mirror is untouched;
// callers that need both locations use Persist or Clear.
func (s *Store) Set(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.notifyLocked()
}

// Generation returns the current write generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Watch returns a channel closed on the next state change. Callers re-arm by
// calling Watch again after the channel fires.
func (s *Store) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watch
}

// BeginVerification marks a verification in flight. It returns the generation
// the attempt runs under and false if another verification is already in
// flight, in which case the caller waits on Watch instead of issuing a
// duplicate identity check.
func (s *Store) BeginVerification() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLoading {
		return s.generation, false
	}
	s.state.IsLoading = true
	s.notifyLocked()
	return s.generation, true
}

// CompleteVerification lands a successful identity check: both locations get
// the new identity and credential, and the loading flag drops. It reports
// false, writing nothing, when the generation has moved on (a logout or 401
// reaction beat the verification result to the store).
func (s *Store) CompleteVerification(gen uint64, identity *domain.Identity, credential domain.Credential) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.persistLocked(identity, credential)
	s.mu.Unlock()
	return true
}

// FailVerification lands a failed identity check: both locations are erased
// and the visitor is unauthenticated. Stale failures are suppressed the same
// way as stale successes.
func (s *Store) FailVerification(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.clearLocked()
	s.mu.Unlock()

	s.publishInvalidated(ctx, events.CauseVerifyFailed)
	return true
}

// ReleaseVerification drops the loading flag without touching identity, used
// when a verification result is discarded because its caller went away. A
// no-op if the generation already moved on (something else reset the state).
func (s *Store) ReleaseVerification(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.state.IsLoading {
		return
	}
	s.state.IsLoading = false
	s.notifyLocked()
}

// Persist writes identity and credential to both locations and marks the
// session authenticated.
func (s *Store) Persist(identity *domain.Identity, credential domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(identity, credential)
}

// Clear erases both locations, bumps the generation, and announces the
// invalidation. Safe to call whether or not a session exists.
func (s *Store) Clear(ctx context.Context, cause events.InvalidationCause) {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()

	s.publishInvalidated(ctx, cause)
}

// Restore loads the durable mirror into the runtime copy without marking the
// session authenticated; only a verification may do that. Used once at
// startup so the credential is available for outgoing requests immediately.
func (s *Store) Restore() {
	identity, credential, err := s.durable.Load()
	if err != nil {
		if !IsNotFound(err) {
			s.logger.Warn("durable session unreadable", zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsAuthenticated || s.state.IsLoading {
		return
	}
	s.state.Identity = identity
	s.state.Credential = credential
	s.notifyLocked()
}

// DurableCredential reads the durable copy directly, the fallback source when
// the runtime copy has not been repopulated after a fresh start.
func (s *Store) DurableCredential() domain.Credential {
	_, credential, err := s.durable.Load()
	if err != nil {
		return ""
	}
	return credential
}

func (s *Store) persistLocked(identity *domain.Identity, credential domain.Credential) {
	if err := s.durable.Save(identity, credential); err != nil {
		// The runtime copy still satisfies the at-least-one-location
		// invariant; the session just will not survive a restart.
		s.logger.Warn("durable session write failed", zap.Error(err))
	}
	s.state = State{
		Identity:        identity,
		Credential:      credential,
		IsAuthenticated: true,
		IsLoading:       false,
	}
	s.notifyLocked()
}

func (s *Store) clearLocked() {
	if err := s.durable.Delete(); err != nil {
		s.logger.Warn("durable session delete failed", zap.Error(err))
	}
	s.state = LoggedOut()
	s.generation++
	s.notifyLocked()
}

func (s *Store) publishInvalidated(ctx context.Context, cause events.InvalidationCause) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewSessionInvalidated(cause))
}

// notifyLocked wakes every watcher. Callers hold s.mu.
func (s *Store) notifyLocked() {
	close(s.watch)
	s.watch = make(chan struct{})
}
