package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/events"
)

func testIdentity(role domain.Role) *domain.Identity {
	return &domain.Identity{
		ID:          "id-1",
		DisplayName: "Bella Buyer",
		Email:       "buyer@example.com",
		Role:        role,
		IsVerified:  true,
	}
}

func newTestStore(t *testing.T) (*Store, *FileStore) {
	t.Helper()
	durable, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewStore(durable, events.NewInMemoryDispatcher(), zap.NewNop()), durable
}

func TestStoreStartsLoggedOut(t *testing.T) {
	store, _ := newTestStore(t)

	state := store.Get()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.Identity)
	assert.True(t, state.Credential.Empty())
}

func TestPersistWritesBothLocations(t *testing.T) {
	store, durable := newTestStore(t)

	store.Persist(testIdentity(domain.RoleBuyer), "tok-123")

	state := store.Get()
	require.True(t, state.IsAuthenticated)
	require.NotNil(t, state.Identity)
	assert.Equal(t, domain.RoleBuyer, state.Identity.Role)
	assert.Equal(t, domain.Credential("tok-123"), state.Credential)

	identity, credential, err := durable.Load()
	require.NoError(t, err)
	assert.Equal(t, "id-1", identity.ID)
	assert.Equal(t, domain.Credential("tok-123"), credential)
}

func TestClearErasesBothLocationsAndBumpsGeneration(t *testing.T) {
	store, durable := newTestStore(t)
	store.Persist(testIdentity(domain.RoleBuyer), "tok-123")
	genBefore := store.Generation()

	store.Clear(context.Background(), events.CauseLogout)

	state := store.Get()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.Identity)

	_, _, err := durable.Load()
	assert.True(t, IsNotFound(err))
	assert.Greater(t, store.Generation(), genBefore)
}

func TestClearPublishesCanonicalInvalidation(t *testing.T) {
	durable, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	var causes []events.InvalidationCause
	dispatcher.Subscribe(events.EventSessionInvalidated, func(_ context.Context, ev events.Event) error {
		payload, ok := ev.Payload.(events.SessionInvalidatedPayload)
		if ok {
			mu.Lock()
			causes = append(causes, payload.Cause)
			mu.Unlock()
		}
		return nil
	})

	store := NewStore(durable, dispatcher, zap.NewNop())
	store.Clear(context.Background(), events.CauseGatewayDenied)

	gen, ok := store.BeginVerification()
	require.True(t, ok)
	require.True(t, store.FailVerification(context.Background(), gen))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.InvalidationCause{events.CauseGatewayDenied, events.CauseVerifyFailed}, causes)
}

func TestBeginVerificationRefusesSecondFlight(t *testing.T) {
	store, _ := newTestStore(t)

	gen, ok := store.BeginVerification()
	require.True(t, ok)
	assert.True(t, store.Get().IsLoading)

	_, ok = store.BeginVerification()
	assert.False(t, ok, "a second verification must not start while one is in flight")

	require.True(t, store.CompleteVerification(gen, testIdentity(domain.RoleSeller), "tok-9"))
	assert.False(t, store.Get().IsLoading)

	_, ok = store.BeginVerification()
	assert.True(t, ok, "a new verification may start once the first resolved")
}

func TestCompleteVerificationRejectsStaleGeneration(t *testing.T) {
	store, durable := newTestStore(t)

	gen, ok := store.BeginVerification()
	require.True(t, ok)

	// A logout lands while the verification is in flight.
	store.Clear(context.Background(), events.CauseLogout)

	applied := store.CompleteVerification(gen, testIdentity(domain.RoleBuyer), "tok-stale")
	assert.False(t, applied, "logout must stomp the stale authenticated write")

	state := store.Get()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.Identity)
	_, _, err := durable.Load()
	assert.True(t, IsNotFound(err))
}

func TestFailVerificationRejectsStaleGeneration(t *testing.T) {
	store, _ := newTestStore(t)

	gen, ok := store.BeginVerification()
	require.True(t, ok)
	store.Clear(context.Background(), events.CauseLogout)

	assert.False(t, store.FailVerification(context.Background(), gen))
}

func TestReleaseVerificationDropsLoadingOnly(t *testing.T) {
	store, _ := newTestStore(t)
	store.Persist(testIdentity(domain.RoleAdmin), "tok-a")

	gen, ok := store.BeginVerification()
	require.True(t, ok)

	store.ReleaseVerification(gen)

	state := store.Get()
	assert.False(t, state.IsLoading)
	assert.True(t, state.IsAuthenticated, "release must not touch identity")
}

func TestRestorePopulatesCredentialWithoutAuthenticating(t *testing.T) {
	durable, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, durable.Save(testIdentity(domain.RoleBuyer), "tok-persisted"))

	store := NewStore(durable, events.NewInMemoryDispatcher(), zap.NewNop())
	store.Restore()

	state := store.Get()
	assert.Equal(t, domain.Credential("tok-persisted"), state.Credential)
	assert.False(t, state.IsAuthenticated, "only a verification confirms the session")
}

func TestDurableCredentialFallback(t *testing.T) {
	store, durable := newTestStore(t)
	require.NoError(t, durable.Save(testIdentity(domain.RoleBuyer), "tok-disk"))

	assert.Equal(t, domain.Credential("tok-disk"), store.DurableCredential())
}

func TestWatchFiresOnChange(t *testing.T) {
	store, _ := newTestStore(t)

	watch := store.Watch()
	store.Persist(testIdentity(domain.RoleBuyer), "tok")

	select {
	case <-watch:
	default:
		t.Fatal("watch channel should have fired on Persist")
	}
}

func TestSnapshotsAreConsistentUnderConcurrentWrites(t *testing.T) {
	store, _ := newTestStore(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.Persist(testIdentity(domain.RoleBuyer), "tok")
			store.Clear(context.Background(), events.CauseLogout)
		}
	}()

	for i := 0; i < 500; i++ {
		state := store.Get()
		if state.IsAuthenticated {
			// Never identity without credential or vice versa.
			require.NotNil(t, state.Identity)
			require.False(t, state.Credential.Empty())
		}
	}
	<-done
}
