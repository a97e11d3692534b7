package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/notify"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/store"
)

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) recorded() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event{}, r.events...)
}

func newLifecycleFixture(t *testing.T) (LifecycleService, *repository.MemoryRecordsRepository, store.KV, *recordingNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := repository.NewMemoryRecordsRepository()
	kv := store.NewRedisKV(client)
	notifier := &recordingNotifier{}
	svc := NewLifecycleService(repo, kv, notifier, zap.NewNop())
	return svc, repo, kv, notifier
}

func seedLifecycleRecord(t *testing.T, repo *repository.MemoryRecordsRepository, id, bc string) {
	t.Helper()
	require.NoError(t, repo.SaveBatch(context.Background(), []*domain.RecordItem{{
		ID:         id,
		CIS:        42,
		Barcode:    bc,
		RecordType: domain.RecordTypePS,
		CreatedOn:  time.Now().UTC(),
	}}))
}

func TestLifecycle_RequestCheckoutCheckin(t *testing.T) {
	svc, repo, _, notifier := newLifecycleFixture(t)
	ctx := context.Background()
	seedLifecycleRecord(t, repo, "rec-1", "25-00001")

	require.NoError(t, svc.Request(ctx, "rec-1", "user-1"))
	require.NoError(t, svc.MarkReadyForPickup(ctx, "rec-1"))
	require.NoError(t, svc.Checkout(ctx, "rec-1", "user-1"))

	r, err := repo.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, r.CheckedOut)
	assert.False(t, r.Requested)
	assert.Equal(t, "user-1", r.CheckedOutTo.String)

	require.NoError(t, svc.CheckIn(ctx, "rec-1"))
	r, err = repo.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.False(t, r.CheckedOut)
	assert.False(t, r.ReadyForPickup)

	assert.Equal(t, []notify.Event{notify.EventRecordCheckedOut}, notifier.recorded())
}

func TestLifecycle_CheckoutConflictSurfaces(t *testing.T) {
	svc, repo, _, notifier := newLifecycleFixture(t)
	ctx := context.Background()
	seedLifecycleRecord(t, repo, "rec-1", "25-00001")

	require.NoError(t, svc.Checkout(ctx, "rec-1", "user-1"))
	err := svc.Checkout(ctx, "rec-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyCheckedOut)

	// The loser must not have emitted a notification.
	assert.Len(t, notifier.recorded(), 1)
}

func TestLifecycle_CheckInWithoutCheckout(t *testing.T) {
	svc, repo, _, _ := newLifecycleFixture(t)
	seedLifecycleRecord(t, repo, "rec-1", "25-00001")

	err := svc.CheckIn(context.Background(), "rec-1")
	assert.ErrorIs(t, err, domain.ErrNotCheckedOut)
}

func TestLifecycle_ListRequestedUsesAndInvalidatesCache(t *testing.T) {
	svc, repo, kv, _ := newLifecycleFixture(t)
	ctx := context.Background()
	seedLifecycleRecord(t, repo, "rec-1", "25-00001")
	seedLifecycleRecord(t, repo, "rec-2", "25-00002")

	require.NoError(t, svc.Request(ctx, "rec-1", "user-1"))

	got, err := svc.ListRequested(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rec-1", got[0].ID)

	// The first call filled the cache.
	_, err = kv.Get(ctx, store.KeyRequestedRecords)
	require.NoError(t, err)

	// A new request invalidates it and the next read sees both records.
	require.NoError(t, svc.Request(ctx, "rec-2", "user-1"))
	_, err = kv.Get(ctx, store.KeyRequestedRecords)
	assert.ErrorIs(t, err, store.ErrMiss)

	got, err = svc.ListRequested(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLifecycle_ListRequestedSurvivesPoisonedCache(t *testing.T) {
	svc, repo, kv, _ := newLifecycleFixture(t)
	ctx := context.Background()
	seedLifecycleRecord(t, repo, "rec-1", "25-00001")
	require.NoError(t, repo.MarkRequested(ctx, "rec-1"))

	require.NoError(t, kv.Set(ctx, store.KeyRequestedRecords, "{not json", time.Minute))

	got, err := svc.ListRequested(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLifecycle_HistoryForMissingRecord(t *testing.T) {
	svc, _, _, _ := newLifecycleFixture(t)

	_, err := svc.History(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
