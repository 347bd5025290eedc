package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-be/internal/domain"
)

func newTestStore() SessionStore {
	return NewMemorySessionStore(domain.MaxActionsPerSession, domain.SessionTTL)
}

func viewAction(target string, at time.Time) domain.ActionRecord {
	return domain.ActionRecord{
		Type:      domain.ActionViewContent,
		TargetID:  target,
		Timestamp: at.UnixMilli(),
	}
}

func makeBatch(n int, at time.Time) []domain.ActionRecord {
	batch := make([]domain.ActionRecord, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, viewAction("content-1", at))
	}
	return batch
}

func TestMemorySessionStore_MergeCreatesSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := store.Merge(ctx, "sess-1", makeBatch(2, now), now)
	require.NoError(t, err)

	session, err := store.Get(ctx, "sess-1", now)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Actions, 2)
	assert.Equal(t, now, session.CreatedAt)
	assert.Equal(t, now.Add(domain.SessionTTL), session.ExpiresAt)
	assert.False(t, session.IsProcessed())
}

func TestMemorySessionStore_MergeAppendsAndSlidesTTL(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, now), now))

	later := now.Add(time.Hour)
	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(3, later), later))

	session, err := store.Get(ctx, "sess-1", later)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Actions, 5)
	assert.Equal(t, later.Add(domain.SessionTTL), session.ExpiresAt, "TTL slides forward on every successful merge")
	assert.Equal(t, now, session.CreatedAt, "creation time never changes")
}

func TestMemorySessionStore_MergeRejectsOversizedBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(48, now), now))

	err := store.Merge(ctx, "sess-1", makeBatch(3, now), now)
	require.ErrorIs(t, err, domain.ErrSessionLimitExceeded)

	// The failed merge left the session untouched
	session, err := store.Get(ctx, "sess-1", now)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Actions, 48)

	// Filling exactly to the cap still works
	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, now), now))
}

func TestMemorySessionStore_MergeRejectsWholeBatchOnBadTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(1, now), now))

	batch := []domain.ActionRecord{
		viewAction("ok", now),
		viewAction("too-fresh", now.Add(2*time.Minute)),
		viewAction("ok-too", now),
	}

	err := store.Merge(ctx, "sess-1", batch, now)
	require.ErrorIs(t, err, domain.ErrInvalidTimestamp)

	// Not even the valid records made it in
	session, getErr := store.Get(ctx, "sess-1", now)
	require.NoError(t, getErr)
	require.NotNil(t, session)
	assert.Len(t, session.Actions, 1)
}

func TestMemorySessionStore_TimestampBoundaries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		offset  time.Duration
		wantErr bool
	}{
		{"exactly one minute ahead", time.Minute, false},
		{"just over one minute ahead", time.Minute + time.Millisecond, true},
		{"exactly seven days behind", -7 * 24 * time.Hour, false},
		{"just over seven days behind", -(7*24*time.Hour + time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			err := store.Merge(ctx, "sess-1", []domain.ActionRecord{viewAction("x", now.Add(tt.offset))}, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemorySessionStore_MergeIntoExpiredSessionFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, created), created))

	// Past the TTL the merge is rejected and the session destroyed
	afterExpiry := created.Add(domain.SessionTTL + time.Minute)
	err := store.Merge(ctx, "sess-1", makeBatch(1, afterExpiry), afterExpiry)
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	// A later merge sees no session and starts fresh
	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(1, afterExpiry), afterExpiry))
	session, err := store.Get(ctx, "sess-1", afterExpiry)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Actions, 1)
}

func TestMemorySessionStore_MergeIntoProcessedSessionFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, now), now))

	claimed, err := store.ClaimForProcessing(ctx, "sess-1", now)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	err = store.Merge(ctx, "sess-1", makeBatch(1, now), now)
	assert.ErrorIs(t, err, domain.ErrSessionProcessed)
}

func TestMemorySessionStore_GetExpiredReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, now), now))

	session, err := store.Get(ctx, "sess-1", now.Add(domain.SessionTTL))
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestMemorySessionStore_ClaimForProcessing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(2, now), now))

	first, err := store.ClaimForProcessing(ctx, "sess-1", now)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Len(t, first.Actions, 2)
	require.NotNil(t, first.ProcessedAt)
	assert.Equal(t, now, *first.ProcessedAt)

	// A repeated claim loses
	second, err := store.ClaimForProcessing(ctx, "sess-1", now)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestMemorySessionStore_ClaimUnknownOrExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	claimed, err := store.ClaimForProcessing(ctx, "missing", now)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	require.NoError(t, store.Merge(ctx, "sess-1", makeBatch(1, now), now))
	claimed, err = store.ClaimForProcessing(ctx, "sess-1", now.Add(domain.SessionTTL+time.Minute))
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestMemorySessionStore_DeleteExpiredBefore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "old-1", makeBatch(3, t0), t0))
	require.NoError(t, store.Merge(ctx, "old-2", makeBatch(2, t0), t0))

	t1 := t0.Add(2 * time.Hour)
	require.NoError(t, store.Merge(ctx, "fresh", makeBatch(1, t1), t1))

	sweepAt := t0.Add(domain.SessionTTL + time.Hour)
	deleted, err := store.DeleteExpiredBefore(ctx, sweepAt)
	require.NoError(t, err)
	require.Len(t, deleted, 2)

	total := 0
	for _, d := range deleted {
		total += d.ActionCount
	}
	assert.Equal(t, 5, total)

	// The unexpired session survives
	session, err := store.Get(ctx, "fresh", sweepAt)
	require.NoError(t, err)
	assert.NotNil(t, session)

	// With nothing newly expired the second run is a no-op
	deleted, err = store.DeleteExpiredBefore(ctx, sweepAt)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}
