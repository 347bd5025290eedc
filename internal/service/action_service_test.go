package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-be/internal/domain"
	"vibe-be/internal/repository"
	"vibe-be/pkg/anontoken"
	"vibe-be/pkg/logger"
	"vibe-be/pkg/ratelimit"
)

func newActionFixture(t *testing.T, maxRequests int) (AnonymousActionService, *repository.MemoryAuditStore) {
	t.Helper()
	store := repository.NewMemorySessionStore(domain.MaxActionsPerSession, domain.SessionTTL)
	audit := repository.NewMemoryAuditStore()
	svc := NewAnonymousActionService(store, ratelimit.NewMemoryLimiter(), audit, logger.NewNop(), maxRequests, time.Minute)
	return svc, audit
}

func mintToken(t *testing.T) string {
	t.Helper()
	token, err := anontoken.Generate(time.Now())
	require.NoError(t, err)
	return token
}

func viewBatch(n int) []domain.ActionRecord {
	nowMs := time.Now().UnixMilli()
	batch := make([]domain.ActionRecord, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, domain.ActionRecord{
			Type:      domain.ActionViewContent,
			TargetID:  "content-1",
			Timestamp: nowMs,
		})
	}
	return batch
}

func TestActionService_StoreActionsAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 100)
	token := mintToken(t)

	id, err := svc.StoreActions(ctx, token, viewBatch(2))
	require.NoError(t, err)
	assert.Equal(t, token, id)

	summary, err := svc.GetCarryoverSummary(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.TotalActions)
	assert.Equal(t, 2, summary.CountsByType[domain.ActionViewContent])
}

func TestActionService_SummaryAccumulatesAcrossBatches(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 100)
	token := mintToken(t)

	_, err := svc.StoreActions(ctx, token, viewBatch(3))
	require.NoError(t, err)

	search := []domain.ActionRecord{{
		Type:      domain.ActionSearch,
		TargetID:  "cats",
		Search:    &domain.SearchData{Query: "cats"},
		Timestamp: time.Now().UnixMilli(),
	}}
	_, err = svc.StoreActions(ctx, token, search)
	require.NoError(t, err)

	summary, err := svc.GetCarryoverSummary(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 4, summary.TotalActions)
	assert.Equal(t, 3, summary.CountsByType[domain.ActionViewContent])
	assert.Equal(t, 1, summary.CountsByType[domain.ActionSearch])
}

func TestActionService_RejectsMalformedToken(t *testing.T) {
	ctx := context.Background()
	svc, audit := newActionFixture(t, 100)

	_, err := svc.StoreActions(ctx, "not-a-valid-token", viewBatch(1))
	require.ErrorIs(t, err, domain.ErrInvalidTokenFormat)

	// The rejection leaves a security audit trail
	events := audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "anonymous_token_rejected", events[0].EventType)
}

func TestActionService_RejectsOversizedSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 100)
	token := mintToken(t)

	_, err := svc.StoreActions(ctx, token, viewBatch(48))
	require.NoError(t, err)

	_, err = svc.StoreActions(ctx, token, viewBatch(3))
	require.ErrorIs(t, err, domain.ErrSessionLimitExceeded)

	summary, err := svc.GetCarryoverSummary(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 48, summary.TotalActions, "failed merge must not change the session")
}

func TestActionService_RejectsWholeBatchOnBadTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 100)
	token := mintToken(t)

	batch := viewBatch(2)
	batch = append(batch, domain.ActionRecord{
		Type:      domain.ActionViewContent,
		TargetID:  "content-2",
		Timestamp: time.Now().Add(time.Hour).UnixMilli(),
	})

	_, err := svc.StoreActions(ctx, token, batch)
	require.ErrorIs(t, err, domain.ErrInvalidTimestamp)

	summary, err := svc.GetCarryoverSummary(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, summary, "no session is created from a rejected batch")
}

func TestActionService_ThrottlesPerActionKind(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 2)
	token := mintToken(t)

	_, err := svc.StoreActions(ctx, token, viewBatch(1))
	require.NoError(t, err)
	_, err = svc.StoreActions(ctx, token, viewBatch(1))
	require.NoError(t, err)

	_, err = svc.StoreActions(ctx, token, viewBatch(1))
	require.Error(t, err)

	var limitErr *ratelimit.LimitExceededError
	assert.True(t, errors.As(err, &limitErr))
	assert.Greater(t, limitErr.ResetSeconds, 0)

	// A different action kind has its own window
	search := []domain.ActionRecord{{
		Type:      domain.ActionSearch,
		TargetID:  "dogs",
		Timestamp: time.Now().UnixMilli(),
	}}
	_, err = svc.StoreActions(ctx, token, search)
	assert.NoError(t, err)
}

func TestActionService_SummaryForUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newActionFixture(t, 100)

	summary, err := svc.GetCarryoverSummary(ctx, mintToken(t))
	require.NoError(t, err)
	assert.Nil(t, summary)
}
