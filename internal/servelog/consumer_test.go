package servelog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/forkful/recommender/internal/nats"
)

type fakeInserter struct {
	entries []*Entry
	err     error
}

func (f *fakeInserter) Insert(_ context.Context, e *Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func TestDecodeEntry_Served(t *testing.T) {
	servedAt := time.Date(2026, 10, 14, 19, 30, 0, 0, time.UTC)
	event := inats.RecommendationServed{
		RequestID:         uuid.New(),
		Language:          "he",
		VenueIDs:          []string{"a", "b", "c"},
		HardFilterCount:   40,
		VectorSearchCount: 40,
		RerankCount:       15,
		Fallback:          true,
		DurationMs:        2300,
		ServedAt:          servedAt,
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	entry, err := decodeEntry(inats.SubjectRecommendationServed, data)
	require.NoError(t, err)

	assert.Equal(t, event.RequestID, entry.RequestID)
	assert.Equal(t, KindServed, entry.Kind)
	assert.Equal(t, "he", entry.Language)
	assert.Equal(t, []string{"a", "b", "c"}, entry.VenueIDs)
	assert.Equal(t, 15, entry.RerankCount)
	assert.True(t, entry.Fallback)
	assert.Empty(t, entry.Reason)
	assert.True(t, servedAt.Equal(entry.CreatedAt))
}

func TestDecodeEntry_Degraded(t *testing.T) {
	event := inats.PipelineDegraded{
		RequestID:  uuid.New(),
		Reason:     "embedding_unavailable",
		DurationMs: 812,
		Timestamp:  time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	entry, err := decodeEntry(inats.SubjectPipelineDegraded, data)
	require.NoError(t, err)

	assert.Equal(t, KindDegraded, entry.Kind)
	assert.Equal(t, "embedding_unavailable", entry.Reason)
	assert.Equal(t, int64(812), entry.DurationMs)
	assert.NotNil(t, entry.VenueIDs)
	assert.Empty(t, entry.VenueIDs)
}

func TestDecodeEntry_Errors(t *testing.T) {
	_, err := decodeEntry(inats.SubjectRecommendationServed, []byte(`{"request_id":`))
	assert.ErrorIs(t, err, errMalformed)

	_, err = decodeEntry("recs.events.unknown", []byte(`{}`))
	assert.ErrorIs(t, err, errMalformed)
}

func TestConsumerHandle(t *testing.T) {
	repo := &fakeInserter{}
	c := NewConsumer(repo, nil)

	data, _ := json.Marshal(inats.PipelineDegraded{RequestID: uuid.New(), Reason: "timeout"})
	require.NoError(t, c.handle(context.Background(), inats.SubjectPipelineDegraded, data))
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "timeout", repo.entries[0].Reason)

	assert.ErrorIs(t, c.handle(context.Background(), inats.SubjectPipelineDegraded, []byte("nope")), errMalformed)
	assert.Len(t, repo.entries, 1)

	repo.err = errors.New("db down")
	err := c.handle(context.Background(), inats.SubjectPipelineDegraded, data)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errMalformed)
}
