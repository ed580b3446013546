package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/forkful/recommender/internal/nats"
)

type fakePublisher struct {
	mu       sync.Mutex
	served   []inats.RecommendationServed
	degraded []inats.PipelineDegraded
	err      error
}

func (p *fakePublisher) PublishRecommendationServed(_ context.Context, e inats.RecommendationServed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.served = append(p.served, e)
	return p.err
}

func (p *fakePublisher) PublishPipelineDegraded(_ context.Context, e inats.PipelineDegraded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.degraded = append(p.degraded, e)
	return p.err
}

func newTestHandler(store *fakeStore, pub EventPublisher) *Handler {
	completer := &fakeCompleter{
		extraction: slotsJSON,
		selection:  `[{"id":"a","reason":"Closest sushi counter."}]`,
	}
	p := NewPipeline(store, &fakeEmbedder{vec: []float32{1}}, completer, nil, testOptions())
	return NewHandler(p, pub)
}

func postRecommend(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Recommend(rec, req)
	return rec
}

const validBody = `{"messages":[{"role":"user","content":"sushi near me"}],"location":{"lat":32.08,"lng":34.78}}`

func TestHandler_Recommend(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(&fakeStore{venues: nearbyVenues(4)}, pub)

	rec := postRecommend(h, validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Data struct {
			RequestID       string `json:"request_id"`
			Recommendations []struct {
				Venue struct {
					ID string `json:"id"`
				} `json:"venue"`
				Reason          string `json:"reason"`
				MatchPercentage int    `json:"match_percentage"`
			} `json:"recommendations"`
			Debug *PipelineDebug `json:"debug"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Recommendations, 3)
	assert.Equal(t, "a", body.Data.Recommendations[0].Venue.ID)
	assert.Equal(t, "Closest sushi counter.", body.Data.Recommendations[0].Reason)
	require.NotNil(t, body.Data.Debug)
	assert.Equal(t, 4, body.Data.Debug.HardFilterCount)

	require.Len(t, pub.served, 1)
	assert.Equal(t, body.Data.RequestID, pub.served[0].RequestID.String())
	assert.Equal(t, "en", pub.served[0].Language)
	assert.Len(t, pub.served[0].VenueIDs, 3)
	assert.Empty(t, pub.degraded)
}

func TestHandler_ValidationFieldsUseJSONPaths(t *testing.T) {
	rec := postRecommend(newTestHandler(&fakeStore{}, nil),
		`{"messages":[{"role":"system","content":"sushi"}],"location":{"lat":132,"lng":34.78}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "must be one of: user assistant", body.Fields["messages[0].role"])
	assert.Equal(t, "must be <= 90", body.Fields["location.lat"])
}

func TestHandler_OversizedBody(t *testing.T) {
	huge := `{"messages":[{"role":"user","content":"` + strings.Repeat("a", maxRequestBytes) + `"}]}`
	rec := postRecommend(newTestHandler(&fakeStore{}, nil), huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"messages":`},
		{"missing location", `{"messages":[{"role":"user","content":"sushi"}]}`},
		{"no messages", `{"messages":[],"location":{"lat":32.08,"lng":34.78}}`},
		{"unknown role", `{"messages":[{"role":"system","content":"sushi"}],"location":{"lat":32.08,"lng":34.78}}`},
		{"latitude out of range", `{"messages":[{"role":"user","content":"sushi"}],"location":{"lat":132,"lng":34.78}}`},
		{"assistant only", `{"messages":[{"role":"assistant","content":"hello"}],"location":{"lat":32.08,"lng":34.78}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			rec := postRecommend(newTestHandler(&fakeStore{}, pub), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Empty(t, pub.served)
		})
	}
}

func TestHandler_DegradedRunPublishesReason(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(&fakeStore{err: errors.New("db down")}, pub)

	rec := postRecommend(h, validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendations":[]`)

	require.Len(t, pub.degraded, 1)
	assert.Equal(t, ErrorCatalogUnavailable, pub.degraded[0].Reason)
	assert.Empty(t, pub.served)
}

func TestHandler_PublishFailureDoesNotAffectResponse(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: no responders")}
	rec := postRecommend(newTestHandler(&fakeStore{venues: nearbyVenues(3)}, pub), validBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_WithoutPublisher(t *testing.T) {
	rec := postRecommend(newTestHandler(&fakeStore{venues: nearbyVenues(3)}, nil), validBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}
