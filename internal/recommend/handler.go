package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/forkful/recommender/internal/api"
	"github.com/forkful/recommender/internal/geo"
	inats "github.com/forkful/recommender/internal/nats"
)

const (
	maxRequestBytes = 1 << 20
	publishTimeout  = 2 * time.Second
)

// EventPublisher records served and degraded runs.
type EventPublisher interface {
	PublishRecommendationServed(ctx context.Context, event inats.RecommendationServed) error
	PublishPipelineDegraded(ctx context.Context, event inats.PipelineDegraded) error
}

type RecommendRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
	Location *geo.Point    `json:"location" validate:"required"`
}

type Handler struct {
	pipeline  *Pipeline
	publisher EventPublisher
	validate  *validator.Validate
}

// NewHandler creates the HTTP handler. publisher may be nil.
func NewHandler(pipeline *Pipeline, publisher EventPublisher) *Handler {
	return &Handler{
		pipeline:  pipeline,
		publisher: publisher,
		validate:  api.NewValidator(),
	}
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, api.ErrPayloadTooLarge)
			return
		}
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.FromValidation(err))
		return
	}

	res, err := h.pipeline.Recommend(r.Context(), req.Messages, *req.Location)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			api.HandleError(w, api.NewValidationError(err.Error()))
			return
		}
		slog.Error("recommending", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, res)
	h.publish(r.Context(), res)
}

func (h *Handler) publish(ctx context.Context, res *Result) {
	if h.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var err error
	if res.Trace.Error != "" {
		err = h.publisher.PublishPipelineDegraded(ctx, inats.PipelineDegraded{
			RequestID:  res.RequestID,
			Reason:     res.Trace.Error,
			DurationMs: res.Trace.ProcessingTimeMs,
			Timestamp:  time.Now().UTC(),
		})
	} else {
		ids := make([]string, len(res.Recommendations))
		for i, rec := range res.Recommendations {
			ids[i] = rec.Venue.ID
		}
		var lang string
		if res.Trace.Context != nil {
			lang = string(res.Trace.Context.Language)
		}
		err = h.publisher.PublishRecommendationServed(ctx, inats.RecommendationServed{
			RequestID:         res.RequestID,
			Language:          lang,
			VenueIDs:          ids,
			HardFilterCount:   res.Trace.HardFilterCount,
			VectorSearchCount: res.Trace.VectorSearchCount,
			RerankCount:       res.Trace.RerankCount,
			Fallback:          res.Trace.Fallback,
			DurationMs:        res.Trace.ProcessingTimeMs,
			ServedAt:          time.Now().UTC(),
		})
	}
	if err != nil {
		slog.Warn("recommend: publishing event failed", "error", err, "request_id", res.RequestID)
	}
}
