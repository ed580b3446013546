package servelog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/forkful/recommender/internal/api"
)

// Lister reads pages of the recommendation log.
type Lister interface {
	List(ctx context.Context, params ListParams) ([]Entry, int64, error)
}

type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List returns a page of recent pipeline runs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	if params.Kind != "" && params.Kind != KindServed && params.Kind != KindDegraded {
		api.HandleError(w, api.NewValidationError("kind must be served or degraded"))
		return
	}

	entries, total, err := h.repo.List(r.Context(), params)
	if err != nil {
		slog.Error("listing recommendation log", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	params.Kind = q.Get("kind")
	params.Reason = q.Get("reason")
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}
	return params
}
