package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/config"
	"github.com/forkful/recommender/internal/geo"
	"github.com/forkful/recommender/internal/llm"
	"github.com/forkful/recommender/internal/metrics"
)

// Stage names used in timings and metrics.
const (
	StageExtract      = "extract"
	StageHardFilter   = "hard_filter"
	StageVectorSearch = "vector_search"
	StageRerank       = "rerank"
	StageSelect       = "select"
)

// Options tunes a Pipeline.
type Options struct {
	VectorSearchTopK int
	RerankTopN       int
	CatalogScanLimit int
	EnableDiversity  bool
	DiversityHead    int
	EnableDebug      bool
	Timeout          time.Duration
	Weights          Weights

	// Location is the catalog's local time zone used for opening hours.
	Location *time.Location
	// Now is the wall clock; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns the production defaults in the Asia/Jerusalem zone,
// or UTC when the zone database is unavailable.
func DefaultOptions() Options {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		loc = time.UTC
	}
	return Options{
		VectorSearchTopK: 50,
		RerankTopN:       15,
		CatalogScanLimit: 5000,
		EnableDiversity:  true,
		DiversityHead:    10,
		EnableDebug:      true,
		Timeout:          45 * time.Second,
		Weights:          DefaultWeights(),
		Location:         loc,
		Now:              time.Now,
	}
}

// OptionsFromConfig maps the pipeline section of the service config.
func OptionsFromConfig(cfg config.PipelineConfig) (Options, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Options{}, fmt.Errorf("loading time zone %q: %w", cfg.TimeZone, err)
	}
	return Options{
		VectorSearchTopK: cfg.VectorSearchTopK,
		RerankTopN:       cfg.RerankTopN,
		CatalogScanLimit: cfg.CatalogScanLimit,
		EnableDiversity:  cfg.EnableDiversity,
		DiversityHead:    cfg.DiversityHead,
		EnableDebug:      cfg.EnableDebug,
		Timeout:          cfg.Timeout,
		Weights: Weights{
			Semantic:        cfg.SemanticWeight,
			Context:         cfg.ContextWeight,
			Rating:          cfg.RatingWeight,
			Social:          cfg.SocialWeight,
			DistancePenalty: cfg.DistancePenalty,
		},
		Location: loc,
		Now:      time.Now,
	}, nil
}

// Pipeline runs the five recommendation stages in order.
type Pipeline struct {
	extractor *Extractor
	filter    *HardFilter
	search    *VectorSearch
	reranker  *Reranker
	selector  *Selector
	opts      Options
}

// NewPipeline wires the stages. social may be nil.
func NewPipeline(store catalog.Store, embedder llm.Embedder, completer llm.Completer, social SocialSignals, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Pipeline{
		extractor: NewExtractor(completer),
		filter:    NewHardFilter(store, opts.CatalogScanLimit),
		search:    NewVectorSearch(embedder, opts.VectorSearchTopK),
		reranker:  NewReranker(opts.Weights, opts.RerankTopN, opts.EnableDiversity, opts.DiversityHead, social),
		selector:  NewSelector(completer),
		opts:      opts,
	}
}

// Recommend turns a conversation and the caller's position into at most
// three recommendations. It only returns an error for unusable input; an
// unavailable dependency or the deadline yields an empty result whose trace
// carries the reason.
func (p *Pipeline) Recommend(ctx context.Context, messages []ChatMessage, origin geo.Point) (*Result, error) {
	if err := validateInput(messages, origin); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	r := &run{
		started: time.Now(),
		result: &Result{
			RequestID:       uuid.New(),
			Recommendations: []Recommendation{},
		},
	}
	r.result.Trace.StageTimingsMs = make(map[string]int64, 5)
	log := slog.With("request_id", r.result.RequestID)

	var cc *ConversationContext
	r.stage(StageExtract, func() {
		cc = p.extractor.Extract(ctx, messages)
	})
	r.result.Trace.Context = cc
	if ctx.Err() != nil {
		return p.finish(log, r, ErrorTimeout), nil
	}

	var (
		filtered []ScoredVenue
		err      error
	)
	r.stage(StageHardFilter, func() {
		filtered, err = p.filter.Filter(ctx, cc, origin, p.opts.Now().In(p.opts.Location))
	})
	if err != nil {
		log.Warn("pipeline: hard filter failed", "error", err)
		return p.finish(log, r, failureMarker(ctx, err, ErrorCatalogUnavailable)), nil
	}
	r.result.Trace.HardFilterCount = len(filtered)
	metrics.PipelineCandidates.WithLabelValues(StageHardFilter).Observe(float64(len(filtered)))
	if len(filtered) == 0 {
		return p.finish(log, r, ""), nil
	}

	var scored []ScoredVenue
	r.stage(StageVectorSearch, func() {
		scored, err = p.search.Search(ctx, cc, filtered)
	})
	if err != nil {
		log.Warn("pipeline: vector search failed", "error", err)
		return p.finish(log, r, failureMarker(ctx, err, ErrorEmbeddingUnavailable)), nil
	}
	r.result.Trace.VectorSearchCount = len(scored)
	metrics.PipelineCandidates.WithLabelValues(StageVectorSearch).Observe(float64(len(scored)))
	if len(scored) == 0 {
		return p.finish(log, r, ""), nil
	}

	var ranked []RankedVenue
	r.stage(StageRerank, func() {
		ranked = p.reranker.Rerank(ctx, scored, cc)
	})
	r.result.Trace.RerankCount = len(ranked)
	metrics.PipelineCandidates.WithLabelValues(StageRerank).Observe(float64(len(ranked)))

	var (
		recs     []Recommendation
		fallback bool
	)
	r.stage(StageSelect, func() {
		recs, fallback = p.selector.Select(ctx, ranked, cc)
	})
	if ctx.Err() != nil {
		return p.finish(log, r, ErrorTimeout), nil
	}

	r.result.Recommendations = recs
	r.result.Trace.Fallback = fallback
	return p.finish(log, r, ""), nil
}

type run struct {
	started time.Time
	result  *Result
}

func (r *run) stage(name string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	r.result.Trace.StageTimingsMs[name] = elapsed.Milliseconds()
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (p *Pipeline) finish(log *slog.Logger, r *run, marker string) *Result {
	res := r.result
	res.Trace.Error = marker
	res.Trace.ProcessingTimeMs = time.Since(r.started).Milliseconds()
	if marker != "" {
		res.Recommendations = []Recommendation{}
	}

	outcome := "ok"
	switch {
	case marker != "":
		outcome = "error"
	case len(res.Recommendations) == 0:
		outcome = "empty"
	case res.Trace.Fallback:
		outcome = "fallback"
	}
	metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()

	if p.opts.EnableDebug {
		debug := res.Trace
		res.Debug = &debug
	}

	log.Info("pipeline: done",
		"outcome", outcome,
		"recommendations", len(res.Recommendations),
		"hard_filter", res.Trace.HardFilterCount,
		"vector_search", res.Trace.VectorSearchCount,
		"rerank", res.Trace.RerankCount,
		"duration_ms", res.Trace.ProcessingTimeMs,
		"error", marker)
	return res
}

func failureMarker(ctx context.Context, err error, marker string) string {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return ErrorTimeout
	}
	return marker
}

func validateInput(messages []ChatMessage, origin geo.Point) error {
	if !origin.Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalidRequest)
	}
	for _, m := range messages {
		if m.Role == "user" && strings.TrimSpace(m.Content) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no user message", ErrInvalidRequest)
}
