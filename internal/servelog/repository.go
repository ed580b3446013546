package servelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles recommendation_log PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores e. Redelivered events hit the primary key and are ignored.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	venueIDs := e.VenueIDs
	if venueIDs == nil {
		venueIDs = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recommendation_log (request_id, kind, language, venue_ids, hard_filter_count,
		     vector_search_count, rerank_count, fallback, reason, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (request_id) DO NOTHING`,
		e.RequestID, e.Kind, e.Language, venueIDs, e.HardFilterCount,
		e.VectorSearchCount, e.RerankCount, e.Fallback, e.Reason, e.DurationMs, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting recommendation log entry: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first, plus the total match count.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Entry, int64, error) {
	params = params.normalized()
	where, args := params.conditions()

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM recommendation_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting recommendation log entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT request_id, kind, language, venue_ids, hard_filter_count, vector_search_count,
		     rerank_count, fallback, reason, duration_ms, created_at
		 FROM recommendation_log%s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying recommendation log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RequestID, &e.Kind, &e.Language, &e.VenueIDs, &e.HardFilterCount,
			&e.VectorSearchCount, &e.RerankCount, &e.Fallback, &e.Reason, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning recommendation log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
	return p
}

// conditions renders the WHERE clause (with leading space) and its args.
func (p ListParams) conditions() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if p.Kind != "" {
		add("kind = $%d", p.Kind)
	}
	if p.Reason != "" {
		add("reason = $%d", p.Reason)
	}
	if p.From != nil {
		add("created_at >= $%d", *p.From)
	}
	if p.To != nil {
		add("created_at <= $%d", *p.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
