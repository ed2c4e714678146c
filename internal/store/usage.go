package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lectern/internal/llm"
)

// usageRepo implements UsageRepo backed by the global sequence counter.
type usageRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *usageRepo) RecordUsage(ctx context.Context, ev llm.UsageEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(usageTable).
		Columns("sequence", "at", "purpose", "model", "input_tokens", "output_tokens",
			"latency_ms", "success", "error_message", "cost_usd").
		Values(seqNum, at.UTC(), ev.Purpose, ev.Model, ev.InputTokens, ev.OutputTokens,
			ev.LatencyMs, ev.Success, ev.ErrorMessage, ev.CostUSD).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save usage event: %w", err)
	}
	return nil
}

func (r *usageRepo) Events(ctx context.Context, opts QueryOpts) ([]UsageRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("sequence", "at", "purpose", "model", "input_tokens", "output_tokens",
			"latency_ms", "success", "error_message", "cost_usd").
		From(entsql.Table(usageTable))
	applyOpts(sel, opts)
	sel.OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage events: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		err := rows.Scan(&rec.Sequence, &rec.At, &rec.Purpose, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &rec.LatencyMs, &rec.Success,
			&rec.ErrorMessage, &rec.CostUSD)
		if err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *usageRepo) Totals(ctx context.Context, opts QueryOpts) ([]UsageTotal, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("purpose", "model", entsql.Count("*"), entsql.Sum("success"),
			entsql.Sum("input_tokens"), entsql.Sum("output_tokens"), entsql.Sum("cost_usd")).
		From(entsql.Table(usageTable))
	applyOpts(sel, opts)
	sel.GroupBy("purpose", "model").OrderBy("purpose", "model")

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	var out []UsageTotal
	for rows.Next() {
		var (
			t         UsageTotal
			successes int
		)
		err := rows.Scan(&t.Purpose, &t.Model, &t.Calls, &successes,
			&t.InputTokens, &t.OutputTokens, &t.CostUSD)
		if err != nil {
			return nil, fmt.Errorf("scan usage totals: %w", err)
		}
		t.Failures = t.Calls - successes
		out = append(out, t)
	}
	return out, rows.Err()
}

func applyOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("at", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("at", opts.To.UTC()))
	}
}
