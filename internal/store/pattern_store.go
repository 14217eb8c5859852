// This file persists the two ordered pattern rule lists.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

// PatternStore reads and atomically replaces the stored rule lists.
type PatternStore struct {
	db *sql.DB
}

// NewPatternStore creates a new PatternStore instance.
func NewPatternStore(db *sql.DB) *PatternStore {
	return &PatternStore{db: db}
}

// Get returns the current rule lists in priority order.
func (s *PatternStore) Get(ctx context.Context) (patterns.Set, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field, pattern, normalize
		FROM pattern_rules
		ORDER BY field, position
	`)
	if err != nil {
		return patterns.Set{}, fmt.Errorf("failed to query pattern rules: %w", err)
	}
	defer rows.Close()

	set := patterns.Set{Model: []patterns.Rule{}, QA: []patterns.Rule{}}
	for rows.Next() {
		var field, expr, normalize string
		if err := rows.Scan(&field, &expr, &normalize); err != nil {
			return patterns.Set{}, fmt.Errorf("failed to scan pattern rule: %w", err)
		}
		rule := patterns.Rule{Pattern: expr, Normalize: decodeDirectives(normalize)}
		switch patterns.Field(field) {
		case patterns.FieldModel:
			set.Model = append(set.Model, rule)
		case patterns.FieldQA:
			set.QA = append(set.QA, rule)
		}
	}
	if err := rows.Err(); err != nil {
		return patterns.Set{}, fmt.Errorf("failed to read pattern rules: %w", err)
	}
	return set, nil
}

// Replace swaps both lists for the supplied ones. Every rule is compiled
// before anything is written; one invalid rule rejects the whole replace and
// leaves the stored lists untouched.
func (s *PatternStore) Replace(ctx context.Context, set patterns.Set) error {
	if err := patterns.Validate(set.Model, set.QA); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin pattern transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pattern_rules"); err != nil {
		return fmt.Errorf("failed to clear pattern rules: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pattern_rules (field, position, pattern, normalize, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pattern insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	insert := func(field patterns.Field, rules []patterns.Rule) error {
		for i, r := range rules {
			if _, err := stmt.ExecContext(ctx, string(field), i, r.Pattern, encodeDirectives(r.Normalize), now); err != nil {
				return fmt.Errorf("failed to insert %s pattern %d: %w", field, i+1, err)
			}
		}
		return nil
	}
	if err := insert(patterns.FieldModel, set.Model); err != nil {
		return err
	}
	if err := insert(patterns.FieldQA, set.QA); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern rules: %w", err)
	}
	log.Info().Int("model_patterns", len(set.Model)).Int("qa_patterns", len(set.QA)).Msg("Patterns saved")
	return nil
}

// Snapshot loads the current lists and compiles them into an immutable
// snapshot for one job.
func (s *PatternStore) Snapshot(ctx context.Context, opts patterns.Options) (*patterns.Snapshot, error) {
	set, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := patterns.CompileWithOptions(set, opts)
	if err != nil {
		return nil, fmt.Errorf("stored patterns are invalid: %w", err)
	}
	return snap, nil
}

func encodeDirectives(ds []patterns.Directive) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

func decodeDirectives(s string) []patterns.Directive {
	if s == "" {
		return nil
	}
	var ds []patterns.Directive
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ds = append(ds, patterns.Directive(p))
		}
	}
	return ds
}
