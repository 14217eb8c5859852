package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
	"github.com/vrsandeep/qa-harvest/internal/store"
	"github.com/vrsandeep/qa-harvest/internal/testutil"
)

func TestPatternStore_GetDefaults(t *testing.T) {
	s := store.NewPatternStore(testutil.SetupTestDB(t))

	set, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, patterns.DefaultSet, set)
}

func TestPatternStore_ReplaceKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewPatternStore(testutil.SetupTestDB(t))

	next := patterns.Set{
		Model: []patterns.Rule{
			{Pattern: `\bP-\d+\b`, Normalize: []patterns.Directive{patterns.Trim, patterns.Upper}},
			{Pattern: `\bFS-\d+\b`},
		},
		QA: []patterns.Rule{{Pattern: `\bTN-\d{4}\b`}},
	}
	require.NoError(t, s.Replace(ctx, next))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestPatternStore_ReplaceIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := store.NewPatternStore(testutil.SetupTestDB(t))

	before, err := s.Get(ctx)
	require.NoError(t, err)

	err = s.Replace(ctx, patterns.Set{
		Model: []patterns.Rule{{Pattern: `\bNEW-\d+\b`}},
		QA:    []patterns.Rule{{Pattern: `\bQA-\d+\b`}, {Pattern: `[unclosed`}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, patterns.ErrInvalidPattern)

	after, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected replace must leave the previous rules intact")
}

func TestPatternStore_ReplaceWithEmptyLists(t *testing.T) {
	ctx := context.Background()
	s := store.NewPatternStore(testutil.SetupTestDB(t))

	require.NoError(t, s.Replace(ctx, patterns.Set{}))
	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Model)
	assert.Empty(t, got.QA)
}

func TestPatternStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewPatternStore(testutil.SetupTestDB(t))

	snap, err := s.Snapshot(ctx, patterns.Options{})
	require.NoError(t, err)

	// Later edits do not leak into a snapshot that was already taken.
	require.NoError(t, s.Replace(ctx, patterns.Set{QA: []patterns.Rule{{Pattern: `\bZZ-\d+\b`}}}))

	m := snap.Match("FS-1020 QA-7", "")
	assert.Equal(t, "FS-1020", m.Model)
	assert.Equal(t, "QA-7", m.QANumber)
}
