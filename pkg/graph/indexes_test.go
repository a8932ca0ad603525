package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
)

type runnerFunc func(ctx context.Context, cypher string, params map[string]any) (*Result, error)

func (f runnerFunc) Run(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	return f(ctx, cypher, params)
}

func showIndexesResult() *Result {
	return &Result{Records: []Record{
		{"type": "RANGE", "labelsOrTypes": []any{"case"}, "properties": []any{"case_id"}},
		{"type": "BTREE", "labelsOrTypes": []any{"sample"}, "properties": []any{"sample_site", "sample_type"}},
		{"type": "LOOKUP", "labelsOrTypes": nil, "properties": nil},
		{"type": "FULLTEXT", "labelsOrTypes": []any{"study"}, "properties": []any{"study_name"}},
	}}
}

func TestExistingIndexes(t *testing.T) {
	run := runnerFunc(func(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
		assert.Equal(t, "SHOW INDEXES", cypher)
		return showIndexesResult(), nil
	})

	existing, err := ExistingIndexes(context.Background(), run)
	require.NoError(t, err)

	assert.Len(t, existing, 2)
	assert.Contains(t, existing, NewIndexKey("case", []string{"case_id"}))
	// Property order within the key is canonicalized.
	assert.Contains(t, existing, NewIndexKey("sample", []string{"sample_type", "sample_site"}))
	assert.NotContains(t, existing, NewIndexKey("study", []string{"study_name"}))
}

func TestEnsureIndexes(t *testing.T) {
	var created []string
	run := runnerFunc(func(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
		if cypher == "SHOW INDEXES" {
			return showIndexesResult(), nil
		}
		created = append(created, cypher)
		return &Result{}, nil
	})

	specs := []schema.IndexSpec{
		// First two are already present, the second under another property order.
		{Kind: "case", Props: []string{"case_id"}},
		{Kind: "sample", Props: []string{"sample_type", "sample_site"}},
		{Kind: "case", Props: []string{"case_id", "breed"}},
		// Duplicate spec, created once.
		{Kind: "study", Props: []string{"study_name"}},
		{Kind: "study", Props: []string{"study_name"}},
	}

	n, err := EnsureIndexes(context.Background(), run, specs, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{
		"CREATE INDEX FOR (n:case) ON (n.case_id, n.breed)",
		"CREATE INDEX FOR (n:study) ON (n.study_name)",
	}, created)
}

func TestEnsureIndexesCreateError(t *testing.T) {
	boom := errors.New("index creation failed")
	run := runnerFunc(func(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
		if cypher == "SHOW INDEXES" {
			return &Result{}, nil
		}
		return nil, boom
	})

	n, err := EnsureIndexes(context.Background(), run, []schema.IndexSpec{{Kind: "case", Props: []string{"case_id"}}}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}
