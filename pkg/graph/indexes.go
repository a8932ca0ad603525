package graph

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
)

// IndexKey identifies an index by label and sorted property tuple, so the
// same index declared with properties in a different order is still
// recognized as present.
type IndexKey string

// NewIndexKey builds the presence-check key for a label and property list.
func NewIndexKey(label string, props []string) IndexKey {
	sorted := make([]string, len(props))
	copy(sorted, props)
	sort.Strings(sorted)
	return IndexKey(label + ":" + strings.Join(sorted, ","))
}

// ExistingIndexes queries the database for single-property and composite
// indexes already in place. Only range indexes count; lookup and fulltext
// indexes are ignored.
func ExistingIndexes(ctx context.Context, run Runner) (map[IndexKey]struct{}, error) {
	res, err := run.Run(ctx, ShowIndexesStatement(), nil)
	if err != nil {
		return nil, err
	}
	existing := make(map[IndexKey]struct{})
	for _, rec := range res.Records {
		typ, _ := rec["type"].(string)
		// Neo4j 4 reports BTREE, Neo4j 5 replaced it with RANGE.
		if typ != "BTREE" && typ != "RANGE" {
			continue
		}
		labels := stringList(rec["labelsOrTypes"])
		props := stringList(rec["properties"])
		if len(labels) == 0 || len(props) == 0 {
			continue
		}
		existing[NewIndexKey(labels[0], props)] = struct{}{}
	}
	return existing, nil
}

// EnsureIndexes creates every index in specs that the database does not
// already have and returns the number created.
func EnsureIndexes(ctx context.Context, run Runner, specs []schema.IndexSpec, log *slog.Logger) (int, error) {
	existing, err := ExistingIndexes(ctx, run)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, spec := range specs {
		key := NewIndexKey(spec.Kind, spec.Props)
		if _, ok := existing[key]; ok {
			continue
		}
		if _, err := run.Run(ctx, CreateIndexStatement(spec.Kind, spec.Props), nil); err != nil {
			return created, err
		}
		existing[key] = struct{}{}
		created++
		if log != nil {
			log.Info("index created", "label", spec.Kind, "properties", strings.Join(spec.Props, ","))
		}
	}
	return created, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
