package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// ParentGeneratorName is the configuration name of the built-in plugin that
// creates missing parent nodes on the fly.
const ParentGeneratorName = "parent_generator"

func init() {
	Register(ParentGeneratorName, newParentGenerator)
}

// ParentGenerator synthesizes a missing parent node for a configured set of
// kinds during edge resolution. The generated node carries only its id and a
// uuid derived from that id; a later load of the real parent row upserts the
// remaining properties onto the same node.
type ParentGenerator struct {
	kinds map[string]struct{}
	model *schema.Model
	log   *slog.Logger
	stats *types.Stats
}

func newParentGenerator(params map[string]interface{}, model *schema.Model, log *slog.Logger) (Plugin, error) {
	if log == nil {
		log = slog.Default()
	}
	kinds, err := kindsParam(params)
	if err != nil {
		return nil, err
	}
	for kind := range kinds {
		if !model.HasKind(kind) {
			return nil, fmt.Errorf("parent_generator: unknown node kind %q", kind)
		}
		if model.IDField(kind) == "" {
			return nil, fmt.Errorf("parent_generator: node kind %q has no id field", kind)
		}
	}
	return &ParentGenerator{
		kinds: kinds,
		model: model,
		log:   log,
		stats: types.NewStats(),
	}, nil
}

func kindsParam(params map[string]interface{}) (map[string]struct{}, error) {
	raw, ok := params["kinds"]
	if !ok {
		return nil, errors.New("parent_generator requires a kinds parameter")
	}
	kinds := make(map[string]struct{})
	switch v := raw.(type) {
	case []string:
		for _, k := range v {
			kinds[k] = struct{}{}
		}
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parent_generator kinds must be strings, got %T", item)
			}
			kinds[s] = struct{}{}
		}
	default:
		return nil, fmt.Errorf("parent_generator kinds must be a list of node kinds, got %T", raw)
	}
	if len(kinds) == 0 {
		return nil, errors.New("parent_generator requires at least one kind")
	}
	return kinds, nil
}

// Name implements Plugin.
func (g *ParentGenerator) Name() string {
	return ParentGeneratorName
}

// ShouldRun implements Plugin: only missing parents of the configured kinds.
func (g *ParentGenerator) ShouldRun(kind string, event Event) bool {
	if event != EventMissingParent {
		return false
	}
	_, ok := g.kinds[kind]
	return ok
}

// CreateNode ensures the requested parent exists, returning whether it had
// to create it. The merge is keyed by the parent's id field, so two children
// pointing at the same absent parent create it once.
func (g *ParentGenerator) CreateNode(ctx context.Context, tx graph.Runner, req CreateRequest) (bool, error) {
	idField := g.model.IDField(req.Kind)
	id := fmt.Sprintf("%v", req.IDValue)
	if id == "" {
		return false, fmt.Errorf("line %d: cannot generate %s node without an id", req.LineNum, req.Kind)
	}

	params := map[string]any{
		idField:            req.IDValue,
		types.UUIDProperty: g.model.UUIDForNode(req.Kind, id),
	}
	stmt := graph.UpsertNodeStatement(req.Kind, idField, []string{idField, types.UUIDProperty})
	res, err := tx.Run(ctx, stmt, params)
	if err != nil {
		return false, fmt.Errorf("line %d: failed to generate %s node: %w", req.LineNum, req.Kind, err)
	}
	created := res.Counters.NodesCreated
	if created > 0 {
		g.stats.AddNodes(req.Kind, created)
		g.log.Info("generated missing parent node", "kind", req.Kind, "id", id, "line", req.LineNum)
	}
	return created > 0, nil
}

// Stats implements Plugin.
func (g *ParentGenerator) Stats() *types.Stats {
	return g.stats
}
