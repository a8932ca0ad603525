// Package plugins is the loader's extension point: hooks that synthesize a
// missing parent node during edge resolution, or derive auxiliary nodes
// after a row is loaded. Plugins are named in configuration and built from a
// registry, so a deployment opts in per dataset.
package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/config"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// Event tags the load stage at which a plugin is offered work.
type Event string

const (
	// EventMissingParent fires during edge resolution when a parent pointer
	// names a node absent from the database.
	EventMissingParent Event = "missing_parent"
	// EventNodeLoaded fires after a node row has been written.
	EventNodeLoaded Event = "node_loaded"
)

// CreateRequest carries the load context a plugin may act on. Kind and
// IDValue identify the absent parent for missing-parent events; Node is the
// prepared row that triggered the event.
type CreateRequest struct {
	Event   Event
	LineNum int
	Kind    string
	IDValue interface{}
	Node    *types.PreparedNode
}

// Plugin is a load hook. CreateNode runs inside the caller's transaction and
// reports whether it created anything; its writes roll back with the load.
type Plugin interface {
	Name() string
	ShouldRun(kind string, event Event) bool
	CreateNode(ctx context.Context, tx graph.Runner, req CreateRequest) (bool, error)
	// Stats returns the plugin's own write counters, merged into the run
	// total after a successful load.
	Stats() *types.Stats
}

// Factory builds a plugin from its configured params and the schema model.
type Factory func(params map[string]interface{}, model *schema.Model, log *slog.Logger) (Plugin, error)

var registry = map[string]Factory{}

// Register makes a plugin constructor available under name. Built-in plugins
// register from init; alternate builds may register their own.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New instantiates every configured plugin against the schema model.
func New(cfgs []config.PluginConfig, model *schema.Model, log *slog.Logger) ([]Plugin, error) {
	out := make([]Plugin, 0, len(cfgs))
	for _, cfg := range cfgs {
		factory, ok := registry[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q (registered: %s)", cfg.Name, strings.Join(registered(), ", "))
		}
		p, err := factory(cfg.Params, model, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize plugin %q: %w", cfg.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
