package dataloader

import (
	"context"
	"fmt"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// deleteTarget is one node queued for cascade deletion, identified by the
// property its kind is keyed on.
type deleteTarget struct {
	kind    string
	idField string
	params  map[string]interface{}
}

// deleteNode removes a node and cascades to children left with no other
// parent. Children are re-queried from the live graph as each node is
// popped, but a child seen with another parent at any point stays spared
// for the rest of the cascade, even if that other parent is deleted later.
func (l *Loader) deleteNode(ctx context.Context, run graph.Runner, node *types.PreparedNode) (int, int, error) {
	if node.IDField == "" {
		return 0, 0, fmt.Errorf("cannot delete (:%s): %w", node.Kind, types.ErrEmptyIDField)
	}

	queue := []deleteTarget{{kind: node.Kind, idField: node.IDField, params: node.Parameters()}}
	queued := map[string]struct{}{}
	spared := map[string]struct{}{}
	nodesDeleted := 0
	relationshipsDeleted := 0

	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]

		children, sole, err := l.childrenOf(ctx, run, target)
		if err != nil {
			return nodesDeleted, relationshipsDeleted, err
		}
		for _, child := range children {
			if _, ok := sole[child.ElementID]; !ok {
				spared[child.ElementID] = struct{}{}
				continue
			}
			if _, ok := spared[child.ElementID]; ok {
				continue
			}
			if _, ok := queued[child.ElementID]; ok {
				continue
			}
			kind := child.Kind()
			idField := l.model.IDField(kind)
			if idField == "" {
				return nodesDeleted, relationshipsDeleted,
					fmt.Errorf("cannot cascade to (:%s): %w", kind, types.ErrEmptyIDField)
			}
			queue = append(queue, deleteTarget{kind: kind, idField: idField, params: child.Props})
			queued[child.ElementID] = struct{}{}
		}

		res, err := run.Run(ctx, graph.DetachDeleteStatement(target.kind, target.idField), target.params)
		if err != nil {
			return nodesDeleted, relationshipsDeleted, err
		}
		nodesDeleted += res.Counters.NodesDeleted
		relationshipsDeleted += res.Counters.RelationshipsDeleted
		l.pending.AddDeleted(target.kind, res.Counters.NodesDeleted, res.Counters.RelationshipsDeleted)
	}
	return nodesDeleted, relationshipsDeleted, nil
}

// childrenOf returns every child of the target plus the element ids of the
// subset whose only parent is the target.
func (l *Loader) childrenOf(ctx context.Context, run graph.Runner, target deleteTarget) ([]graph.Entity, map[string]struct{}, error) {
	res, err := run.Run(ctx, graph.ChildrenStatement(target.kind, target.idField), target.params)
	if err != nil {
		return nil, nil, err
	}
	children := entities(res, "m")

	soleRes, err := run.Run(ctx, graph.ChildrenWithSoleParentStatement(target.kind, target.idField), target.params)
	if err != nil {
		return nil, nil, err
	}
	sole := map[string]struct{}{}
	for _, e := range entities(soleRes, "m") {
		sole[e.ElementID] = struct{}{}
	}
	return children, sole, nil
}

func entities(res *graph.Result, key string) []graph.Entity {
	out := make([]graph.Entity, 0, len(res.Records))
	for _, record := range res.Records {
		if e, ok := record.Entity(key); ok {
			out = append(out, e)
		}
	}
	return out
}
