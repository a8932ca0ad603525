package dataloader

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// loadNodes runs the node pass over one file: every row prepared and written
// according to the loading mode. In split mode the batcher commits every
// types.BatchSize rows.
func (l *Loader) loadNodes(ctx context.Context, session graph.Session, tx graph.Transaction, fileName string) error {
	var action string
	switch l.cfg.Mode {
	case types.NewMode:
		action = "Loading new"
	case types.UpsertMode:
		action = "Loading"
	case types.DeleteMode:
		action = "Deleting"
	default:
		return fmt.Errorf("%w: %s", types.ErrUnknownMode, l.cfg.Mode)
	}
	l.log.Info(fmt.Sprintf("%s nodes from file: %s", action, fileName))

	f, err := openTSV(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := l.newBatcher(ctx, session, tx)
	if err != nil {
		return err
	}

	nodesCreated := 0
	nodesDeleted := 0
	relationshipsDeleted := 0
	kind := "UNKNOWN"

	for {
		record, lineNum, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.Abort(ctx)
			return err
		}

		node, err := l.prepareRow(record)
		if err != nil {
			b.Abort(ctx)
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		kind = node.Kind

		if node.ID == "" {
			if rerr := l.recordMissingID(fileName, lineNum, node.IDField); rerr != nil {
				b.Abort(ctx)
				return rerr
			}
			b.Abort(ctx)
			return fmt.Errorf("line %d: %w", lineNum, ErrMissingID)
		}

		switch l.cfg.Mode {
		case types.UpsertMode:
			statement := graph.UpsertNodeStatement(node.Kind, node.IDField, propNames(node.Props))
			res, err := b.Runner().Run(ctx, statement, node.Parameters())
			if err != nil {
				b.Abort(ctx)
				return err
			}
			nodesCreated += res.Counters.NodesCreated
			l.pending.AddNodes(node.Kind, res.Counters.NodesCreated)

		case types.NewMode:
			exists, err := l.nodeExists(ctx, b.Runner(), node.Kind, node.IDField, node.ID)
			if err != nil {
				b.Abort(ctx)
				return err
			}
			if exists {
				if rerr := l.report.Record(types.Violation{
					Filename: fileName,
					Lines:    []string{strconv.Itoa(lineNum)},
					Column:   node.IDField,
					Value:    node.ID,
					Reason:   types.ReasonNodeExists,
				}); rerr != nil {
					b.Abort(ctx)
					return rerr
				}
				b.Abort(ctx)
				return fmt.Errorf("line %d: node (:%s { %s: %s }): %w",
					lineNum, node.Kind, node.IDField, node.ID, ErrNodeExists)
			}
			statement := graph.CreateNodeStatement(node.Kind, propNames(node.Props))
			res, err := b.Runner().Run(ctx, statement, node.Parameters())
			if err != nil {
				b.Abort(ctx)
				return err
			}
			nodesCreated += res.Counters.NodesCreated
			l.pending.AddNodes(node.Kind, res.Counters.NodesCreated)

		case types.DeleteMode:
			nDeleted, rDeleted, err := l.deleteNode(ctx, b.Runner(), node)
			if err != nil {
				b.Abort(ctx)
				return err
			}
			nodesDeleted += nDeleted
			relationshipsDeleted += rDeleted
		}

		if err := b.Advance(ctx, lineNum); err != nil {
			return err
		}
	}
	if err := b.Finish(ctx); err != nil {
		return err
	}

	if l.cfg.Mode == types.DeleteMode {
		l.log.Info(fmt.Sprintf("%d node(s) deleted", nodesDeleted))
		l.log.Info(fmt.Sprintf("%d relationship(s) deleted", relationshipsDeleted))
	} else {
		l.log.Info(fmt.Sprintf("%d (:%s) node(s) loaded", nodesCreated, kind))
	}
	return nil
}

// recordMissingID writes the validation record for a row with no usable
// identity: either the kind declares no id field at all, or the cell is
// empty.
func (l *Loader) recordMissingID(fileName string, lineNum int, idField string) error {
	v := types.Violation{
		Filename: fileName,
		Lines:    []string{strconv.Itoa(lineNum)},
		Column:   idField,
		Value:    types.PlaceholderMissing,
		Reason:   types.ReasonMissingID,
	}
	if idField == "" {
		v.Column = types.PlaceholderMissing
		v.Reason = types.ReasonMissingIDField
	}
	return l.report.Record(v)
}

// nodeExists probes for a node by id.
func (l *Loader) nodeExists(ctx context.Context, tx graph.Runner, kind, idField string, value interface{}) (bool, error) {
	res, err := tx.Run(ctx, graph.NodeExistsStatement(kind, idField), map[string]interface{}{idField: value})
	if err != nil {
		return false, err
	}
	if len(res.Records) > 1 {
		l.log.Warn("More than one nodes found!")
	}
	return !res.Empty(), nil
}

func propNames(props map[string]interface{}) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}
