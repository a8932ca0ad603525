package dataloader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/plugins"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// resolvedParent is one parent pointer confirmed against the live graph, or
// freshly synthesized by a plugin, ready to become an edge.
type resolvedParent struct {
	pointer types.ParentPointer
	label   string
	mult    string
}

// loadRelationships runs the edge pass over one file. Every row's parent
// pointers are resolved against the graph as it stands, so the node pass for
// all files must have finished first.
func (l *Loader) loadRelationships(ctx context.Context, session graph.Session, tx graph.Transaction, fileName string) error {
	var action string
	switch l.cfg.Mode {
	case types.NewMode:
		action = "Loading new"
	case types.UpsertMode:
		action = "Loading"
	default:
		return fmt.Errorf("%w: %s", types.ErrUnknownMode, l.cfg.Mode)
	}
	l.log.Info(fmt.Sprintf("%s relationships from file: %s", action, fileName))

	f, err := openTSV(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := l.newBatcher(ctx, session, tx)
	if err != nil {
		return err
	}

	patterns := map[string]int{}
	intermediates := 0
	kind := "UNKNOWN"
	rows := 0
	sawParentColumns := false

	for {
		record, lineNum, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.Abort(ctx)
			return err
		}
		rows++

		node, err := l.prepareRow(record)
		if err != nil {
			b.Abort(ctx)
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		kind = node.Kind

		resolved, provided, created, err := l.collectRelationships(ctx, b.Runner(), node, true, lineNum, fileName)
		if err != nil {
			b.Abort(ctx)
			return err
		}
		intermediates += created

		if provided == 0 {
			if err := b.Advance(ctx, lineNum); err != nil {
				return err
			}
			continue
		}
		sawParentColumns = true

		if len(resolved) == 0 {
			values := make([]string, 0, len(node.Parents))
			for _, ptr := range node.Parents {
				values = append(values, formatValue(ptr.Value))
			}
			if rerr := l.report.Record(types.Violation{
				Filename: fileName,
				Lines:    []string{strconv.Itoa(lineNum)},
				Column:   "!PARENT RELATIONSHIPS!",
				Value:    strings.Join(values, ","),
				Detail:   fmt.Sprintf("%d parent relationships should exist, none do.", provided),
			}); rerr != nil {
				b.Abort(ctx)
				return rerr
			}
			b.Abort(ctx)
			return fmt.Errorf("line %d: %w", lineNum, ErrMissingParents)
		}

		for _, rp := range resolved {
			if err := l.writeRelationship(ctx, b.Runner(), node, rp, lineNum, fileName, patterns); err != nil {
				b.Abort(ctx)
				return err
			}
		}

		for _, p := range l.plugins {
			if !p.ShouldRun(node.Kind, plugins.EventNodeLoaded) {
				continue
			}
			ok, err := p.CreateNode(ctx, b.Runner(), plugins.CreateRequest{
				Event:   plugins.EventNodeLoaded,
				LineNum: lineNum,
				Kind:    node.Kind,
				Node:    node,
			})
			if err != nil {
				b.Abort(ctx)
				return err
			}
			if ok {
				intermediates++
			}
		}

		if err := b.Advance(ctx, lineNum); err != nil {
			return err
		}
	}
	if err := b.Finish(ctx); err != nil {
		return err
	}

	for _, pattern := range sortedStatKeys(patterns) {
		l.log.Info(fmt.Sprintf("%d %s relationship(s) loaded", patterns[pattern], pattern))
	}
	if intermediates > 0 {
		l.log.Info(fmt.Sprintf("%d intermediate node(s) loaded", intermediates))
	}
	if rows > 0 && !sawParentColumns {
		l.log.Warn(fmt.Sprintf("there is no parent mapping columns in the node %s", kind))
	}
	return nil
}

// collectRelationships resolves a row's parent pointers against the live
// graph. provided counts every pointer column on the row, matched or not;
// resolved carries only the pointers whose parent exists (or was created by
// a missing-parent plugin). offerPlugins gates plugin synthesis so callers
// outside the edge pass stay read-only.
func (l *Loader) collectRelationships(ctx context.Context, run graph.Runner, node *types.PreparedNode, offerPlugins bool, lineNum int, fileName string) ([]resolvedParent, int, int, error) {
	var resolved []resolvedParent
	provided := 0
	created := 0

	for _, ptr := range node.Parents {
		provided++

		rel, ok := l.model.Relationship(node.Kind, ptr.Kind)
		if !ok || rel.Label == "" {
			if rerr := l.report.Record(types.Violation{
				Filename: fileName,
				Lines:    []string{strconv.Itoa(lineNum)},
				Column:   ptr.Column,
				Value:    types.PlaceholderMissing,
				Reason:   types.ReasonUndefinedRelationship,
			}); rerr != nil {
				return nil, 0, 0, rerr
			}
			l.log.Error(fmt.Sprintf("Line: %d: Relationship not found!", lineNum))
			return nil, 0, 0, fmt.Errorf("line %d: (:%s)-->(:%s): %w",
				lineNum, node.Kind, ptr.Kind, ErrUndefinedRelationship)
		}

		exists, err := l.nodeExists(ctx, run, ptr.Kind, ptr.IDField, ptr.Value)
		if err != nil {
			return nil, 0, 0, err
		}

		if !exists {
			offered := false
			for _, p := range l.plugins {
				if !offerPlugins || !p.ShouldRun(ptr.Kind, plugins.EventMissingParent) {
					continue
				}
				offered = true
				made, err := p.CreateNode(ctx, run, plugins.CreateRequest{
					Event:   plugins.EventMissingParent,
					LineNum: lineNum,
					Kind:    ptr.Kind,
					IDValue: ptr.Value,
					Node:    node,
				})
				if err != nil {
					return nil, 0, 0, err
				}
				if made {
					created++
					resolved = append(resolved, resolvedParent{pointer: ptr, label: rel.Label, mult: rel.Multiplicity})
				} else {
					l.log.Error(fmt.Sprintf("Line: %d: Could not create %s node automatically!", lineNum, ptr.Kind))
				}
			}
			if !offered {
				l.log.Warn(fmt.Sprintf("Line: %d: Parent node (:%s {%s: %q} not found in DB!",
					lineNum, ptr.Kind, ptr.IDField, formatValue(ptr.Value)))
			}
			continue
		}

		if rel.Multiplicity == schema.OneToOne {
			taken, err := l.parentAlreadyHasChild(ctx, run, node, rel.Label, ptr)
			if err != nil {
				return nil, 0, 0, err
			}
			if taken {
				l.log.Error(fmt.Sprintf("Line: %d: one_to_one relationship failed, parent already has a child!", lineNum))
				continue
			}
		}
		resolved = append(resolved, resolvedParent{pointer: ptr, label: rel.Label, mult: rel.Multiplicity})
	}
	return resolved, provided, created, nil
}

// writeRelationship enforces the multiplicity rule for one resolved parent,
// then merges the edge along with its relationship properties.
func (l *Loader) writeRelationship(ctx context.Context, run graph.Runner, node *types.PreparedNode, rp resolvedParent, lineNum int, fileName string, patterns map[string]int) error {
	switch rp.mult {
	case schema.ManyToOne, schema.OneToOne:
		switch l.cfg.Mode {
		case types.UpsertMode:
			if err := l.removeOldRelationship(ctx, run, node, rp); err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
		case types.NewMode:
			exists, err := l.hasRelationship(ctx, run, node, rp)
			if err != nil {
				return err
			}
			if exists {
				if rerr := l.report.Record(types.Violation{
					Filename: fileName,
					Lines:    []string{strconv.Itoa(lineNum)},
					Column:   rp.pointer.IDField,
					Value:    formatValue(rp.pointer.Value),
					Reason:   types.ReasonRelationshipExists,
				}); rerr != nil {
					return rerr
				}
				l.log.Error(fmt.Sprintf("Line: %d: Relationship already exists, abort loading!", lineNum))
				return fmt.Errorf("line %d: [:%s]: %w", lineNum, rp.label, ErrRelationshipExists)
			}
		}
	default:
		l.log.Debug(fmt.Sprintf("Multiplier: %s, no action needed!", rp.mult))
	}

	props := node.RelProps[rp.label]
	statement := graph.MergeRelationshipStatement(node.Kind, node.IDField, rp.label, rp.pointer.Kind, rp.pointer.IDField, propNames(props))
	params := node.Parameters()
	params[graph.ParentIDParam] = rp.pointer.Value
	for k, v := range props {
		params[k] = v
	}
	res, err := run.Run(ctx, statement, params)
	if err != nil {
		return err
	}
	count := res.Counters.RelationshipsCreated
	l.pending.AddRelationships(rp.label, count)
	patterns[fmt.Sprintf("(:%s)->[:%s]->(:%s)", node.Kind, rp.label, rp.pointer.Kind)] += count
	return nil
}

// parentAlreadyHasChild reports whether a one_to_one parent already holds a
// child other than the node itself. Re-running a row over its own edge is
// not a conflict.
func (l *Loader) parentAlreadyHasChild(ctx context.Context, run graph.Runner, node *types.PreparedNode, label string, ptr types.ParentPointer) (bool, error) {
	res, err := run.Run(ctx, graph.ChildOfParentStatement(node.Kind, label, ptr.Kind, ptr.IDField),
		map[string]interface{}{"parent_id": ptr.Value})
	if err != nil {
		return false, err
	}
	childRecord, ok := res.Single()
	if !ok {
		return false, nil
	}
	child, ok := childRecord.Entity("n")
	if !ok {
		return false, nil
	}

	cur, err := run.Run(ctx, graph.CurrentNodeStatement(node.Kind, node.IDField), node.Parameters())
	if err != nil {
		return false, err
	}
	curRecord, ok := cur.Single()
	if !ok {
		l.log.Error("Could NOT find current node!")
		return false, nil
	}
	current, ok := curRecord.Entity("n")
	if !ok {
		return false, nil
	}
	return child.ElementID != current.ElementID, nil
}

// oldParent returns the id of the parent this child's edge of the label
// currently points at, if such an edge exists.
func (l *Loader) oldParent(ctx context.Context, run graph.Runner, node *types.PreparedNode, rp resolvedParent) (interface{}, bool, error) {
	statement := graph.OldParentStatement(node.Kind, node.IDField, rp.label, rp.pointer.Kind, rp.pointer.IDField)
	res, err := run.Run(ctx, statement, node.Parameters())
	if err != nil {
		return nil, false, err
	}
	record, ok := res.Single()
	if !ok {
		return nil, false, nil
	}
	old, _ := record.Value("parent_id")
	return old, true, nil
}

// hasRelationship reports whether the child already has an edge of the label
// to any parent of the kind.
func (l *Loader) hasRelationship(ctx context.Context, run graph.Runner, node *types.PreparedNode, rp resolvedParent) (bool, error) {
	_, found, err := l.oldParent(ctx, run, node, rp)
	return found, err
}

// removeOldRelationship repoints an upserted child: when its edge of the
// label points at a different parent than the row names, the old edge is
// deleted, or the pass aborts under the fail policy.
func (l *Loader) removeOldRelationship(ctx context.Context, run graph.Runner, node *types.PreparedNode, rp resolvedParent) error {
	old, found, err := l.oldParent(ctx, run, node, rp)
	if err != nil {
		return err
	}
	if !found || formatValue(old) == formatValue(rp.pointer.Value) {
		return nil
	}
	if l.cfg.RepointPolicy == types.RepointFail {
		return fmt.Errorf("(:%s { %s: %s }) already has a [:%s] parent: %w",
			node.Kind, node.IDField, node.ID, rp.label, ErrRepointBlocked)
	}
	l.log.Warn(fmt.Sprintf("Old parent is different from new parent, delete relationship to old parent: (:%s { %s: %q })!",
		rp.pointer.Kind, rp.pointer.IDField, formatValue(old)))
	if _, err := run.Run(ctx, graph.DeleteRelationshipStatement(node.Kind, node.IDField, rp.label, rp.pointer.Kind), node.Parameters()); err != nil {
		return fmt.Errorf("delete old relationship failed: %w", err)
	}
	return nil
}
