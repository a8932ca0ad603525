package dataloader

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
)

func TestLoadNodesUpsert(t *testing.T) {
	db := &scriptedDB{handler: func(cypher string, params map[string]any) (*graph.Result, error) {
		if strings.HasPrefix(cypher, "MERGE (n:case") {
			return &graph.Result{Counters: graph.Counters{NodesCreated: 1}}, nil
		}
		return &graph.Result{}, nil
	}}
	l, _ := newTestLoader(t, Config{}, db)
	path := writeTSV(t, t.TempDir(), "case.tsv",
		"type\tcase_id\tbreed",
		"case\tC1\tPoodle",
		"case\tC2\tBeagle",
	)

	session := &scriptedSession{handler: db.handler}
	tx := &scriptedTx{handler: db.handler}
	require.NoError(t, l.loadNodes(context.Background(), session, tx, path))

	require.Len(t, tx.calls, 2)
	first := tx.calls[0]
	assert.Contains(t, first.cypher, "MERGE (n:case { case_id: $case_id })")
	assert.Contains(t, first.cypher, "ON CREATE SET n.created = datetime()")
	assert.Contains(t, first.cypher, "ON MATCH SET n.updated = datetime()")
	assert.Equal(t, "C1", first.params["case_id"])
	assert.Equal(t, "Poodle", first.params["breed"])
	assert.Equal(t, l.model.UUIDForNode("case", "C1"), first.params["uuid"])

	assert.Equal(t, 2, l.pending.NodesCreated)
	assert.Equal(t, 2, l.pending.NodesByKind["case"])
	// Single-transaction mode: the outer transaction owns the commit.
	assert.Zero(t, tx.commits)
}

func TestLoadNodesMissingID(t *testing.T) {
	l, reportBuf := newTestLoader(t, Config{}, &scriptedDB{})
	path := writeTSV(t, t.TempDir(), "case.tsv",
		"type\tcase_id\tbreed",
		"case\t\tPoodle",
	)

	err := l.loadNodes(context.Background(), &scriptedSession{}, &scriptedTx{}, path)
	require.ErrorIs(t, err, ErrMissingID)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, reportBuf.String(), "case_id\t!MISSING!\tMissing ID.")
}

func TestLoadNodesNewMode(t *testing.T) {
	db := &scriptedDB{handler: func(cypher string, params map[string]any) (*graph.Result, error) {
		switch {
		case strings.HasPrefix(cypher, "MATCH (m:case"):
			return &graph.Result{}, nil
		case strings.HasPrefix(cypher, "CREATE (:case"):
			return &graph.Result{Counters: graph.Counters{NodesCreated: 1}}, nil
		}
		return &graph.Result{}, nil
	}}
	l, _ := newTestLoader(t, Config{Mode: "new"}, db)
	path := writeTSV(t, t.TempDir(), "case.tsv",
		"type\tcase_id",
		"case\tC1",
	)

	tx := &scriptedTx{handler: db.handler}
	require.NoError(t, l.loadNodes(context.Background(), &scriptedSession{handler: db.handler}, tx, path))

	require.Len(t, tx.calls, 2)
	assert.Contains(t, tx.calls[0].cypher, "MATCH (m:case { case_id: $case_id }) RETURN m")
	assert.Contains(t, tx.calls[1].cypher, "CREATE (:case {")
	assert.Equal(t, 1, l.pending.NodesCreated)
}

func TestLoadNodesNewModeRejectsExisting(t *testing.T) {
	db := &scriptedDB{handler: func(cypher string, params map[string]any) (*graph.Result, error) {
		if strings.HasPrefix(cypher, "MATCH (m:case") {
			return entityResult("m", caseEntity("4:abc:1", "case", "case_id", "C1")), nil
		}
		return &graph.Result{}, nil
	}}
	l, reportBuf := newTestLoader(t, Config{Mode: "new"}, db)
	path := writeTSV(t, t.TempDir(), "case.tsv",
		"type\tcase_id",
		"case\tC1",
	)

	err := l.loadNodes(context.Background(), &scriptedSession{handler: db.handler}, &scriptedTx{handler: db.handler}, path)
	require.ErrorIs(t, err, ErrNodeExists)
	assert.Contains(t, err.Error(), "(:case { case_id: C1 })")
	assert.Contains(t, reportBuf.String(), "case_id\tC1\tNode exists.")
	assert.Zero(t, l.pending.NodesCreated)
}

func TestLoadNodesUnknownMode(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})
	l.cfg.Mode = "merge"

	err := l.loadNodes(context.Background(), &scriptedSession{}, &scriptedTx{}, "unused.tsv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown loading mode")
}

func TestRecordMissingIDWithoutIDField(t *testing.T) {
	l, reportBuf := newTestLoader(t, Config{}, &scriptedDB{})
	require.NoError(t, l.recordMissingID("case.tsv", 7, ""))
	assert.Contains(t, reportBuf.String(), "case.tsv\t7\t!MISSING!\t!MISSING!\tMissing ID field.")
}

func TestNodeExists(t *testing.T) {
	tx := &scriptedTx{handler: func(cypher string, params map[string]any) (*graph.Result, error) {
		return entityResult("m", caseEntity("4:abc:1", "case", "case_id", "C1")), nil
	}}
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	exists, err := l.nodeExists(context.Background(), tx, "case", "case_id", "C1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.Len(t, tx.calls, 1)
	assert.Equal(t, "C1", tx.calls[0].params["case_id"])

	empty := &scriptedTx{}
	exists, err = l.nodeExists(context.Background(), empty, "case", "case_id", "C9")
	require.NoError(t, err)
	assert.False(t, exists)
}
