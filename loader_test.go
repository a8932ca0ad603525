package dataloader

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/report"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
)

const loaderModelYAML = `
Nodes:
  case:
    Props:
      - case_id
      - breed
      - days_to_birth
      - weight
      - neutered
      - enrollment_date
      - crf_ids
      - tumor_size
  sample:
    Props:
      - sample_id
      - sample_site
  aliquot:
    Props:
      - aliquot_id
  file:
    Props:
      - file_name
Relationships:
  of_case:
    Mult: many_to_one
    Props:
      - days_to_sample
    Ends:
      - Src: sample
        Dst: case
  of_sample:
    Mult: one_to_one
    Ends:
      - Src: aliquot
        Dst: sample
  of_aliquot:
    Mult: many_to_many
    Ends:
      - Src: file
        Dst: aliquot
PropDefinitions:
  case_id:
    Type: string
    Req: true
  breed:
    Type: string
  days_to_birth:
    Type: Int
  weight:
    Type: Float
  neutered:
    Type: Boolean
  enrollment_date:
    Type: Date
  crf_ids:
    Type: list
  tumor_size:
    Type:
      value_type: float
      units:
        - cm
  sample_id:
    Type: string
    Req: true
  sample_site:
    Type: string
  aliquot_id:
    Type: string
    Req: true
  file_name:
    Type: string
    Req: true
  days_to_sample:
    Type: Int
`

const loaderPropsYAML = `
Properties:
  domain: ccdi.cancer.gov
  id_fields:
    case: case_id
    sample: sample_id
    aliquot: aliquot_id
    file: file_name
  indexes:
    - case:
        - breed
`

func loadTestModel(t *testing.T) *schema.Model {
	t.Helper()
	dir := t.TempDir()
	propsPath := filepath.Join(dir, "props.yml")
	modelPath := filepath.Join(dir, "model.yml")
	require.NoError(t, os.WriteFile(propsPath, []byte(loaderPropsYAML), 0o644))
	require.NoError(t, os.WriteFile(modelPath, []byte(loaderModelYAML), 0o644))
	m, err := schema.Load(propsPath, []string{modelPath}, testLogger(io.Discard))
	require.NoError(t, err)
	return m
}

func testLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// writeTSV writes lines, each already tab-joined, as one data file.
func writeTSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// statementHandler answers one statement. Tests script database behavior by
// dispatching on the statement text the query builders produce.
type statementHandler func(cypher string, params map[string]any) (*graph.Result, error)

type scriptedCall struct {
	cypher string
	params map[string]any
}

// scriptedTx records every statement and answers from the handler.
type scriptedTx struct {
	handler   statementHandler
	calls     []scriptedCall
	commits   int
	rollbacks int
	commitErr error
}

func (s *scriptedTx) Run(ctx context.Context, cypher string, params map[string]any) (*graph.Result, error) {
	s.calls = append(s.calls, scriptedCall{cypher: cypher, params: params})
	if s.handler != nil {
		return s.handler(cypher, params)
	}
	return &graph.Result{}, nil
}

func (s *scriptedTx) Commit(ctx context.Context) error {
	s.commits++
	return s.commitErr
}

func (s *scriptedTx) Rollback(ctx context.Context) error {
	s.rollbacks++
	return nil
}

// statements lists the cypher of every call on this transaction, in order.
func (s *scriptedTx) statements() []string {
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.cypher)
	}
	return out
}

// scriptedSession hands out transactions sharing one handler, keeping them
// all for inspection.
type scriptedSession struct {
	handler statementHandler
	txs     []*scriptedTx
	closes  int
}

func (s *scriptedSession) BeginTransaction(ctx context.Context) (graph.Transaction, error) {
	tx := &scriptedTx{handler: s.handler}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *scriptedSession) Close(ctx context.Context) error {
	s.closes++
	return nil
}

type scriptedDB struct {
	handler  statementHandler
	sessions []*scriptedSession
}

func (d *scriptedDB) Session(ctx context.Context) (graph.Session, error) {
	s := &scriptedSession{handler: d.handler}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *scriptedDB) VerifyConnectivity(ctx context.Context) error { return nil }
func (d *scriptedDB) Close(ctx context.Context) error              { return nil }

// statements flattens every statement run on any session, in order.
func (d *scriptedDB) statements() []string {
	var out []string
	for _, s := range d.sessions {
		for _, tx := range s.txs {
			for _, c := range tx.calls {
				out = append(out, c.cypher)
			}
		}
	}
	return out
}

func statementsContaining(stmts []string, substr string) []string {
	var out []string
	for _, s := range stmts {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

func caseEntity(elementID, kind, idField, id string) graph.Entity {
	return graph.Entity{
		ElementID: elementID,
		Labels:    []string{kind},
		Props:     map[string]any{idField: id},
	}
}

func entityResult(alias string, e graph.Entity) *graph.Result {
	return &graph.Result{Records: []graph.Record{{alias: e}}}
}

// newTestLoader builds a Loader over the fixture model with a buffered
// validation report and a quiet logger.
func newTestLoader(t *testing.T, cfg Config, db graph.Database) (*Loader, *bytes.Buffer) {
	t.Helper()
	var reportBuf bytes.Buffer
	l, err := New(loadTestModel(t), db, report.New(&reportBuf), nil, testLogger(io.Discard), cfg)
	require.NoError(t, err)
	return l, &reportBuf
}
