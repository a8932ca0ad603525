package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

const defaultDatabase = "neo4j"

// Client implements Database over the official bolt driver.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewClient creates a driver for the database at uri with basic auth. The
// connection is lazy; call VerifyConnectivity to surface a bad address or bad
// credentials before any data is touched.
func NewClient(uri, user, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = defaultDatabase
	}
	return &Client{driver: driver, database: database}, nil
}

// Session opens a new session against the configured database.
func (c *Client) Session(ctx context.Context) (Session, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	return &neoSession{session: session}, nil
}

// VerifyConnectivity checks that the database is reachable and the
// credentials are accepted.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases the underlying driver and all pooled connections.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

type neoSession struct {
	session neo4j.SessionWithContext
}

func (s *neoSession) BeginTransaction(ctx context.Context) (Transaction, error) {
	tx, err := s.session.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &neoTransaction{tx: tx}, nil
}

func (s *neoSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}

type neoTransaction struct {
	tx neo4j.ExplicitTransaction
}

func (t *neoTransaction) Run(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return collectResult(ctx, res)
}

func (t *neoTransaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *neoTransaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// collectResult drains a driver result into a detached Result. Records are
// collected before Consume because the driver invalidates the cursor once
// the summary is read.
func collectResult(ctx context.Context, res neo4j.ResultWithContext) (*Result, error) {
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := &Result{}
	for _, rec := range records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		out.Records = append(out.Records, row)
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return nil, err
	}
	counters := summary.Counters()
	out.Counters = Counters{
		NodesCreated:         counters.NodesCreated(),
		NodesDeleted:         counters.NodesDeleted(),
		RelationshipsCreated: counters.RelationshipsCreated(),
		RelationshipsDeleted: counters.RelationshipsDeleted(),
	}
	return out, nil
}

func convertValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return Entity{
			ElementID: val.ElementId,
			Labels:    val.Labels,
			Props:     val.Props,
		}
	case dbtype.Relationship:
		return Entity{
			ElementID: val.ElementId,
			Labels:    []string{val.Type},
			Props:     val.Props,
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	default:
		return v
	}
}

// IsUnavailable reports whether err means the database could not be reached.
func IsUnavailable(err error) bool {
	return neo4j.IsConnectivityError(err)
}

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return neoErr.Code == "Neo.ClientError.Security.Unauthorized"
	}
	return false
}
