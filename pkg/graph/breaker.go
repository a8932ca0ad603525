package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/alert"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/config"
)

// BreakerDatabase wraps a Database with circuit breaking logic. All
// transaction boundaries and statements share one breaker, so a database
// that starts failing mid-load trips once instead of timing out on every
// remaining row.
type BreakerDatabase struct {
	inner Database
	cb    *gobreaker.CircuitBreaker
	name  string
}

// WithBreaker wraps inner with a circuit breaker, or returns inner unchanged
// when breaking is disabled.
func WithBreaker(inner Database, cfg config.CircuitBreakerConfig, alerter alert.Alerter, log *slog.Logger) Database {
	if !cfg.Enabled {
		return inner
	}
	return NewBreakerDatabase(inner, cfg, alerter, log, "neo4j")
}

// NewBreakerDatabase creates a new circuit breaker database
func NewBreakerDatabase(inner Database, cfg config.CircuitBreakerConfig, alerter alert.Alerter, log *slog.Logger, name string) *BreakerDatabase {
	if log == nil {
		log = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many database failures detected.", name, from, to)
				if alerter != nil {
					if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
						log.Error("failed to send circuit breaker alert", "error", err)
					}
				}
			}
		},
	}

	return &BreakerDatabase{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
		name:  name,
	}
}

// Session implements Database
func (b *BreakerDatabase) Session(ctx context.Context) (Session, error) {
	session, err := b.inner.Session(ctx)
	if err != nil {
		return nil, err
	}
	return &breakerSession{inner: session, cb: b.cb}, nil
}

// VerifyConnectivity implements Database
func (b *BreakerDatabase) VerifyConnectivity(ctx context.Context) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.VerifyConnectivity(ctx)
	})
	return err
}

// Close implements Database
func (b *BreakerDatabase) Close(ctx context.Context) error {
	return b.inner.Close(ctx)
}

type breakerSession struct {
	inner Session
	cb    *gobreaker.CircuitBreaker
}

func (s *breakerSession) BeginTransaction(ctx context.Context) (Transaction, error) {
	tx, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.BeginTransaction(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &breakerTransaction{inner: tx.(Transaction), cb: s.cb}, nil
}

func (s *breakerSession) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

type breakerTransaction struct {
	inner Transaction
	cb    *gobreaker.CircuitBreaker
}

func (t *breakerTransaction) Run(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	res, err := t.cb.Execute(func() (interface{}, error) {
		return t.inner.Run(ctx, cypher, params)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Result), nil
}

func (t *breakerTransaction) Commit(ctx context.Context) error {
	_, err := t.cb.Execute(func() (interface{}, error) {
		return nil, t.inner.Commit(ctx)
	})
	return err
}

// Rollback bypasses the breaker so cleanup can still be attempted while the
// breaker is open.
func (t *breakerTransaction) Rollback(ctx context.Context) error {
	return t.inner.Rollback(ctx)
}
