package dataloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// Load runs the full pipeline over one batch of files: validation, backup,
// index creation, then the node pass and the relationship pass. It returns
// the combined counters for everything committed.
//
// Loaders are single-use per run; Load must not be called concurrently.
func (l *Loader) Load(ctx context.Context, files []string) (*types.Stats, error) {
	if err := l.checkFiles(files); err != nil {
		return nil, err
	}
	start := time.Now()

	if err := l.report.Banner(l.cfg.DataModelVersion, files); err != nil {
		return nil, err
	}
	if err := l.validateFiles(files); err != nil {
		return nil, err
	}
	if err := l.report.Separator(); err != nil {
		return nil, err
	}

	if !l.cfg.NoBackup && !l.cfg.DryRun {
		if err := l.runBackup(ctx); err != nil {
			return nil, err
		}
	}
	if l.cfg.DryRun {
		l.log.Info("Dry run mode, no nodes or relationships loaded.")
		l.log.Info(fmt.Sprintf("Running time: %.2f seconds", time.Since(start).Seconds()))
		l.stats.Reset()
		return l.stats, nil
	}

	l.stats.Reset()
	l.pending.Reset()

	if err := l.createIndexes(ctx); err != nil {
		return nil, err
	}

	if err := l.loadAll(ctx, files); err != nil {
		return nil, err
	}

	for _, p := range l.plugins {
		l.stats.Merge(p.Stats())
	}

	for _, kind := range sortedStatKeys(l.stats.NodesByKind) {
		l.log.Info(fmt.Sprintf("Node: (:%s) loaded: %d", kind, l.stats.NodesByKind[kind]))
	}
	for _, label := range sortedStatKeys(l.stats.RelationshipsByLabel) {
		l.log.Info(fmt.Sprintf("Relationship: [:%s] loaded: %d", label, l.stats.RelationshipsByLabel[label]))
	}
	l.log.Info(fmt.Sprintf("%d new indexes created!", l.stats.IndexesCreated))
	l.log.Info(fmt.Sprintf("%d nodes and %d relationships loaded!", l.stats.NodesCreated, l.stats.RelationshipsCreated))
	l.log.Info(fmt.Sprintf("%d nodes and %d relationships deleted!", l.stats.NodesDeleted, l.stats.RelationshipsDeleted))
	l.log.Info(fmt.Sprintf("Loading time: %.2f seconds", time.Since(start).Seconds()))

	if err := l.report.Done(); err != nil {
		return nil, err
	}
	return l.stats, nil
}

func (l *Loader) checkFiles(files []string) error {
	if len(files) == 0 {
		return errors.New("invalid file list")
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("file %q does not exist", file)
		}
	}
	return nil
}

// runBackup snapshots the database before any write. A failed backup aborts
// the whole load.
func (l *Loader) runBackup(ctx context.Context) error {
	if l.cfg.BackupFolder == "" {
		return fmt.Errorf("%w: backup folder not specified", ErrBackupFailed)
	}
	name := time.Now().Format(utils.BackupTimestampFormat)
	restore, err := l.backup.Run(ctx, l.cfg.BackupFolder, name, utils.HostFromURI(l.cfg.URI))
	if err != nil {
		l.log.Error("Backup Neo4j failed, abort loading!")
		return fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	l.restoreCmd = restore
	return nil
}

// RestoreCommand returns the instructions for rolling back to the pre-load
// backup, or "" when no backup was taken.
func (l *Loader) RestoreCommand() string {
	return l.restoreCmd
}

// createIndexes makes sure every index the model declares exists. Index DDL
// cannot share a transaction with data writes, so it gets its own session.
func (l *Loader) createIndexes(ctx context.Context) error {
	session, err := l.db.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	created, err := graph.EnsureIndexes(ctx, tx, l.model.IndexSpecs(), l.log)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	l.stats.IndexesCreated = created
	return nil
}

// loadAll runs the wipe and both passes inside one session. In
// split-transactions mode each pass manages its own batched transactions;
// otherwise everything shares a single explicit transaction so a failure
// anywhere rolls the whole load back.
func (l *Loader) loadAll(ctx context.Context, files []string) error {
	session, err := l.db.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	if l.cfg.SplitTransactions {
		return l.runPasses(ctx, session, nil, files)
	}

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	if err := l.runPasses(ctx, session, tx, files); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			l.log.Error("Transaction rollback failed!", "error", rbErr)
		}
		l.dropPending()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		l.dropPending()
		return err
	}
	l.commitPending()
	return nil
}

// runPasses wipes if asked, loads every file's nodes, then every file's
// relationships. Delete mode skips the relationship pass: the cascades
// already removed the edges.
func (l *Loader) runPasses(ctx context.Context, session graph.Session, tx graph.Transaction, files []string) error {
	if l.cfg.WipeDB {
		if tx == nil {
			if err := l.wipeSplit(ctx, session); err != nil {
				return err
			}
		} else if err := l.wipe(ctx, tx); err != nil {
			return err
		}
	}
	for _, file := range files {
		if err := l.loadNodes(ctx, session, tx, file); err != nil {
			return err
		}
	}
	if l.cfg.Mode == types.DeleteMode {
		return nil
	}
	for _, file := range files {
		if err := l.loadRelationships(ctx, session, tx, file); err != nil {
			return err
		}
	}
	return nil
}

// wipe removes every node and relationship in one statement, inside the
// load's transaction.
func (l *Loader) wipe(ctx context.Context, run graph.Runner) error {
	res, err := run.Run(ctx, graph.WipeStatement(), nil)
	if err != nil {
		return err
	}
	l.pending.AddDeleted("", res.Counters.NodesDeleted, res.Counters.RelationshipsDeleted)
	l.log.Info(fmt.Sprintf("%d nodes deleted!", res.Counters.NodesDeleted))
	l.log.Info(fmt.Sprintf("%d relationships deleted!", res.Counters.RelationshipsDeleted))
	return nil
}

// wipeSplit removes everything in batches, each in its own transaction. It
// stops only after two consecutive batches delete nothing: a single empty
// batch can race a concurrent writer.
func (l *Loader) wipeSplit(ctx context.Context, session graph.Session) error {
	emptyBatches := 0
	nodesDeleted := 0
	relationshipsDeleted := 0
	for emptyBatches < 2 {
		tx, err := session.BeginTransaction(ctx)
		if err != nil {
			return err
		}
		res, err := tx.Run(ctx, graph.WipeBatchStatement(), nil)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		nodes, rels := res.Counters.NodesDeleted, res.Counters.RelationshipsDeleted
		nodesDeleted += nodes
		relationshipsDeleted += rels
		l.stats.AddDeleted("", nodes, rels)
		if nodes == 0 && rels == 0 {
			emptyBatches++
			continue
		}
		emptyBatches = 0
		l.log.Info(fmt.Sprintf("%d nodes deleted...", nodesDeleted))
		l.log.Info(fmt.Sprintf("%d relationships deleted...", relationshipsDeleted))
	}
	l.log.Info(fmt.Sprintf("%d nodes deleted!", nodesDeleted))
	l.log.Info(fmt.Sprintf("%d relationships deleted!", relationshipsDeleted))
	return nil
}

// commitPending folds counters for freshly committed writes into the run
// totals.
func (l *Loader) commitPending() {
	l.stats.Merge(l.pending)
	l.pending.Reset()
}

// dropPending discards counters for writes that rolled back.
func (l *Loader) dropPending() {
	l.pending.Reset()
}

// batcher hands the load passes their statement runner. In split mode it
// owns a transaction that commits and reopens every types.BatchSize rows,
// folding pending counters into the run totals at each commit; otherwise it
// passes the caller's transaction through untouched.
type batcher struct {
	loader  *Loader
	session graph.Session
	tx      graph.Transaction
	split   bool
	rows    int
}

func (l *Loader) newBatcher(ctx context.Context, session graph.Session, tx graph.Transaction) (*batcher, error) {
	b := &batcher{loader: l, session: session, tx: tx, split: l.cfg.SplitTransactions}
	if b.split {
		t, err := session.BeginTransaction(ctx)
		if err != nil {
			return nil, err
		}
		b.tx = t
	}
	return b, nil
}

// Runner returns the transaction statements should run on right now.
func (b *batcher) Runner() graph.Runner {
	return b.tx
}

// Advance counts one processed row, rotating the transaction at the batch
// boundary in split mode.
func (b *batcher) Advance(ctx context.Context, lineNum int) error {
	if !b.split {
		return nil
	}
	b.rows++
	if b.rows < types.BatchSize {
		return nil
	}
	if err := b.tx.Commit(ctx); err != nil {
		return err
	}
	b.loader.commitPending()
	b.loader.log.Info(fmt.Sprintf("%d rows loaded ...", lineNum-1))
	tx, err := b.session.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	b.tx = tx
	b.rows = 0
	return nil
}

// Finish commits the tail batch in split mode.
func (b *batcher) Finish(ctx context.Context) error {
	if !b.split {
		return nil
	}
	if err := b.tx.Commit(ctx); err != nil {
		return err
	}
	b.loader.commitPending()
	return nil
}

// Abort rolls back the current batch in split mode. In single-transaction
// mode the caller owns the rollback.
func (b *batcher) Abort(ctx context.Context) {
	if !b.split {
		return
	}
	_ = b.tx.Rollback(ctx)
	b.loader.dropPending()
}

func sortedStatKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
