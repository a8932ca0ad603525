package dataloader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/backup"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/plugins"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/report"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// Config holds the knobs for one load run. The zero value upserts with
// single transactions, no wipe, and a mandatory backup.
type Config struct {
	// Mode selects upsert, new, or delete semantics.
	Mode types.LoadMode
	// RepointPolicy decides what an upsert does when a many_to_one or
	// one_to_one edge already points at a different parent: replace it with
	// a warning, or fail the pass.
	RepointPolicy types.RepointPolicy
	// DataModelVersion is stamped into the validation log banner.
	DataModelVersion string

	// CheatMode skips file validation entirely.
	CheatMode bool
	// DryRun stops after validation and backup without writing.
	DryRun bool
	// WipeDB detach-deletes the whole graph before loading.
	WipeDB bool

	// NoBackup skips the neo4j-admin backup. Incompatible with
	// SplitTransactions, because partially committed loads persist.
	NoBackup bool
	// BackupFolder is where backup sets are written.
	BackupFolder string
	// URI is the database address, used to pick the backup host.
	URI string

	// SplitTransactions commits every types.BatchSize rows instead of once
	// per pass.
	SplitTransactions bool
	// MaxViolations short-circuits validation of a file once this many
	// error-level violations accumulate.
	MaxViolations int
}

// Loader drives one dataset into the graph: validate, back up, index, wipe
// if asked, then the node pass and the edge pass. A Loader is not safe for
// concurrent use; one load owns one transaction at a time.
type Loader struct {
	model   *schema.Model
	db      graph.Database
	report  *report.Writer
	backup  *backup.Backup
	plugins []plugins.Plugin
	log     *slog.Logger
	cfg     Config

	// stats counts committed writes; pending counts writes in the open
	// transaction and folds into stats only when that transaction commits.
	stats   *types.Stats
	pending *types.Stats

	restoreCmd string
}

// New assembles a Loader. The report writer receives every validation
// record; pass plugins for missing-parent synthesis or post-load hooks.
func New(model *schema.Model, db graph.Database, rep *report.Writer, plugs []plugins.Plugin, log *slog.Logger, cfg Config) (*Loader, error) {
	if model == nil {
		return nil, errors.New("schema model is required")
	}
	if db == nil {
		return nil, errors.New("graph database is required")
	}
	if rep == nil {
		return nil, errors.New("validation report writer is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = types.UpsertMode
	}
	if cfg.RepointPolicy == "" {
		cfg.RepointPolicy = types.RepointReplace
	}
	if cfg.SplitTransactions && cfg.NoBackup {
		return nil, fmt.Errorf("split transactions require a backup: %w", ErrBackupRequired)
	}
	return &Loader{
		model:   model,
		db:      db,
		report:  rep,
		backup:  backup.New(log),
		plugins: plugs,
		log:     log,
		cfg:     cfg,
		stats:   types.NewStats(),
		pending: types.NewStats(),
	}, nil
}

// WithBackupRunner substitutes the command runner the pre-load backup shells
// out with. Tests use it to avoid invoking neo4j-admin.
func (l *Loader) WithBackupRunner(run backup.CommandRunner) *Loader {
	l.backup = backup.NewWithRunner(run, l.log)
	return l
}

// Stats returns the counters of the most recent load.
func (l *Loader) Stats() *types.Stats {
	return l.stats
}

var (
	// ErrValidationFailed is returned when one or more files fail validation.
	ErrValidationFailed = errors.New("file validation failed")
	// ErrBackupRequired is returned when a configuration skips the backup a
	// mode demands.
	ErrBackupRequired = errors.New("backup required")
	// ErrBackupFailed is returned when the pre-load backup cannot be taken.
	ErrBackupFailed = errors.New("backup failed")
	// ErrMissingID is returned when a row carries no identity in its id field.
	ErrMissingID = errors.New("no ids found")
	// ErrNodeExists is returned in new mode when a node id is already taken.
	ErrNodeExists = errors.New("node exists")
	// ErrRelationshipExists is returned in new mode when the child already
	// has an edge of the label.
	ErrRelationshipExists = errors.New("relationship already exists")
	// ErrUndefinedRelationship is returned when a parent pointer names a
	// kind pair with no declared relationship.
	ErrUndefinedRelationship = errors.New("undefined relationship")
	// ErrMissingParents is returned when a row provides parent pointers but
	// none resolve to a node in the graph.
	ErrMissingParents = errors.New("no parents found")
	// ErrRepointBlocked is returned when an upsert would move an edge to a
	// different parent and the repoint policy is fail.
	ErrRepointBlocked = errors.New("relationship points at a different parent")
)
