// Package dataloader projects tab-separated biomedical data files into a
// Neo4j property graph whose shape is declared by an external YAML schema.
//
// Each input row becomes one node; columns whose header is spelled
// "parent_kind.parent_id_field" become outbound edges to previously loaded
// parent nodes, and columns containing the configured delimiter (default
// "$") attach properties to those edges. Loads run in two passes, nodes
// then edges, so a row may reference a parent defined in any file of the
// same dataset.
//
// # Basic Usage
//
// Create a loader from a parsed schema model and a database handle:
//
//	model, err := schema.Load("props.yml", []string{"model.yml"}, log)
//	if err != nil {
//		log.Error("schema", "error", err)
//		os.Exit(1)
//	}
//
//	db, err := graph.NewClient("bolt://localhost:7687", "neo4j", "password", "")
//	if err != nil {
//		log.Error("connect", "error", err)
//		os.Exit(1)
//	}
//	defer db.Close(ctx)
//
//	rep, err := report.OpenFile("tmp_validation", report.DefaultPrefix)
//	if err != nil {
//		log.Error("report", "error", err)
//		os.Exit(1)
//	}
//	defer rep.Close()
//
//	loader, err := dataloader.New(model, db, rep, nil, log, dataloader.Config{
//		Mode:          types.UpsertMode,
//		BackupFolder:  "/backups",
//		MaxViolations: 10,
//	})
//	if err != nil {
//		log.Error("loader", "error", err)
//		os.Exit(1)
//	}
//
//	stats, err := loader.Load(ctx, files)
//
// # Loading Modes
//
// Three modes select the write semantics:
//
//   - upsert: MERGE nodes and edges by id, updating existing ones
//   - new: CREATE only, aborting when a node or edge already exists
//   - delete: remove listed nodes and cascade to children with no other
//     parent
//
// # Validation
//
// Before any database write, every file is validated against the schema:
// header columns must be declared properties, parent pointers, or edge
// properties; cell values must parse as their declared types; duplicate
// ids within a file must carry identical properties. Violations are
// written to a tab-separated validation log (pkg/report) and the load
// aborts when any file fails.
//
// # Identity
//
// Every node carries a uuid property. Rows may supply one; otherwise it is
// derived as UUIDv5 over a kind-scoped namespace and either the explicit
// id value or a canonical serialization of the row's own properties, so
// reloading the same data always addresses the same nodes.
//
// # Transactions
//
// By default the whole load runs in one explicit transaction and rolls
// back entirely on failure. With split transactions enabled, the loader
// commits every 1000 rows; a database backup is mandatory in that mode
// because partial loads persist.
//
// # Architecture
//
//   - pkg/schema: YAML data model, property typing, identity namespaces
//   - pkg/graph: Neo4j driver wrapper, statement builders, index bookkeeping
//   - pkg/report: validation log writer
//   - pkg/plugins: load hooks (missing-parent synthesis, post-load work)
//   - pkg/backup: neo4j-admin shell-out before destructive loads
//   - pkg/types: shared row, mode, and counter types
package dataloader
