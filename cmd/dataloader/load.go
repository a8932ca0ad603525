package dataloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	dataloader "github.com/CBIIT/CCDI-Inventory-Dataloader"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/alert"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/config"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/graph"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/logger"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/plugins"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/report"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/telemetry"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load TSV (TXT) files into Neo4j",
	Long: `Load every TSV (TXT) file in the dataset directory into Neo4j.

Each file is validated against the schema first, the database is backed up,
then a node pass and a relationship pass write the batch. Violations go to a
validation log file, one row per violation.

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	// Connection flags
	loadCmd.Flags().StringP("uri", "i", "", "Neo4j uri like bolt://12.34.56.78:7687")
	loadCmd.Flags().StringP("user", "u", "", "Neo4j user")
	loadCmd.Flags().StringP("password", "p", "", "Neo4j password (or set "+config.PasswordEnv+")")
	loadCmd.Flags().String("database", "", "Neo4j database name")

	// Dataset flags
	loadCmd.Flags().String("dataset", "", "Dataset directory")
	loadCmd.Flags().StringSliceP("schema", "s", nil, "Schema files, repeat for multiple")
	loadCmd.Flags().String("prop-file", "", "Property file, example is in config/props.example.yml")
	loadCmd.Flags().String("data-model-version", "", "Version for data model files")

	// Load behavior flags
	loadCmd.Flags().StringP("mode", "m", "", "Loading mode (upsert, new, delete)")
	loadCmd.Flags().BoolP("cheat-mode", "c", false, "Skip validations, aka. Cheat Mode")
	loadCmd.Flags().BoolP("dry-run", "d", false, "Validations only, skip loading")
	loadCmd.Flags().Bool("wipe-db", false, "Wipe out database before loading, you'll lose all data!")
	loadCmd.Flags().BoolP("yes", "y", false, "Automatically confirm deletion and database wiping")
	loadCmd.Flags().IntP("max-violations", "M", 0, "Max violations to report per file")
	loadCmd.Flags().Bool("split-transactions", false, "Commit every 1000 rows instead of once per load")
	loadCmd.Flags().String("repoint-policy", "", "When an upsert finds a relationship to a different parent: replace or fail")
	loadCmd.Flags().String("validation-log-dir", "", "Folder for validation log files")

	// Backup flags
	loadCmd.Flags().Bool("no-backup", false, "Skip backup step")
	loadCmd.Flags().String("backup-folder", "", "Location to store database backup")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	overrideLoadConfig(cmd, cfg)
	cfg.Normalize()

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	var handler slog.Handler = logger.NewConsoleHandler(os.Stderr, &logger.Options{Level: level})
	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize telemetry: %v\n", err)
		} else {
			handler = parquetHandler
			defer parquetHandler.Flush()
		}
	}
	log := slog.New(handler)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Neo4j.Password == "" {
		return fmt.Errorf("password not specified: use -p/--password or set the %s env var", config.PasswordEnv)
	}
	if cfg.DataModelVersion == "" {
		log.Warn("No data model version supplied, use --data-model-version or the config file")
	}
	log.Info(fmt.Sprintf("Loading into Neo4j at: %s", cfg.Neo4j.URI))

	files, err := utils.ListDataFiles(cfg.Dataset)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("No files to load.")
		return nil
	}

	// Destructive operations ask before touching the database.
	mode := cfg.Mode()
	if !cfg.NoConfirmation {
		in := bufio.NewReader(os.Stdin)
		if cfg.WipeDB && !confirmDeletion(in, "Wipe out entire Neo4j database before loading?") {
			return errors.New("wipe not confirmed")
		}
		if mode == types.DeleteMode && !confirmDeletion(in, "Delete all nodes and child nodes from data file?") {
			return errors.New("deletion not confirmed")
		}
	}

	model, err := schema.Load(cfg.PropFile, cfg.Schema, log)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	plugs, err := plugins.New(cfg.Plugins, model, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := graph.NewClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())
	// Dry runs never touch the database, so a dead one should not stop them.
	if !cfg.DryRun {
		if err := client.VerifyConnectivity(ctx); err != nil {
			if graph.IsAuthError(err) {
				log.Error("Wrong Neo4j username or password!")
			} else if graph.IsUnavailable(err) {
				log.Error(fmt.Sprintf("Neo4j service not available at: %q", cfg.Neo4j.URI))
			}
			return err
		}
	}

	alerter := alert.New(cfg.Alert)
	db := graph.WithBreaker(client, cfg.CircuitBreaker, alerter, log)

	rep, err := report.OpenFile(cfg.ValidationLogDir, report.DefaultPrefix)
	if err != nil {
		return err
	}
	defer rep.Close()
	log.Info(fmt.Sprintf("Validation results file: %s", rep.Path()))

	loader, err := dataloader.New(model, db, rep, plugs, log, dataloader.Config{
		Mode:              mode,
		RepointPolicy:     cfg.Repoint(),
		DataModelVersion:  cfg.DataModelVersion,
		CheatMode:         cfg.CheatMode,
		DryRun:            cfg.DryRun,
		WipeDB:            cfg.WipeDB,
		NoBackup:          cfg.NoBackup,
		BackupFolder:      cfg.BackupFolder,
		URI:               cfg.Neo4j.URI,
		SplitTransactions: cfg.SplitTransactions,
		MaxViolations:     cfg.MaxViolations,
	})
	if err != nil {
		return err
	}

	_, err = loader.Load(ctx, files)
	if restore := loader.RestoreCommand(); restore != "" {
		log.Info(restore)
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Error("User stopped the loading!")
		} else {
			log.Error("Data files database load failed")
		}
		return err
	}
	log.Info("Data files database load success")
	return nil
}

func overrideLoadConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Connection flags
	if flags.Changed("uri") {
		cfg.Neo4j.URI, _ = flags.GetString("uri")
	}
	if flags.Changed("user") {
		cfg.Neo4j.User, _ = flags.GetString("user")
	}
	if flags.Changed("password") {
		cfg.Neo4j.Password, _ = flags.GetString("password")
	}
	if flags.Changed("database") {
		cfg.Neo4j.Database, _ = flags.GetString("database")
	}

	// Dataset flags
	if flags.Changed("dataset") {
		cfg.Dataset, _ = flags.GetString("dataset")
	}
	if flags.Changed("schema") {
		cfg.Schema, _ = flags.GetStringSlice("schema")
	}
	if flags.Changed("prop-file") {
		cfg.PropFile, _ = flags.GetString("prop-file")
	}
	if flags.Changed("data-model-version") {
		cfg.DataModelVersion, _ = flags.GetString("data-model-version")
	}

	// Load behavior flags
	if flags.Changed("mode") {
		cfg.LoadingMode, _ = flags.GetString("mode")
	}
	if flags.Changed("cheat-mode") {
		cfg.CheatMode, _ = flags.GetBool("cheat-mode")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("wipe-db") {
		cfg.WipeDB, _ = flags.GetBool("wipe-db")
	}
	if flags.Changed("yes") {
		cfg.NoConfirmation, _ = flags.GetBool("yes")
	}
	if flags.Changed("max-violations") {
		cfg.MaxViolations, _ = flags.GetInt("max-violations")
	}
	if flags.Changed("split-transactions") {
		cfg.SplitTransactions, _ = flags.GetBool("split-transactions")
	}
	if flags.Changed("repoint-policy") {
		cfg.RepointPolicy, _ = flags.GetString("repoint-policy")
	}
	if flags.Changed("validation-log-dir") {
		cfg.ValidationLogDir, _ = flags.GetString("validation-log-dir")
	}

	// Backup flags
	if flags.Changed("no-backup") {
		cfg.NoBackup, _ = flags.GetBool("no-backup")
	}
	if flags.Changed("backup-folder") {
		cfg.BackupFolder, _ = flags.GetString("backup-folder")
	}
}

// confirmDeletion prompts for the word yes before a destructive operation
// proceeds.
func confirmDeletion(in *bufio.Reader, message string) bool {
	fmt.Println(message)
	fmt.Print(`Type "yes" and press enter to proceed (You'll LOSE DATA!!!), press enter to cancel:`)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(line)) == "yes"
}
