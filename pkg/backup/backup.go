// Package backup shells out to neo4j-admin to snapshot the database before a
// destructive load, and builds the restore instructions an operator needs to
// roll the load back.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes one external command. Tests substitute a recorder.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Backup drives neo4j-admin either locally or over ssh, depending on where
// the database lives.
type Backup struct {
	run CommandRunner
	log *slog.Logger
}

// New returns a Backup that runs commands on this host or over ssh.
func New(log *slog.Logger) *Backup {
	if log == nil {
		log = slog.Default()
	}
	return &Backup{run: execRunner, log: log}
}

// NewWithRunner returns a Backup using a custom command runner.
func NewWithRunner(run CommandRunner, log *slog.Logger) *Backup {
	if log == nil {
		log = slog.Default()
	}
	return &Backup{run: run, log: log}
}

func isLocal(address string) bool {
	return address == "localhost" || address == "127.0.0.1"
}

// Run snapshots the database into backupDir under name. The address decides
// whether neo4j-admin runs here or on the database host over ssh. It returns
// the restore instructions to print at the end of the load.
func (b *Backup) Run(ctx context.Context, backupDir, name, address string) (string, error) {
	banner := strings.Repeat("#", 160)
	neo4jCmd := fmt.Sprintf("neo4j-admin restore --from=%s/%s --force", backupDir, name)

	restore := "To restore DB from backup (to remove any changes caused by current data loading, run following commands:\n "
	restore += banner + "\n"

	cmds := [][]string{
		{"mkdir", "-p", backupDir},
		{"neo4j-admin", "backup", "--backup-dir=" + backupDir},
	}

	if isLocal(address) {
		restore += fmt.Sprintf("\t$ neo4j stop && %s && neo4j start\n", neo4jCmd)
		for _, cmd := range cmds {
			b.log.Info("running backup command", "command", strings.Join(cmd, " "))
			if err := b.run(ctx, cmd[0], cmd[1:]...); err != nil {
				return "", fmt.Errorf("backup command %q failed: %w", strings.Join(cmd, " "), err)
			}
		}
	} else {
		remoteRestore := fmt.Sprintf("sudo systemctl stop neo4j && %s && sudo systemctl start neo4j && exit", neo4jCmd)
		restore += fmt.Sprintf("\t$ echo \"%s\" | ssh -t %s sudo su - neo4j\n", remoteRestore, address)
		for _, cmd := range cmds {
			remote := append([]string{address, "-o", "StrictHostKeyChecking=no"}, cmd...)
			b.log.Info("running backup command", "command", "ssh "+strings.Join(remote, " "))
			if err := b.run(ctx, "ssh", remote...); err != nil {
				return "", fmt.Errorf("remote backup command %q failed: %w", strings.Join(cmd, " "), err)
			}
		}
	}

	restore += banner
	return restore, nil
}
