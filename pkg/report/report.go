// Package report writes the tab-delimited validation report for one load
// run: a banner naming the batch, one row per violation, and a Done. marker
// when the load succeeds. The layout is one row per violation so the file
// opens cleanly in a spreadsheet.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// Delimiter separates report columns.
const Delimiter = "\t"

// DefaultPrefix names report files when no other prefix is configured.
const DefaultPrefix = "inventory_validation"

var columns = []string{"Filename", "LineNumber", "OffendingColumn", "OffendingValue", "OffendingReason"}

// Writer emits one load's validation report.
type Writer struct {
	w    io.Writer
	path string
}

// New wraps an io.Writer, used by tests and by callers that manage their own
// files.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// OpenFile creates a timestamped report file under dir, creating dir if
// needed.
func OpenFile(dir, prefix string) (*Writer, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create validation log folder: %w", err)
	}
	name := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format(utils.BackupTimestampFormat))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation log file: %w", err)
	}
	return &Writer{w: f, path: path}, nil
}

// Path returns the report file path, or "" when writing to a plain writer.
func (r *Writer) Path() string {
	return r.path
}

// Banner writes the run header: the data model version, the batch file list
// one per line, and the column header row.
func (r *Writer) Banner(dataModelVersion string, files []string) error {
	lines := make([]string, 0, len(files)+3)
	lines = append(lines, "DataModelVersion: "+dataModelVersion, "BatchFilenames")
	lines = append(lines, files...)
	lines = append(lines, strings.Join(columns, Delimiter))
	return r.writeLines(lines...)
}

// Record writes one violation row.
func (r *Writer) Record(v types.Violation) error {
	return r.writeLines(strings.Join([]string{
		v.Filename,
		v.LineText(),
		v.Column,
		v.Value,
		v.ReasonText(),
	}, Delimiter))
}

// Separator marks the boundary between file validation errors and loading
// errors.
func (r *Writer) Separator() error {
	return r.writeLines(
		"################",
		"# No file validation errors. Loading validation errors below.",
		"################",
	)
}

// Done marks a fully successful load.
func (r *Writer) Done() error {
	return r.writeLines("Done.")
}

// Close flushes and closes the underlying file, if any.
func (r *Writer) Close() error {
	if c, ok := r.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Writer) writeLines(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return fmt.Errorf("failed to write validation report: %w", err)
		}
	}
	return nil
}
