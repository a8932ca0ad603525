package dataloader

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// tsvFile iterates the data rows of one tab-separated input file. Line
// numbers count the header as line 1, so the first data row is 2, matching
// the numbers written to the validation log.
type tsvFile struct {
	name    string
	f       io.ReadCloser
	r       *csv.Reader
	header  []string
	lineNum int
}

// openTSV opens a data file, sniffing the encoding and reading the header
// row. Files that are not valid UTF-8 are decoded as windows-1252.
func openTSV(path string) (*tsvFile, error) {
	f, _, err := utils.OpenDataFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("file %s has no header row", path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return &tsvFile{name: path, f: f, r: r, header: header, lineNum: 1}, nil
}

// Columns returns the header row.
func (t *tsvFile) Columns() []string {
	return t.header
}

// Next returns the next data row keyed by header column along with its line
// number, or io.EOF after the last row. Rows shorter than the header fill
// the missing columns with empty strings; extra cells are dropped.
func (t *tsvFile) Next() (types.RawRecord, int, error) {
	row, err := t.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, t.lineNum, io.EOF
		}
		return nil, t.lineNum, fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	t.lineNum++

	record := make(types.RawRecord, len(t.header))
	for i, column := range t.header {
		if i < len(row) {
			record[column] = row[i]
		} else {
			record[column] = ""
		}
	}
	return record, t.lineNum, nil
}

func (t *tsvFile) Close() error {
	return t.f.Close()
}
