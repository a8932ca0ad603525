package dataloader

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// validateFiles runs the file validator over every input unless cheat mode
// is on. All files are checked even after one fails, so the validation log
// collects every violation in the dataset before the load aborts.
func (l *Loader) validateFiles(files []string) error {
	if l.cfg.CheatMode {
		l.log.Info("Cheat mode enabled, all validations skipped!")
		return nil
	}
	failed := false
	for _, file := range files {
		ok, err := l.validateFile(file)
		if err != nil {
			return err
		}
		if !ok {
			l.log.Error(fmt.Sprintf("Validating file %q failed!", file))
			failed = true
		}
	}
	if failed {
		return ErrValidationFailed
	}
	return nil
}

// validateFile checks one file against the model without touching the
// database: the header first, then every row for schema violations and
// duplicate ids. The boolean reports whether the file passed; the error is
// reserved for I/O failures.
func (l *Loader) validateFile(fileName string) (bool, error) {
	l.log.Info(fmt.Sprintf("Validating file %q ...", fileName))
	f, err := openTSV(fileName)
	if err != nil {
		return false, err
	}
	defer f.Close()

	type idRecord struct {
		signature string
		lines     []string
	}
	ids := make(map[string]*idRecord)
	headerChecked := false
	passed := true
	violations := 0

	for {
		record, lineNum, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}
		cleaned := cleanRecord(record)
		kind := cleaned[types.KindColumn]

		// The header is judged against the kind of the first data row.
		if !headerChecked {
			headerChecked = true
			if !l.checkHeader(kind, f.Columns()) {
				return false, nil
			}
		}

		idField := l.model.IDField(kind)
		nodeID := l.model.ID(kind, cleaned)
		if nodeID != "" {
			sig := l.propsSignature(cleaned)
			if seen, ok := ids[nodeID]; ok {
				if sig != seen.signature {
					passed = false
					l.log.Error(fmt.Sprintf("Invalid data at line %d: duplicate %s: %s, found in line: %s",
						lineNum, idField, nodeID, strings.Join(seen.lines, ", ")))
					if err := l.report.Record(types.Violation{
						Filename: fileName,
						Lines:    append([]string(nil), seen.lines...),
						Column:   idField,
						Value:    nodeID,
						Reason:   types.ReasonDuplicateID,
					}); err != nil {
						return false, err
					}
					seen.lines = append(seen.lines, strconv.Itoa(lineNum))
				} else {
					// Same id with identical properties is the same node
					// listed under multiple parents. Logged, loaded once.
					l.log.Debug(fmt.Sprintf("Duplicated data at line %d: duplicate %s: %s, found in line: %s",
						lineNum, idField, nodeID, strings.Join(seen.lines, ", ")))
					if err := l.report.Record(types.Violation{
						Filename: fileName,
						Lines:    append([]string(nil), seen.lines...),
						Column:   idField,
						Value:    nodeID,
						Reason:   types.ReasonDuplicateData,
					}); err != nil {
						return false, err
					}
				}
			} else {
				ids[nodeID] = &idRecord{signature: sig, lines: []string{strconv.Itoa(lineNum)}}
			}
		}

		result := l.model.ValidateNode(kind, cleaned)
		switch {
		case !result.OK:
			for _, msg := range result.Messages {
				l.log.Error(fmt.Sprintf("Invalid data at line %d: %q!", lineNum, msg))
			}
			if err := l.recordRowViolations(fileName, lineNum, result); err != nil {
				return false, err
			}
			passed = false
			violations++
			if l.cfg.MaxViolations > 0 && violations >= l.cfg.MaxViolations {
				return false, nil
			}
		case result.Warning:
			for _, msg := range result.Messages {
				l.log.Warn(fmt.Sprintf("Invalid data at line %d: %q!", lineNum, msg))
			}
			if err := l.recordRowViolations(fileName, lineNum, result); err != nil {
				return false, err
			}
		}
	}
	return passed, nil
}

// checkHeader confirms every column is a declared property of the row kind,
// a parent pointer whose parent-side property exists, an edge-property
// column of a declared relationship, or the reserved type column. Unknown
// own properties are warnings; broken parent pointers fail the file.
func (l *Loader) checkHeader(kind string, columns []string) bool {
	props, kindKnown := l.model.PropsForNode(kind)

	var unknown []string
	var badParents []string
	for _, column := range columns {
		column = strings.TrimSpace(column)
		switch {
		case column == types.KindColumn:

		case types.IsParentPointer(column):
			parentKind, parentField := types.SplitParentPointer(column)
			parentProps, ok := l.model.PropsForNode(parentKind)
			if !ok {
				badParents = append(badParents, column)
				continue
			}
			if _, ok := parentProps[parentField]; !ok {
				badParents = append(badParents, column)
			}

		case l.model.IsRelationshipProperty(column):
			// Edge-property columns of declared relationships are valid
			// headers; undeclared labels fall through to the unknown list.

		default:
			if !kindKnown {
				unknown = append(unknown, column)
				continue
			}
			if _, ok := props[column]; !ok {
				unknown = append(unknown, column)
			}
		}
	}

	for _, column := range unknown {
		l.log.Warn(fmt.Sprintf("Property: %q not found in data model", column))
	}
	if len(badParents) > 0 {
		for _, column := range badParents {
			l.log.Error(fmt.Sprintf("Parent pointer: %q not found in data model", column))
		}
		l.log.Error("Parent pointer not found in the data model, abort loading!")
		return false
	}
	return true
}

// recordRowViolations writes one validation-log record per violation the
// model found in a row.
func (l *Loader) recordRowViolations(fileName string, lineNum int, result *schema.ValidationResult) error {
	line := []string{strconv.Itoa(lineNum)}
	for _, v := range result.DataViolations {
		if err := l.report.Record(types.Violation{
			Filename: fileName, Lines: line, Column: v.Column, Value: v.Value,
			Reason: types.ReasonInvalidData,
		}); err != nil {
			return err
		}
	}
	for _, v := range result.RelViolations {
		if err := l.report.Record(types.Violation{
			Filename: fileName, Lines: line, Column: v.Column, Value: v.Value,
			Reason: types.ReasonInvalidRelationship,
		}); err != nil {
			return err
		}
	}
	for _, v := range result.UndefinedRels {
		if err := l.report.Record(types.Violation{
			Filename: fileName, Lines: line, Column: v.Column, Value: v.Value,
			Reason: types.ReasonUndefinedRelationship,
		}); err != nil {
			return err
		}
	}
	return nil
}

// propsSignature fingerprints a cleaned row's own-property cells for
// duplicate detection. Parent pointers and edge-property columns stay out,
// so the same node listed under different parents hashes identically.
func (l *Loader) propsSignature(record types.RawRecord) string {
	columns := make([]string, 0, len(record))
	for column := range record {
		if types.IsParentPointer(column) || l.model.HasRelPropDelimiter(column) {
			continue
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, column+": "+record[column])
	}
	return utils.StringMD5("{ " + strings.Join(parts, ", ") + " }")
}
