package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// ColumnValue pairs an offending column with its cell value for the
// validation log.
type ColumnValue struct {
	Column string
	Value  string
}

// ValidationResult is the outcome of validating one row against the model.
type ValidationResult struct {
	// OK is false when the row has error-level violations.
	OK bool
	// Warning is true when non-fatal issues were found.
	Warning bool
	// Messages are human-readable descriptions for the console log.
	Messages []string
	// DataViolations lists own-property violations (Invalid Value records).
	DataViolations []ColumnValue
	// RelViolations lists edge-property violations (Invalid Relationship
	// records).
	RelViolations []ColumnValue
	// UndefinedRels lists parent pointers with no declared relationship
	// (Undefined relationship records, fatal).
	UndefinedRels []ColumnValue
}

// ValidateNode checks one raw row of the given kind against the model:
// required properties present, values parseable as their declared types,
// enum membership, numeric bounds, and every parent pointer backed by a
// declared relationship. Unknown own properties are the header check's
// concern and pass through here.
func (m *Model) ValidateNode(kind string, record types.RawRecord) *ValidationResult {
	res := &ValidationResult{OK: true}

	node, ok := m.nodes[kind]
	if !ok {
		res.OK = false
		res.Messages = append(res.Messages,
			fmt.Sprintf("node kind %q not defined in the model", kind))
		res.DataViolations = append(res.DataViolations,
			ColumnValue{Column: types.KindColumn, Value: kind})
		return res
	}

	for _, name := range sortedKeys(node.Props) {
		def := node.Props[name]
		if !def.Required {
			continue
		}
		if strings.TrimSpace(record[name]) == "" {
			res.OK = false
			res.Messages = append(res.Messages,
				fmt.Sprintf("required property %q of %q is missing", name, kind))
			res.DataViolations = append(res.DataViolations,
				ColumnValue{Column: name, Value: record[name]})
		}
	}

	for _, column := range sortedKeys(record) {
		value := strings.TrimSpace(record[column])
		switch {
		case column == types.KindColumn:

		case types.IsParentPointer(column):
			parentKind, _ := types.SplitParentPointer(column)
			if _, found := m.Relationship(kind, parentKind); !found {
				res.OK = false
				res.Messages = append(res.Messages,
					fmt.Sprintf("no relationship from %q to %q in the model", kind, parentKind))
				res.UndefinedRels = append(res.UndefinedRels,
					ColumnValue{Column: column, Value: value})
			}

		case m.HasRelPropDelimiter(column):
			label, prop, declared := m.SplitRelProp(column)
			if !declared {
				res.Warning = true
				res.Messages = append(res.Messages,
					fmt.Sprintf("column %q names no declared relationship, ignored", column))
				continue
			}
			def, hasDef := m.relationships[label].Props[prop]
			if !hasDef || value == "" {
				continue
			}
			if problem := checkValue(def, value); problem != "" {
				res.OK = false
				res.Messages = append(res.Messages,
					fmt.Sprintf("edge property %s: %s", column, problem))
				res.RelViolations = append(res.RelViolations,
					ColumnValue{Column: column, Value: value})
			}

		default:
			def, declared := node.Props[column]
			if !declared || value == "" {
				continue
			}
			if problem := checkValue(def, value); problem != "" {
				res.OK = false
				res.Messages = append(res.Messages,
					fmt.Sprintf("property %s: %s", column, problem))
				res.DataViolations = append(res.DataViolations,
					ColumnValue{Column: column, Value: record[column]})
			}
		}
	}
	return res
}

// checkValue reports why value violates def, empty when it passes.
func checkValue(def *PropDef, value string) string {
	switch def.Type {
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Sprintf("%q is not an integer", value)
		}
		if msg := checkBounds(def, float64(n)); msg != "" {
			return msg
		}
	case TypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Sprintf("%q is not a number", value)
		}
		if msg := checkBounds(def, f); msg != "" {
			return msg
		}
	case TypeBoolean:
		if _, ok := utils.ParseLooseBool(value); !ok {
			return fmt.Sprintf("%q is not a boolean", value)
		}
	case TypeDate:
		if _, err := utils.ReformatDate(value); err != nil {
			return fmt.Sprintf("%q is not a date", value)
		}
	case TypeDateTime:
		if _, err := utils.ReformatDateTime(value); err != nil {
			return fmt.Sprintf("%q is not a datetime", value)
		}
	}
	if def.Enum != nil {
		if _, ok := def.Enum[value]; !ok {
			return fmt.Sprintf("%q is not an allowed value", value)
		}
	}
	return ""
}

func checkBounds(def *PropDef, v float64) string {
	if def.HasMin && v < def.Min {
		return fmt.Sprintf("%v is below the minimum %v", v, def.Min)
	}
	if def.HasMax && v > def.Max {
		return fmt.Sprintf("%v is above the maximum %v", v, def.Max)
	}
	return ""
}
