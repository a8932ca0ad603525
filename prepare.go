package dataloader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/schema"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// cleanRecord strips surrounding whitespace from every column name and cell.
func cleanRecord(record types.RawRecord) types.RawRecord {
	cleaned := make(types.RawRecord, len(record))
	for key, value := range record {
		cleaned[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return cleaned
}

// prepareRow turns one raw row into a write-ready node: values coerced to
// their declared types, parent pointers and edge properties split off the
// own-property set, parent ids copied inline for kinds that save them, unit
// siblings expanded, and a uuid assigned when the row does not carry one.
func (l *Loader) prepareRow(record types.RawRecord) (*types.PreparedNode, error) {
	cleaned := cleanRecord(record)
	kind := cleaned[types.KindColumn]
	if kind == "" {
		return nil, fmt.Errorf("row has no %q column", types.KindColumn)
	}

	node := &types.PreparedNode{
		Kind:     kind,
		Props:    make(map[string]interface{}),
		RelProps: make(map[string]map[string]interface{}),
	}

	for _, column := range sortedColumns(cleaned) {
		if column == types.KindColumn {
			continue
		}
		value := cleaned[column]
		switch {
		case types.IsParentPointer(column):
			parentKind, parentField := types.SplitParentPointer(column)
			if strings.Count(column, ".") > 1 {
				l.log.Warn(fmt.Sprintf("Column header %q has multiple periods!", column))
			}
			node.Parents = append(node.Parents, types.ParentPointer{
				Column:  column,
				Kind:    parentKind,
				IDField: parentField,
				Value:   l.coerceValue(l.model.PropType(parentKind, parentField), value),
			})

		case l.model.HasRelPropDelimiter(column):
			label, prop, declared := l.model.SplitRelProp(column)
			propType := schema.TypeString
			if declared {
				if def, ok := l.model.RelProp(label, prop); ok {
					propType = def.Type
				}
			}
			if node.RelProps[label] == nil {
				node.RelProps[label] = make(map[string]interface{})
			}
			node.RelProps[label][prop] = l.coerceValue(propType, value)

		default:
			coerced := l.coerceValue(l.model.PropType(kind, column), value)
			node.Props[column] = coerced
			for name, extra := range l.model.ExtraProps(kind, column, coerced) {
				node.Props[name] = extra
			}
		}
	}

	if l.model.SavesParentID(kind) {
		for _, ptr := range node.Parents {
			field := ptr.IDField
			if _, taken := cleaned[field]; taken {
				combined := ptr.Kind + "_" + field
				l.log.Debug(fmt.Sprintf("%q field is in both current node and parent %q, use %s instead!",
					ptr.Column, ptr.Kind, combined))
				field = combined
			}
			node.Props[field] = ptr.Value
		}
	}

	node.IDField = l.model.IDField(kind)
	if _, ok := node.Props[types.UUIDProperty]; !ok {
		var idValue string
		if node.IDField != "" {
			idValue = formatValue(node.Props[node.IDField])
		}
		switch {
		case idValue == "":
			node.Props[types.UUIDProperty] = l.model.UUIDForNode(kind, signature(kind, node.Props))
		case node.IDField != types.UUIDProperty:
			node.Props[types.UUIDProperty] = l.model.UUIDForNode(kind, idValue)
		}
	}
	node.UUID = formatValue(node.Props[types.UUIDProperty])
	if node.IDField != "" {
		node.ID = formatValue(node.Props[node.IDField])
	}
	return node, nil
}

// coerceValue converts one trimmed cell to its declared type. Cells that do
// not parse become nil rather than landing typed-wrong in the graph; the
// validator reports them separately.
func (l *Loader) coerceValue(propType schema.PropType, value string) interface{} {
	switch propType {
	case schema.TypeBoolean:
		if b, ok := utils.ParseLooseBool(value); ok {
			return b
		}
		l.log.Debug(fmt.Sprintf("Unsupported Boolean value: %q", value))
		return nil
	case schema.TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case schema.TypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return f
	case schema.TypeArray:
		items := utils.SplitListValues(value, l.model.ListDelimiter())
		encoded, err := json.Marshal(items)
		if err != nil {
			return nil
		}
		return string(encoded)
	case schema.TypeDate:
		formatted, err := utils.ReformatDate(value)
		if err != nil {
			return nil
		}
		return formatted
	case schema.TypeDateTime:
		formatted, err := utils.ReformatDateTime(value)
		if err != nil {
			return nil
		}
		return formatted
	default:
		return value
	}
}

// signature canonicalizes a node's own properties for identity derivation:
// keys sorted, the kind included as the reserved type column, parent
// pointers and edge properties excluded. Rows differing only in parentage
// therefore derive the same uuid.
func signature(kind string, props map[string]interface{}) string {
	pairs := make(map[string]interface{}, len(props)+1)
	for key, value := range props {
		pairs[key] = value
	}
	pairs[types.KindColumn] = kind

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+formatValue(pairs[key]))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// formatValue renders a coerced value for signatures and log messages. Nil
// renders empty so absent and unparseable cells do not distinguish nodes.
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func sortedColumns(record types.RawRecord) []string {
	columns := make([]string, 0, len(record))
	for column := range record {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
