package types

// RawRecord is one TSV row keyed by header column, values untyped.
type RawRecord map[string]string

// ParentPointer is a parsed parent-pointer column on a prepared node.
type ParentPointer struct {
	// Column is the original header, e.g. "case.case_id".
	Column string
	// Kind is the parent node kind.
	Kind string
	// IDField is the parent-side id property name.
	IDField string
	// Value is the coerced cell value identifying the parent.
	Value interface{}
}

// PreparedNode is the output of row preparation: coerced own properties,
// guaranteed kind and identity, parsed parent pointers, and any edge
// properties keyed by edge label.
type PreparedNode struct {
	Kind    string
	IDField string
	ID      string
	UUID    string

	// Props holds every own property with coerced values, including the id
	// field, the uuid, and injected parent-id scalars. The kind column is
	// not included.
	Props map[string]interface{}

	Parents  []ParentPointer
	RelProps map[string]map[string]interface{}
}

// Validate checks the invariant every written node must satisfy: a declared
// kind and a non-empty identity in its id field.
func (n *PreparedNode) Validate() error {
	if n.Kind == "" {
		return ErrEmptyKind
	}
	if n.IDField == "" {
		return ErrEmptyIDField
	}
	if n.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// Parameters returns the query parameter map for this node's write
// statements: all own properties plus uuid.
func (n *PreparedNode) Parameters() map[string]interface{} {
	params := make(map[string]interface{}, len(n.Props)+1)
	for k, v := range n.Props {
		params[k] = v
	}
	if n.UUID != "" {
		params[UUIDProperty] = n.UUID
	}
	return params
}
