package types

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyKind     = errors.New("node kind cannot be empty")
	ErrEmptyID       = errors.New("node id cannot be empty")
	ErrEmptyIDField  = errors.New("node kind declares no id field")
	ErrUnknownMode   = errors.New("unknown loading mode")
	ErrUnknownPolicy = errors.New("unknown repoint policy")
)

// Reserved column and property names shared by every input file.
const (
	// KindColumn is the mandatory header column carrying the node kind.
	KindColumn = "type"
	// UUIDProperty holds the derived or supplied node identity.
	UUIDProperty = "uuid"
	// CreatedProperty and UpdatedProperty are stamped by MERGE branches.
	CreatedProperty = "created"
	UpdatedProperty = "updated"
)

// BatchSize is the number of rows per transaction in split mode, and the
// wipe batch size.
const BatchSize = 1000

// Placeholders used in validation log records when a value is absent.
const (
	PlaceholderMissing = "!MISSING!"
	PlaceholderEmpty   = "!EMPTY!"
)

// LoadMode selects the write semantics for a load.
type LoadMode string

const (
	// UpsertMode merges nodes and edges by id, updating existing ones.
	UpsertMode LoadMode = "upsert"
	// NewMode creates nodes and edges, rejecting any that already exist.
	NewMode LoadMode = "new"
	// DeleteMode removes the listed nodes and cascades to exclusive children.
	DeleteMode LoadMode = "delete"
)

// ParseLoadMode validates a mode string from configuration or flags.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case UpsertMode:
		return UpsertMode, nil
	case NewMode:
		return NewMode, nil
	case DeleteMode:
		return DeleteMode, nil
	}
	return "", ErrUnknownMode
}

// RepointPolicy decides what happens when an upsert finds a one_to_one or
// many_to_one edge already linked to a different parent.
type RepointPolicy string

const (
	// RepointReplace deletes the old edge with a warning.
	RepointReplace RepointPolicy = "replace"
	// RepointFail aborts the pass instead.
	RepointFail RepointPolicy = "fail"
)

// ParseRepointPolicy validates a policy string from configuration.
func ParseRepointPolicy(s string) (RepointPolicy, error) {
	switch RepointPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return RepointReplace, nil
	case RepointReplace:
		return RepointReplace, nil
	case RepointFail:
		return RepointFail, nil
	}
	return "", ErrUnknownPolicy
}

// Reason identifies why a row was rejected or flagged. The wire strings are
// written verbatim to the validation log and form a closed set.
type Reason string

const (
	ReasonMissingID             Reason = "Missing ID."
	ReasonMissingIDField        Reason = "Missing ID field."
	ReasonDuplicateID           Reason = "Duplicate ID."
	ReasonDuplicateData         Reason = "Duplicate Data."
	ReasonInvalidData           Reason = "Invalid Value."
	ReasonInvalidRelationship   Reason = "Invalid Relationship."
	ReasonNodeExists            Reason = "Node exists."
	ReasonRelationshipExists    Reason = "Relationship already exists."
	ReasonUndefinedRelationship Reason = "Undefined relationship."
	ReasonMissingParents        Reason = "Missing parents."
)

// Violation is one validation log record. Lines is plural because duplicate
// id and duplicate data records report every line the id was seen on.
type Violation struct {
	Filename string
	Lines    []string
	Column   string
	Value    string
	Reason   Reason
	// Detail overrides the Reason wire string for free-form records such as
	// the missing-parents error, which reports a count.
	Detail string
}

// ReasonText returns the string written to the OffendingReason column.
func (v Violation) ReasonText() string {
	if v.Detail != "" {
		return v.Detail
	}
	return string(v.Reason)
}

// LineText returns the LineNumber column: one line, or a comma-joined list.
func (v Violation) LineText() string {
	return strings.Join(v.Lines, ",")
}

// IsParentPointer reports whether a column header encodes a parent pointer
// (parent_kind.parent_id_field).
func IsParentPointer(column string) bool {
	return strings.Contains(column, ".")
}

// SplitParentPointer splits a parent-pointer header into kind and id field.
// Headers with more than one period keep the first two segments; callers
// warn about the extras.
func SplitParentPointer(column string) (kind, idField string) {
	parts := strings.Split(column, ".")
	if len(parts) < 2 {
		return column, ""
	}
	return parts[0], parts[1]
}
