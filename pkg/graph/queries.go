package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// ParentIDParam is the reserved query parameter carrying the parent's id
// value in relationship statements. The leading underscores keep it from
// colliding with data columns.
const ParentIDParam = "__parentID__"

// propAssignments renders "alias.p1 = $p1, alias.p2 = $p2" for the given
// properties in sorted order, skipping any property named in exclude.
func propAssignments(alias string, props []string, exclude string) string {
	sorted := make([]string, 0, len(props))
	for _, p := range props {
		if p == exclude {
			continue
		}
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	stmts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		stmts = append(stmts, fmt.Sprintf("%s.%s = $%s", alias, p, p))
	}
	return strings.Join(stmts, ", ")
}

// propMap renders "p1: $p1, p2: $p2" for the given properties in sorted
// order.
func propMap(props []string) string {
	sorted := make([]string, len(props))
	copy(sorted, props)
	sort.Strings(sorted)
	stmts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		stmts = append(stmts, fmt.Sprintf("%s: $%s", p, p))
	}
	return strings.Join(stmts, ", ")
}

// UpsertNodeStatement returns the MERGE statement for one node keyed by its
// id field. Every other property is set on both create and match, with the
// created/updated timestamps stamped by the database.
func UpsertNodeStatement(kind, idField string, props []string) string {
	assignments := propAssignments("n", props, idField)
	statement := fmt.Sprintf("MERGE (n:%s { %s: $%s })", kind, idField, idField)
	statement += fmt.Sprintf(" ON CREATE SET n.%s = datetime()", types.CreatedProperty)
	if assignments != "" {
		statement += ", " + assignments
	}
	statement += fmt.Sprintf(" ON MATCH SET n.%s = datetime()", types.UpdatedProperty)
	if assignments != "" {
		statement += ", " + assignments
	}
	return statement
}

// CreateNodeStatement returns the CREATE statement used in new mode, writing
// every property including the id field.
func CreateNodeStatement(kind string, props []string) string {
	return fmt.Sprintf("CREATE (:%s { %s })", kind, propMap(props))
}

// NodeExistsStatement probes for a node by id. The caller checks whether any
// record came back.
func NodeExistsStatement(kind, idField string) string {
	return fmt.Sprintf("MATCH (m:%s { %s: $%s }) RETURN m", kind, idField, idField)
}

// CurrentNodeStatement finds the node a data row describes.
func CurrentNodeStatement(kind, idField string) string {
	return fmt.Sprintf("MATCH (n:%s { %s: $%s }) RETURN n", kind, idField, idField)
}

// DetachDeleteStatement removes one node by id along with all of its
// relationships.
func DetachDeleteStatement(kind, idField string) string {
	return fmt.Sprintf("MATCH (n:%s { %s: $%s }) DETACH DELETE n", kind, idField, idField)
}

// ChildrenStatement finds every child of a node, regardless of how many
// other parents each child has.
func ChildrenStatement(kind, idField string) string {
	return fmt.Sprintf("MATCH (n:%s { %s: $%s })<--(m) RETURN m", kind, idField, idField)
}

// ChildrenWithSoleParentStatement finds children of a node that have no
// other parent, the candidates for cascade deletion.
func ChildrenWithSoleParentStatement(kind, idField string) string {
	return fmt.Sprintf("MATCH (n:%s { %s: $%s })<--(m) WHERE NOT (n)<--(m)-->() RETURN m", kind, idField, idField)
}

// MergeRelationshipStatement returns the MERGE statement for one edge from a
// child node to its parent, stamping created/updated and setting any edge
// properties on both create and match. The parent is matched by
// ParentIDParam, the child by its own id parameter.
func MergeRelationshipStatement(kind, idField, label, parentKind, parentIDField string, relProps []string) string {
	assignments := propAssignments("r", relProps, "")
	statement := fmt.Sprintf("MATCH (m:%s { %s: $%s })", parentKind, parentIDField, ParentIDParam)
	statement += fmt.Sprintf(" MATCH (n:%s { %s: $%s })", kind, idField, idField)
	statement += fmt.Sprintf(" MERGE (n)-[r:%s]->(m)", label)
	statement += fmt.Sprintf(" ON CREATE SET r.%s = datetime()", types.CreatedProperty)
	if assignments != "" {
		statement += ", " + assignments
	}
	statement += fmt.Sprintf(" ON MATCH SET r.%s = datetime()", types.UpdatedProperty)
	if assignments != "" {
		statement += ", " + assignments
	}
	return statement
}

func existingRelationshipPattern(kind, idField, label, parentKind string) string {
	return fmt.Sprintf("MATCH (n:%s { %s: $%s })-[r:%s]->(m:%s)", kind, idField, idField, label, parentKind)
}

// OldParentStatement finds the parent a child is currently attached to via
// label, returning its id as parent_id.
func OldParentStatement(kind, idField, label, parentKind, parentIDField string) string {
	return existingRelationshipPattern(kind, idField, label, parentKind) +
		fmt.Sprintf(" RETURN m.%s AS parent_id", parentIDField)
}

// DeleteRelationshipStatement removes the child's existing edge of the given
// label, used when a load repoints a child to a new parent.
func DeleteRelationshipStatement(kind, idField, label, parentKind string) string {
	return existingRelationshipPattern(kind, idField, label, parentKind) + " DELETE r"
}

// ChildOfParentStatement finds any child of the given kind already attached
// to a specific parent, used to enforce one_to_one multiplicity.
func ChildOfParentStatement(kind, label, parentKind, parentIDField string) string {
	return fmt.Sprintf("MATCH (n:%s)-[r:%s]->(m:%s { %s: $parent_id }) RETURN n",
		kind, label, parentKind, parentIDField)
}

// WipeStatement removes every node and relationship in one statement.
func WipeStatement() string {
	return "MATCH (n) DETACH DELETE n"
}

// WipeBatchStatement removes up to one batch of nodes, for wiping large
// databases in split-transactions mode without blowing the transaction
// memory limit.
func WipeBatchStatement() string {
	return fmt.Sprintf("MATCH (n) WITH n LIMIT %d DETACH DELETE n", types.BatchSize)
}

// ShowIndexesStatement lists existing indexes.
func ShowIndexesStatement() string {
	return "SHOW INDEXES"
}

// CreateIndexStatement creates a range index on one or more properties of a
// label.
func CreateIndexStatement(kind string, props []string) string {
	refs := make([]string, 0, len(props))
	for _, p := range props {
		refs = append(refs, "n."+p)
	}
	return fmt.Sprintf("CREATE INDEX FOR (n:%s) ON (%s)", kind, strings.Join(refs, ", "))
}
