package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertNodeStatement(t *testing.T) {
	stmt := UpsertNodeStatement("case", "case_id", []string{"uuid", "case_id", "crf_id"})
	expected := "MERGE (n:case { case_id: $case_id })" +
		" ON CREATE SET n.created = datetime(), n.crf_id = $crf_id, n.uuid = $uuid" +
		" ON MATCH SET n.updated = datetime(), n.crf_id = $crf_id, n.uuid = $uuid"
	assert.Equal(t, expected, stmt)

	t.Run("id only", func(t *testing.T) {
		stmt := UpsertNodeStatement("case", "case_id", []string{"case_id"})
		expected := "MERGE (n:case { case_id: $case_id })" +
			" ON CREATE SET n.created = datetime()" +
			" ON MATCH SET n.updated = datetime()"
		assert.Equal(t, expected, stmt)
	})
}

func TestCreateNodeStatement(t *testing.T) {
	stmt := CreateNodeStatement("case", []string{"uuid", "case_id"})
	assert.Equal(t, "CREATE (:case { case_id: $case_id, uuid: $uuid })", stmt)
}

func TestNodeExistsStatement(t *testing.T) {
	stmt := NodeExistsStatement("case", "case_id")
	assert.Equal(t, "MATCH (m:case { case_id: $case_id }) RETURN m", stmt)
}

func TestCurrentNodeStatement(t *testing.T) {
	stmt := CurrentNodeStatement("case", "case_id")
	assert.Equal(t, "MATCH (n:case { case_id: $case_id }) RETURN n", stmt)
}

func TestDetachDeleteStatement(t *testing.T) {
	stmt := DetachDeleteStatement("case", "case_id")
	assert.Equal(t, "MATCH (n:case { case_id: $case_id }) DETACH DELETE n", stmt)
}

func TestChildrenStatement(t *testing.T) {
	stmt := ChildrenStatement("case", "case_id")
	assert.Equal(t, "MATCH (n:case { case_id: $case_id })<--(m) RETURN m", stmt)
}

func TestChildrenWithSoleParentStatement(t *testing.T) {
	stmt := ChildrenWithSoleParentStatement("case", "case_id")
	assert.Equal(t, "MATCH (n:case { case_id: $case_id })<--(m) WHERE NOT (n)<--(m)-->() RETURN m", stmt)
}

func TestMergeRelationshipStatement(t *testing.T) {
	t.Run("with relationship properties", func(t *testing.T) {
		stmt := MergeRelationshipStatement("sample", "sample_id", "of_case", "case", "case_id", []string{"days_to_sample"})
		expected := "MATCH (m:case { case_id: $__parentID__ })" +
			" MATCH (n:sample { sample_id: $sample_id })" +
			" MERGE (n)-[r:of_case]->(m)" +
			" ON CREATE SET r.created = datetime(), r.days_to_sample = $days_to_sample" +
			" ON MATCH SET r.updated = datetime(), r.days_to_sample = $days_to_sample"
		assert.Equal(t, expected, stmt)
	})

	t.Run("without relationship properties", func(t *testing.T) {
		stmt := MergeRelationshipStatement("sample", "sample_id", "of_case", "case", "case_id", nil)
		expected := "MATCH (m:case { case_id: $__parentID__ })" +
			" MATCH (n:sample { sample_id: $sample_id })" +
			" MERGE (n)-[r:of_case]->(m)" +
			" ON CREATE SET r.created = datetime()" +
			" ON MATCH SET r.updated = datetime()"
		assert.Equal(t, expected, stmt)
	})
}

func TestOldParentStatement(t *testing.T) {
	stmt := OldParentStatement("sample", "sample_id", "of_case", "case", "case_id")
	expected := "MATCH (n:sample { sample_id: $sample_id })-[r:of_case]->(m:case) RETURN m.case_id AS parent_id"
	assert.Equal(t, expected, stmt)
}

func TestDeleteRelationshipStatement(t *testing.T) {
	stmt := DeleteRelationshipStatement("sample", "sample_id", "of_case", "case")
	assert.Equal(t, "MATCH (n:sample { sample_id: $sample_id })-[r:of_case]->(m:case) DELETE r", stmt)
}

func TestChildOfParentStatement(t *testing.T) {
	stmt := ChildOfParentStatement("sample", "of_case", "case", "case_id")
	assert.Equal(t, "MATCH (n:sample)-[r:of_case]->(m:case { case_id: $parent_id }) RETURN n", stmt)
}

func TestWipeStatements(t *testing.T) {
	assert.Equal(t, "MATCH (n) DETACH DELETE n", WipeStatement())
	assert.Equal(t, "MATCH (n) WITH n LIMIT 1000 DETACH DELETE n", WipeBatchStatement())
}

func TestCreateIndexStatement(t *testing.T) {
	assert.Equal(t, "CREATE INDEX FOR (n:case) ON (n.case_id)", CreateIndexStatement("case", []string{"case_id"}))
	// Composite indexes keep the declared property order.
	assert.Equal(t, "CREATE INDEX FOR (n:case) ON (n.case_id, n.breed)", CreateIndexStatement("case", []string{"case_id", "breed"}))
}
