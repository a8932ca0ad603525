package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

func TestPrepareRowBasic(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":    "case",
		"case_id": " C1 ",
		"breed":   "Poodle",
	})
	require.NoError(t, err)

	assert.Equal(t, "case", node.Kind)
	assert.Equal(t, "case_id", node.IDField)
	assert.Equal(t, "C1", node.ID)
	assert.Equal(t, "C1", node.Props["case_id"])
	assert.Equal(t, "Poodle", node.Props["breed"])
	assert.Equal(t, l.model.UUIDForNode("case", "C1"), node.UUID)
	assert.Equal(t, node.UUID, node.Props[types.UUIDProperty])
	assert.Empty(t, node.Parents)
	assert.Empty(t, node.RelProps)
}

func TestPrepareRowCoercion(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":            "case",
		"case_id":         "C2",
		"days_to_birth":   "300",
		"weight":          "24.5",
		"neutered":        "Yes",
		"enrollment_date": "1/6/2019",
		"crf_ids":         "a1;b2; ",
		"tumor_size":      "2.5",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300), node.Props["days_to_birth"])
	assert.Equal(t, 24.5, node.Props["weight"])
	assert.Equal(t, true, node.Props["neutered"])
	assert.Equal(t, "2019-01-06", node.Props["enrollment_date"])
	assert.Equal(t, `["a1","b2"]`, node.Props["crf_ids"])
	assert.Equal(t, 2.5, node.Props["tumor_size"])
	assert.Equal(t, "cm", node.Props["tumor_size_unit"])
}

func TestPrepareRowUnparseableValuesBecomeNil(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":            "case",
		"case_id":         "C3",
		"days_to_birth":   "unknown",
		"weight":          "heavy",
		"neutered":        "maybe",
		"enrollment_date": "sometime",
	})
	require.NoError(t, err)

	assert.Nil(t, node.Props["days_to_birth"])
	assert.Nil(t, node.Props["weight"])
	assert.Nil(t, node.Props["neutered"])
	assert.Nil(t, node.Props["enrollment_date"])
}

func TestPrepareRowParentPointer(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":         "sample",
		"sample_id":    "S1",
		"case.case_id": "C1",
	})
	require.NoError(t, err)

	require.Len(t, node.Parents, 1)
	ptr := node.Parents[0]
	assert.Equal(t, "case.case_id", ptr.Column)
	assert.Equal(t, "case", ptr.Kind)
	assert.Equal(t, "case_id", ptr.IDField)
	assert.Equal(t, "C1", ptr.Value)

	_, inProps := node.Props["case.case_id"]
	assert.False(t, inProps, "parent pointers must not become own properties")
}

func TestPrepareRowRelationshipProperties(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":                   "sample",
		"sample_id":              "S1",
		"case.case_id":           "C1",
		"of_case$days_to_sample": "12",
	})
	require.NoError(t, err)

	require.Contains(t, node.RelProps, "of_case")
	assert.Equal(t, int64(12), node.RelProps["of_case"]["days_to_sample"])

	_, inProps := node.Props["of_case$days_to_sample"]
	assert.False(t, inProps, "edge properties must not become own properties")
}

func TestPrepareRowUUIDFromSignature(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	// Rows without an explicit id derive identity from their own
	// properties; parentage must not distinguish them.
	a, err := l.prepareRow(types.RawRecord{
		"type":         "sample",
		"sample_id":    "",
		"sample_site":  "Lung",
		"case.case_id": "C1",
	})
	require.NoError(t, err)
	b, err := l.prepareRow(types.RawRecord{
		"type":         "sample",
		"sample_id":    "",
		"sample_site":  "Lung",
		"case.case_id": "C2",
	})
	require.NoError(t, err)

	assert.Empty(t, a.ID)
	assert.NotEmpty(t, a.UUID)
	assert.Equal(t, a.UUID, b.UUID, "identity must ignore parent pointers")

	c, err := l.prepareRow(types.RawRecord{
		"type":         "sample",
		"sample_id":    "",
		"sample_site":  "Liver",
		"case.case_id": "C1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.UUID, c.UUID, "identity must track own properties")
}

func TestPrepareRowMissingKind(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	_, err := l.prepareRow(types.RawRecord{"case_id": "C1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"type"`)
}

func TestPrepareRowExplicitUUIDKept(t *testing.T) {
	l, _ := newTestLoader(t, Config{}, &scriptedDB{})

	node, err := l.prepareRow(types.RawRecord{
		"type":    "case",
		"case_id": "C1",
		"uuid":    "11111111-2222-3333-4444-555555555555",
	})
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", node.UUID)
}

func TestSignatureCanonicalForm(t *testing.T) {
	got := signature("case", map[string]interface{}{
		"breed":   "Poodle",
		"case_id": "C1",
	})
	assert.Equal(t, "{ breed: Poodle, case_id: C1, type: case }", got)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "C1", formatValue("C1"))
	assert.Equal(t, "300", formatValue(int64(300)))
	assert.Equal(t, "true", formatValue(true))
}
