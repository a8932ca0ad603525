package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReformatDate(t *testing.T) {
	cases := map[string]string{
		"2014-08-19":   "2014-08-19",
		"8/19/2014":    "2014-08-19",
		"08/19/2014":   "2014-08-19",
		"2014-8-19":    "2014-08-19",
		"Aug 19, 2014": "2014-08-19",
		"19-Aug-14":    "2014-08-19",
		" 2014-08-19 ": "2014-08-19",
	}
	for input, want := range cases {
		got, err := ReformatDate(input)
		assert.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ReformatDate("not a date")
	assert.Error(t, err)
	_, err = ReformatDate("2014-19-08")
	assert.Error(t, err)
}

func TestReformatDateTime(t *testing.T) {
	got, err := ReformatDateTime("2014-08-19 10:30:00")
	assert.NoError(t, err)
	assert.Equal(t, "2014-08-19T10:30:00Z", got)

	got, err = ReformatDateTime("2014-08-19T10:30:00Z")
	assert.NoError(t, err)
	assert.Equal(t, "2014-08-19T10:30:00Z", got)

	// Date-only input gets a midnight time component.
	got, err = ReformatDateTime("8/19/2014")
	assert.NoError(t, err)
	assert.Equal(t, "2014-08-19T00:00:00Z", got)

	_, err = ReformatDateTime("yesterday")
	assert.Error(t, err)
}

func TestParseLooseBool(t *testing.T) {
	cases := []struct {
		input   string
		want    bool
		matched bool
	}{
		{"Yes", true, true},
		{"TRUE", true, true},
		{"yes, confirmed", true, true},
		{"No", false, true},
		{"false", false, true},
		{"Not reported", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, c := range cases {
		got, matched := ParseLooseBool(c.input)
		assert.Equal(t, c.matched, matched, c.input)
		assert.Equal(t, c.want, got, c.input)
	}
}

func TestSplitListValues(t *testing.T) {
	assert.Equal(t, []string{"lung", "liver", "spleen"}, SplitListValues("lung; liver ;spleen", ";"))
	assert.Equal(t, []string{"lung"}, SplitListValues("lung", ";"))
	assert.Equal(t, []string{}, SplitListValues("  ;  ", ";"))
	assert.Equal(t, []string{}, SplitListValues("", ";"))
}

func TestStringMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", StringMD5(""))
	assert.Equal(t, StringMD5("abc"), StringMD5("abc"))
	assert.NotEqual(t, StringMD5("abc"), StringMD5("abd"))
}

func TestHostFromURI(t *testing.T) {
	assert.Equal(t, "localhost", HostFromURI("bolt://localhost:7687"))
	assert.Equal(t, "db.example.org", HostFromURI("neo4j+s://db.example.org:7687"))
	assert.Equal(t, "db.example.org", HostFromURI("bolt://db.example.org"))
	assert.Equal(t, "localhost", HostFromURI("localhost:7687"))
}

func TestListDataFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_case.txt", "a_study.txt", "sample.tsv", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("type\n"), 0644))
	}

	files, err := ListDataFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_study.txt"),
		filepath.Join(dir, "b_case.txt"),
		filepath.Join(dir, "sample.tsv"),
	}, files)
}
