package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DateFormat is the canonical storage layout for Date properties.
	DateFormat = "2006-01-02"
	// BackupTimestampFormat names backup sets taken before a load.
	BackupTimestampFormat = "20060102-150405"
)

// Input layouts accepted for Date properties. Go's unpadded layouts
// also match zero-padded input, so "1/2/2006" covers "01/02/2006".
var dateLayouts = []string{
	DateFormat,
	"1/2/2006",
	"2006-1-2",
	"Jan 2, 2006",
	"2-Jan-06",
}

// Additional layouts accepted for DateTime properties.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
}

var (
	truthyPattern = regexp.MustCompile(`(?i)yes|true`)
	falsyPattern  = regexp.MustCompile(`(?i)no|false`)
)

// ReformatDate parses value against the accepted Date layouts and
// returns it in the canonical YYYY-MM-DD form.
func ReformatDate(value string) (string, error) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateFormat), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", value)
}

// ReformatDateTime parses value against the accepted DateTime layouts,
// falling back to the plain Date layouts, and returns it in RFC 3339
// form. Date-only input gets a midnight UTC time component.
func ReformatDateTime(value string) (string, error) {
	v := strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(time.RFC3339), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unrecognized datetime %q", value)
}

// ParseLooseBool interprets free-form spreadsheet booleans. Any value
// containing "yes" or "true" (case-insensitive) is true, any containing
// "no" or "false" is false. The second return reports whether either
// pattern matched.
func ParseLooseBool(value string) (bool, bool) {
	if truthyPattern.MatchString(value) {
		return true, true
	}
	if falsyPattern.MatchString(value) {
		return false, true
	}
	return false, false
}

// SplitListValues splits a delimited cell into trimmed, non-empty items.
func SplitListValues(value, delimiter string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, delimiter) {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// StringMD5 returns the hex MD5 digest of s.
func StringMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HostFromURI extracts the host name from a bolt:// or neo4j:// URI.
func HostFromURI(uri string) string {
	rest := uri
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.IndexAny(rest, ":/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// ListDataFiles returns the paths of the .txt and .tsv files directly
// under dir. Text files come before tsv files, each group sorted.
func ListDataFiles(dir string) ([]string, error) {
	txt, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	tsv, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return nil, err
	}
	return append(txt, tsv...), nil
}
