package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestDetectEncoding(t *testing.T) {
	utf8File := writeTempFile(t, "utf8.txt", []byte("type\tcase_id\n"))
	enc, err := DetectEncoding(utf8File)
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	// 0xE9 is "é" in windows-1252 and an invalid UTF-8 sequence.
	cp1252File := writeTempFile(t, "cp1252.txt", []byte{'t', 'y', 'p', 'e', '\t', 0xE9, '\n'})
	enc, err = DetectEncoding(cp1252File)
	require.NoError(t, err)
	assert.Equal(t, EncodingWindows1252, enc)

	// Invalid bytes after the first line still flip the whole file.
	lateFile := writeTempFile(t, "late.txt", append([]byte("type\tcase_id\n"), 0xE9, '\n'))
	enc, err = DetectEncoding(lateFile)
	require.NoError(t, err)
	assert.Equal(t, EncodingWindows1252, enc)

	_, err = DetectEncoding(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestOpenDataFileDecodesWindows1252(t *testing.T) {
	path := writeTempFile(t, "cp1252.txt", []byte{0xE9, 't', 'u', 'd', 'e', '\n'})

	r, enc, err := OpenDataFile(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, EncodingWindows1252, enc)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "étude\n", string(content))
}

func TestOpenDataFilePassesThroughUTF8(t *testing.T) {
	path := writeTempFile(t, "utf8.txt", []byte("étude\n"))

	r, enc, err := OpenDataFile(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, EncodingUTF8, enc)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "étude\n", string(content))
}
