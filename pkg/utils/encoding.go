package utils

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding identifies the character encoding of an input file.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
)

// DetectEncoding reads the file at path and reports whether its content is
// valid UTF-8. Anything else is treated as windows-1252.
func DetectEncoding(path string) (Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return EncodingWindows1252, nil
	}
	return EncodingUTF8, nil
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error { return d.f.Close() }

// OpenDataFile opens the file at path for reading, transparently
// decoding windows-1252 content to UTF-8 when the file is not valid
// UTF-8.
func OpenDataFile(path string) (io.ReadCloser, Encoding, error) {
	enc, err := DetectEncoding(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	if enc == EncodingUTF8 {
		return f, enc, nil
	}
	return &decodedFile{
		Reader: charmap.Windows1252.NewDecoder().Reader(f),
		f:      f,
	}, enc, nil
}
