// Package utils provides utility functions shared across the loader.
//
// This package contains helper functions for various operations including:
//   - Date canonicalization for Date and DateTime properties (helpers.go)
//   - Loose boolean and list-cell parsing (helpers.go)
//   - Dataset file discovery (helpers.go)
//   - Input encoding detection and transparent windows-1252 decoding (encoding.go)
package utils
