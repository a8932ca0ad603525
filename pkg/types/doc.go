// Package types defines the core data types for the data loader.
//
// This package contains the fundamental types used throughout the loader:
//   - RawRecord / PreparedNode: a TSV row before and after preparation
//   - LoadMode: upsert, new, and delete write semantics
//   - Violation / Reason: validation log records and their closed reason set
//   - Stats: write counters threaded through the load protocol
//
// # Validation
//
// PreparedNode provides a Validate() method enforcing the identity
// invariant every written node must satisfy:
//
//	node := &types.PreparedNode{Kind: "case", IDField: "case_id", ID: "C1"}
//	if err := node.Validate(); err != nil {
//	    // Handle validation error
//	}
package types
