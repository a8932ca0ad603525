// Package schema parses the YAML data model and properties documents and
// answers every model question the loader asks: declared kinds and their
// properties, relationship lookups between kinds, identity fields, UUIDv5
// namespaces, index declarations, and per-row validation.
//
// A dataset is described by two document families: one or more model files
// (Nodes, Relationships, PropDefinitions) merged in order, and a single
// properties file (id_fields, indexes, save_parent_id, domain, delimiters).
package schema
