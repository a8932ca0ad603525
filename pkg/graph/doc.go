// Package graph is the loader's port to the Neo4j database: connection
// management, explicit transactions, Cypher statement builders, and index
// bookkeeping. Callers talk to the Database/Session/Transaction interfaces
// so tests can substitute in-memory fakes for the bolt driver.
package graph
