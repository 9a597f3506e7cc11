// Package store provides SQLite-backed persistence for document tables.
//
// A stored document is the flat image of a table.Table:
//   - documents: one row per database with its content hash
//   - nodes: one row per record, keyed by (doc, pre)
//   - names, texts, namespaces: the table's dictionaries by id
//
// Tables are written whole inside one transaction, so a reader sees either
// the previous or the new image. Record pages can be read by position
// without loading the table, since positions are the primary key.
//
// # Logical time
//
// created_seq and updated_seq hold values of the caller's logical clock.
// Listing order is by name, COLLATE BINARY, so output is deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cascade document drops to all dictionaries
package store
