// Package session owns a store and the tables loaded from it, and runs
// queries and updates against them.
//
// A Session loads every stored document when it is opened. Queries run
// under a read lock that is held until the Result is closed; updates take
// the write lock, mutate the in-memory table and persist it before
// returning. A failed write reloads the table from the store, so memory
// and disk never diverge.
//
// Every write is stamped with a value of the session's logical clock,
// which resumes from the largest value in the store. Query results carry
// a UUIDv7 id used to correlate log lines.
//
// Compiled queries are cached by source text in an LRU cache. A compiled
// query does not reference any table, so updates never invalidate it.
package session
