// Package store provides SQLite-backed persistence for host documents.
//
// The store keeps two tables:
//   - documents: the latest accepted content of each actor document
//   - commits: an append-only log of every commit attempt, accepted or not
//
// # Critical Patterns
//
// Logical time only:
//   - Commit order uses the document's seq (logical clock), never timestamps
//   - ReadCommits orders by seq ASC, id ASC COLLATE BINARY
//
// Deterministic payloads:
//   - Data and commit payloads are RFC 8785 canonical JSON (ir.MarshalCanonical)
//   - Identical content always produces identical bytes on disk
//
// Idempotency:
//   - Commit ids are content-addressed (ir.CommitID); re-recording the same
//     attempt is silently ignored
//
// # Schema
//
// schema.sql creates the base tables. Later changes are appended to the
// migrations list and tracked with PRAGMA user_version; never edit an
// existing migration.
package store
