// Package model defines the entities shared by every scanlog layer.
//
// Two kinds of rows are persisted:
//   - Record: an original scanned value, immutable after creation
//   - Mutation: an append-only EDIT, DELETE or RESTORE event against a record
//
// RecordState is derived by replaying mutations in id order (see
// internal/engine) and is never persisted or cached.
//
// # Ordering
//
// Mutation ids are the only ordering key. Timestamps are kept for display and
// audit; replay never reads them.
package model
