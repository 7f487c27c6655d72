// Package store provides SQLite-backed durable storage for scanlog.
//
// Two append-mostly tables hold all data:
//   - qr_records: original scanned values, UNIQUE(qr_string) at insert time
//   - qr_mutations: the append-only EDIT/DELETE/RESTORE log ("ghost" table)
//
// Table and column names match databases written by the original scanner
// app, so an existing qr_data.db opens without conversion.
//
// # Ordering
//
//   - All reads ORDER BY id ASC; ids come from AUTOINCREMENT and are the only
//     replay order. Timestamps are display data.
//
// # Concurrency
//
//   - One SQLite connection; every insert also holds a writer mutex so ids
//     and uniqueness checks never interleave.
//   - Snapshot reads both tables in one read transaction.
//   - Maintenance holds a store-wide exclusive lock; nothing else runs while
//     a compaction repoints and deletes rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity on legacy schemas
package store
