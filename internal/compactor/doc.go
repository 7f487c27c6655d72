// Package compactor folds records that share a current value into one and
// shrinks the mutation log.
//
// Plan is pure: it takes records and mutations and returns the compacted
// tables plus a Report. It runs two passes:
//
//  1. Collision merge. Records whose current values are equal are merged into
//     the one with the smallest id (the keeper). The other members' mutations
//     are repointed to the keeper and the members are removed.
//  2. Redundancy sweep. Each surviving record's events are walked with a single
//     deleted/not-deleted flag; a DELETE while deleted, or a RESTORE while not
//     deleted, is dropped. EDIT is never dropped and clears the flag. Values
//     and deleted-ness survive the sweep; a dropped RESTORE may leave a record
//     EDITED where replay said ACTIVE. All drops happen after the full scan.
//
// Mutations that reference unknown records are left untouched and reported as
// orphans.
//
// Compactor applies a plan to a store: it holds the store's exclusive lock,
// writes a compressed backup, and commits every change in one transaction.
// A second run over compacted tables plans no changes.
package compactor
