// Package ledger is the service layer over the record store.
//
// Every read builds the current state from a fresh snapshot: nothing derived
// from the mutation log is cached between calls. Scan runs the duplicate check
// and the insert under the store's writer lock, so two scans of the same new
// value cannot both be accepted.
package ledger
