// Package engine rebuilds record state from the mutation log and classifies
// candidate values against it.
//
// Everything here is a pure function of its inputs: no I/O, no clocks, no
// package-level state. Callers pass a consistent snapshot of records and
// mutations (see store.Snapshot) and own the returned State.
//
// # Transitions
//
//	         EDIT      DELETE    RESTORE
//	ACTIVE   EDITED    DELETED   derived
//	EDITED   EDITED    DELETED   derived
//	DELETED  EDITED    DELETED   derived
//
// "derived" is EDITED when the current value differs from the original and
// ACTIVE otherwise. RESTORE never reverts the value; it only clears DELETED.
//
// # Duplicate Classification
//
// Resolve checks a candidate against every record's current value, including
// deleted and edited records, so values can never re-enter through history.
package engine
