package engine

import "github.com/roach88/scanlog/internal/model"

// statusDerived marks a transition whose target depends on the record value.
const statusDerived model.Status = "DERIVED"

// transitions is the {status x kind -> status} table. Every status reacts the
// same way today; the table keeps the rule visible and testable.
var transitions = map[model.Status]map[model.MutationKind]model.Status{
	model.StatusActive: {
		model.KindEdit:    model.StatusEdited,
		model.KindDelete:  model.StatusDeleted,
		model.KindRestore: statusDerived,
	},
	model.StatusEdited: {
		model.KindEdit:    model.StatusEdited,
		model.KindDelete:  model.StatusDeleted,
		model.KindRestore: statusDerived,
	},
	model.StatusDeleted: {
		model.KindEdit:    model.StatusEdited,
		model.KindDelete:  model.StatusDeleted,
		model.KindRestore: statusDerived,
	},
}

// Transition returns the status reached from `from` on an event of `kind`.
// diverged reports whether the record's value (after the event) differs from
// its original. ok is false for an unknown status or kind.
func Transition(from model.Status, kind model.MutationKind, diverged bool) (to model.Status, ok bool) {
	row, ok := transitions[from]
	if !ok {
		return from, false
	}
	to, ok = row[kind]
	if !ok {
		return from, false
	}
	if to == statusDerived {
		if diverged {
			return model.StatusEdited, true
		}
		return model.StatusActive, true
	}
	return to, true
}

// Apply returns s after applying m. m.RecordID is not checked.
// Events of an unknown kind leave s unchanged.
func Apply(s model.RecordState, m model.Mutation) model.RecordState {
	next := s
	if m.Kind == model.KindEdit {
		next.CurrentValue = m.NewValue
	}

	status, ok := Transition(s.Status, m.Kind, next.Diverged())
	if !ok {
		return s
	}
	next.Status = status
	next.LastMutationAt = m.CreatedAt
	return next
}
