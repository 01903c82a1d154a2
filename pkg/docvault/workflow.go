package docvault

// TransitionTable lists, per current status, the statuses a document may move
// to. A transition absent from the table (including identity transitions) is
// rejected with ErrInvalidTransition. The table is configuration; the
// validation mechanism is fixed.
type TransitionTable map[Status][]Status

// Allows reports whether the table permits moving from one status to another.
func (t TransitionTable) Allows(from, to Status) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultTransitions returns the standard document approval workflow:
//
//	Private -> InWork
//	InWork -> UnderReview
//	UnderReview -> Released (approved) or InWork (rejected)
//	Released -> InWork (new working cycle) or Obsolete
//
// Obsolete is terminal under this table, though the engine itself enforces no
// terminal states.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		StatusPrivate:     {StatusInWork},
		StatusInWork:      {StatusUnderReview},
		StatusUnderReview: {StatusReleased, StatusInWork},
		StatusReleased:    {StatusInWork, StatusObsolete},
	}
}
