package docvault

import (
	"fmt"
	"strconv"
	"strings"
)

// InitialRevisionLabel is the label assigned to the first revision of every
// document, and the fallback when an existing label cannot be parsed.
const InitialRevisionLabel = "A.01"

// RevisionLabel is a two-part revision identifier: a major letter and a minor
// number, rendered as "<Letter>.<NN>" (e.g. "A.01", "C.12"). Labels order
// lexicographically by letter, then numerically by minor number.
type RevisionLabel struct {
	Major rune
	Minor int
}

// String renders the label with the minor number zero-padded to at least two
// digits. Minor numbers beyond 99 render with their natural width.
func (l RevisionLabel) String() string {
	return fmt.Sprintf("%c.%02d", l.Major, l.Minor)
}

// ParseRevisionLabel parses a "<Letter>.<NN>" label. The letter must be a
// single ASCII uppercase character and the minor part a positive integer.
func ParseRevisionLabel(s string) (RevisionLabel, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || len(major) != 1 {
		return RevisionLabel{}, fmt.Errorf("malformed revision label %q", s)
	}
	letter := rune(major[0])
	if letter < 'A' || letter > 'Z' {
		return RevisionLabel{}, fmt.Errorf("malformed revision label %q: major part must be A-Z", s)
	}
	n, err := strconv.Atoi(minor)
	if err != nil || n < 1 {
		return RevisionLabel{}, fmt.Errorf("malformed revision label %q: bad minor number", s)
	}
	return RevisionLabel{Major: letter, Minor: n}, nil
}

// NextLabel computes the revision label that follows current. A major advance
// moves the letter forward one position and resets the minor number to 01; a
// minor advance increments the minor number and keeps the letter. The letter
// sequence ends at Z: a major advance from a Z label degrades to a minor
// advance so labels stay unique and parseable.
//
// NextLabel never fails: a label that cannot be parsed yields the initial
// label "A.01". Callers must not rely on error signaling here; the permissive
// fallback keeps check-in recoverable when stored labels are damaged.
func NextLabel(current string, major bool) string {
	label, err := ParseRevisionLabel(current)
	if err != nil {
		return InitialRevisionLabel
	}
	if major && label.Major < 'Z' {
		return RevisionLabel{Major: label.Major + 1, Minor: 1}.String()
	}
	return RevisionLabel{Major: label.Major, Minor: label.Minor + 1}.String()
}
