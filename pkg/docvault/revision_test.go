package docvault_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeplm/docvault/pkg/docvault"
)

func TestParseRevisionLabel(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		expectMajor rune
		expectMinor int
		expectError bool
	}{
		{name: "initial label", label: "A.01", expectMajor: 'A', expectMinor: 1},
		{name: "later minor", label: "A.12", expectMajor: 'A', expectMinor: 12},
		{name: "later major", label: "C.03", expectMajor: 'C', expectMinor: 3},
		{name: "minor beyond two digits", label: "B.100", expectMajor: 'B', expectMinor: 100},
		{name: "empty", label: "", expectError: true},
		{name: "missing separator", label: "A01", expectError: true},
		{name: "lowercase letter", label: "a.01", expectError: true},
		{name: "multi-letter major", label: "AA.01", expectError: true},
		{name: "zero minor", label: "A.00", expectError: true},
		{name: "negative minor", label: "A.-1", expectError: true},
		{name: "non-numeric minor", label: "A.xx", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := docvault.ParseRevisionLabel(tt.label)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectMajor, parsed.Major)
			assert.Equal(t, tt.expectMinor, parsed.Minor)
			assert.Equal(t, tt.label, parsed.String())
		})
	}
}

func TestNextLabel(t *testing.T) {
	tests := []struct {
		name    string
		current string
		major   bool
		want    string
	}{
		{name: "minor increment", current: "A.01", major: false, want: "A.02"},
		{name: "minor increment keeps letter", current: "A.05", major: false, want: "A.06"},
		{name: "minor past nine keeps zero padding", current: "B.09", major: false, want: "B.10"},
		{name: "major increment resets minor", current: "A.05", major: true, want: "B.01"},
		{name: "major increment from later letter", current: "C.17", major: true, want: "D.01"},
		{name: "major advance to final letter", current: "Y.03", major: true, want: "Z.01"},
		{name: "major advance at final letter degrades to minor", current: "Z.03", major: true, want: "Z.04"},
		{name: "malformed falls back to initial", current: "garbage", major: false, want: "A.01"},
		{name: "empty falls back to initial", current: "", major: true, want: "A.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, docvault.NextLabel(tt.current, tt.major))
		})
	}
}

func TestNextLabelIsAlwaysParseable(t *testing.T) {
	label := docvault.InitialRevisionLabel
	for i := 0; i < 30; i++ {
		label = docvault.NextLabel(label, i%7 == 0)
		_, err := docvault.ParseRevisionLabel(label)
		require.NoError(t, err, "label %q after %d steps", label, i+1)
	}

	// exhausting the letters keeps labels parseable and strictly advancing
	label = "Z.01"
	seen := map[string]bool{label: true}
	for i := 0; i < 5; i++ {
		label = docvault.NextLabel(label, true)
		_, err := docvault.ParseRevisionLabel(label)
		require.NoError(t, err, "label %q", label)
		require.False(t, seen[label], "label %q repeated", label)
		seen[label] = true
	}
}
