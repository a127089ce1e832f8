package types

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRevision(t *testing.T) {
	tests := []struct {
		token string
		want  Revision
		ok    bool
	}{
		{"R1", Revision{Token: "R1", Kind: RevisionClean, Number: 1}, true},
		{"r12", Revision{Token: "R12", Kind: RevisionClean, Number: 12}, true},
		{"C03", Revision{Token: "C03", Kind: RevisionCheckPrint, Number: 3}, true},
		{"IFC", Revision{Token: "IFC", Kind: RevisionIssue, Number: 5}, true},
		{"record", Revision{Token: "RECORD", Kind: RevisionIssue, Number: 9}, true},
		{"R", Revision{}, false},
		{"R1000", Revision{Token: "R1000", Kind: RevisionClean, Number: 1000}, true},
		{"C0042", Revision{Token: "C0042", Kind: RevisionCheckPrint, Number: 42}, true},
		{"R99999999999999999999", Revision{}, false},
		{"X1", Revision{}, false},
		{"", Revision{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseRevision(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func mustParse(t *testing.T, token string) Revision {
	t.Helper()
	r, ok := ParseRevision(token)
	require.True(t, ok, token)
	return r
}

func TestCompareRevisions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"R2", "R1", 1},
		{"R1", "R1", 0},
		{"R10", "R9", 1},
		{"R1000", "R999", 1},
		{"C99", "R0", -1},
		{"C03", "C02", 1},
		{"IFC", "R99", 1},
		{"IFC", "IFB", 1},
		{"RFI", "RECORD", -1},
		{"AB", "FOR", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareRevisions(mustParse(t, tt.a), mustParse(t, tt.b)))
			assert.Equal(t, -tt.want, CompareRevisions(mustParse(t, tt.b), mustParse(t, tt.a)))
		})
	}

	t.Run("none ranks lowest", func(t *testing.T) {
		assert.Equal(t, -1, CompareRevisions(Revision{}, mustParse(t, "C01")))
		assert.Equal(t, 0, CompareRevisions(Revision{}, Revision{}))
	})
}

func TestRevisionOrderingLaw(t *testing.T) {
	revs := []Revision{
		mustParse(t, "C03"), mustParse(t, "R1"), mustParse(t, "IFC"), mustParse(t, "R2"),
	}
	sort.Slice(revs, func(i, j int) bool { return CompareRevisions(revs[i], revs[j]) > 0 })

	tokens := make([]string, len(revs))
	for i, r := range revs {
		tokens[i] = r.Token
	}
	assert.Equal(t, []string{"IFC", "R2", "R1", "C03"}, tokens)
}
