package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		record FileRecord
		err    error
	}{
		{"valid", FileRecord{Path: "/a.pdf", Status: StatusDiscovered, Confidence: 0.5}, nil},
		{"empty path", FileRecord{Status: StatusDiscovered}, ErrEmptyPath},
		{"relative path", FileRecord{Path: "a.pdf", Status: StatusDiscovered}, ErrRelativePath},
		{"confidence too high", FileRecord{Path: "/a.pdf", Status: StatusDiscovered, Confidence: 1.5}, ErrInvalidConfidence},
		{"bad status", FileRecord{Path: "/a.pdf", Status: "nope"}, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestApplyClassification(t *testing.T) {
	rev, _ := ParseRevision("R2")
	r := &FileRecord{Path: "/p/x.pdf"}
	r.ApplyClassification(Standard{Fields: Fields{
		Project: "PROJ1", DisciplineCode: "A", Sheet: "101", Revision: rev,
	}})

	assert.Equal(t, GroupKey{Project: "PROJ1", Discipline: "A", Sheet: "101"}, r.Group())
	assert.Equal(t, "R2", r.Revision)
	assert.Equal(t, RevisionClean, r.RevisionKind)
	assert.Equal(t, ConfidenceStandard, r.Confidence)
	assert.True(t, r.IsStandard)
	assert.Equal(t, FormatPrimary, r.NamingFormat)

	// Reclassifying as Unknown clears the previous fields
	r.ApplyClassification(Unknown{RawName: "x.pdf", DocTypeCode: "PDF", DocTypeName: "PDF Document"})
	assert.False(t, r.Group().Resolvable())
	assert.Empty(t, r.Revision)
	assert.Equal(t, ConfidenceUnknown, r.Confidence)
	assert.Equal(t, FormatUnknown, r.NamingFormat)
}

func TestHeuristicConfidenceIsCapped(t *testing.T) {
	h := Heuristic{Score: 0.9}
	assert.Equal(t, ConfidenceHeuristicMax, h.Confidence())
	assert.False(t, h.IsStandard())
}

func TestClone(t *testing.T) {
	r := &FileRecord{Path: "/a.pdf", Payload: []byte("abc")}
	r.SetError("boom")

	c := r.Clone()
	c.Payload[0] = 'z'
	*c.Error = "changed"

	assert.Equal(t, "abc", string(r.Payload))
	assert.Equal(t, "boom", *r.Error)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&IOError{Path: "/a", Op: "open", Err: assert.AnError}))
	assert.False(t, IsTransient(&StoreWriteError{Path: "/a", Err: assert.AnError}))
	assert.False(t, IsTransient(nil))
}
