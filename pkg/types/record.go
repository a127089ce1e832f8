package types

import (
	"path/filepath"
	"time"
)

// GroupKey identifies the revisions of one deliverable
type GroupKey struct {
	Project    string
	Discipline string
	Sheet      string
}

// Resolvable reports whether the key names a group at all. Records without a
// sheet token are never grouped.
func (k GroupKey) Resolvable() bool {
	return k.Sheet != ""
}

func (k GroupKey) String() string {
	return k.Project + "/" + k.Discipline + "/" + k.Sheet
}

// FileRecord is the stored state of one observed file
type FileRecord struct {
	// Identity
	Path            string
	Digest          string // hex SHA-256
	SizeBytes       int64
	CreatedAt       time.Time
	ModTime         time.Time
	LastProcessedAt time.Time

	// Classification
	Project        string
	PhaseCode      string
	PhaseName      string
	DisciplineCode string
	DisciplineName string
	DocTypeCode    string
	DocTypeName    string
	Sheet          string
	Revision       string
	RevisionKind   RevisionKind
	DateIssued     string
	Confidence     float64
	IsStandard     bool
	NamingFormat   NamingFormat

	// Lifecycle
	Status    Status
	Error     *string // Nullable
	IsCurrent bool

	// Extracted content, stored verbatim
	Payload        []byte  // Nullable
	PayloadWarning *string // Nullable
}

// Group returns the record's group key
func (r *FileRecord) Group() GroupKey {
	return GroupKey{Project: r.Project, Discipline: r.DisciplineCode, Sheet: r.Sheet}
}

// ParsedRevision re-parses the stored revision token for ordering
func (r *FileRecord) ParsedRevision() Revision {
	rev, ok := ParseRevision(r.Revision)
	if !ok {
		return Revision{}
	}
	return rev
}

// ApplyClassification copies classification fields onto the record
func (r *FileRecord) ApplyClassification(c Classification) {
	f := FieldsOf(c)
	r.Project = f.Project
	r.PhaseCode = f.PhaseCode
	r.PhaseName = f.PhaseName
	r.DisciplineCode = f.DisciplineCode
	r.DisciplineName = f.DisciplineName
	r.DocTypeCode = f.DocTypeCode
	r.DocTypeName = f.DocTypeName
	r.Sheet = f.Sheet
	r.Revision = f.Revision.Token
	r.RevisionKind = f.Revision.Kind
	r.DateIssued = f.DateIssued
	r.Confidence = c.Confidence()
	r.IsStandard = c.IsStandard()
	r.NamingFormat = c.Format()
}

// SetError records msg as the record's error, or clears it when msg is empty
func (r *FileRecord) SetError(msg string) {
	if msg == "" {
		r.Error = nil
		return
	}
	r.Error = &msg
}

// Validate checks the record before it is written
func (r *FileRecord) Validate() error {
	if r.Path == "" {
		return ErrEmptyPath
	}
	if !filepath.IsAbs(r.Path) {
		return ErrRelativePath
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return r.Status.Validate()
}

// Clone returns a deep copy
func (r *FileRecord) Clone() *FileRecord {
	c := *r
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	if r.PayloadWarning != nil {
		w := *r.PayloadWarning
		c.PayloadWarning = &w
	}
	if r.Payload != nil {
		c.Payload = append([]byte(nil), r.Payload...)
	}
	return &c
}
