package types

// NamingFormat records which rule produced a classification
type NamingFormat string

const (
	FormatPrimary     NamingFormat = "primary"
	FormatMeeting     NamingFormat = "meeting"
	FormatTransmittal NamingFormat = "transmittal"
	FormatShopDrawing NamingFormat = "shop_drawing"
	FormatAsBuilt     NamingFormat = "as_built"
	FormatHeuristic   NamingFormat = "heuristic"
	FormatUnknown     NamingFormat = "unknown"
)

// Confidence levels assigned by the classifier
const (
	ConfidenceStandard     = 0.95
	ConfidenceSpecial      = 0.85
	ConfidenceHeuristicMax = 0.6
	ConfidenceUnknown      = 0.1
)

// Fields holds the structured values extracted from a filename
type Fields struct {
	Project        string
	PhaseCode      string
	PhaseName      string
	DisciplineCode string
	DisciplineName string
	DocTypeCode    string
	DocTypeName    string
	Sheet          string
	Revision       Revision
	DateIssued     string
}

// Classification is the result of classifying a filename. It is one of
// Standard, Heuristic or Unknown; consumers switch on the concrete type.
type Classification interface {
	Confidence() float64
	IsStandard() bool
	Format() NamingFormat
	isClassification()
}

// Standard is a full match against a known naming grammar
type Standard struct {
	Fields
	NamingFormat NamingFormat
}

func (Standard) isClassification() {}

func (s Standard) Confidence() float64 {
	if s.NamingFormat == FormatPrimary || s.NamingFormat == "" {
		return ConfidenceStandard
	}
	return ConfidenceSpecial
}

func (Standard) IsStandard() bool { return true }

func (s Standard) Format() NamingFormat {
	if s.NamingFormat == "" {
		return FormatPrimary
	}
	return s.NamingFormat
}

// Heuristic is a partial inference from keywords and directory context
type Heuristic struct {
	Fields
	Score    float64
	Keywords []string // which inputs contributed, e.g. "dir:Structural"
}

func (Heuristic) isClassification() {}

func (h Heuristic) Confidence() float64 {
	if h.Score > ConfidenceHeuristicMax {
		return ConfidenceHeuristicMax
	}
	return h.Score
}

func (Heuristic) IsStandard() bool     { return false }
func (Heuristic) Format() NamingFormat { return FormatHeuristic }

// Unknown carries only what the extension tells us
type Unknown struct {
	RawName     string
	DocTypeCode string
	DocTypeName string
}

func (Unknown) isClassification() {}

func (Unknown) Confidence() float64  { return ConfidenceUnknown }
func (Unknown) IsStandard() bool     { return false }
func (Unknown) Format() NamingFormat { return FormatUnknown }

// FieldsOf returns the structured fields of any classification variant
func FieldsOf(c Classification) Fields {
	switch v := c.(type) {
	case Standard:
		return v.Fields
	case Heuristic:
		return v.Fields
	case Unknown:
		return Fields{DocTypeCode: v.DocTypeCode, DocTypeName: v.DocTypeName}
	default:
		return Fields{}
	}
}
