package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/dshills/aecwatch/pkg/types"
)

// Primary grammar tokens, matched after upper-casing
var (
	projectToken = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,15}$`)
	docTypeToken = regexp.MustCompile(`^[A-Z0-9]{2,6}$`)
	sheetToken   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.-]{0,11}$`)
	dateToken    = regexp.MustCompile(`^(\d{6}|\d{8}|\d{4}-\d{2}-\d{2})$`)
)

// projectNumber is the leading token of a directory named for a project,
// e.g. "PROJ1" or "2024-015 Riverside Library"
var projectNumber = regexp.MustCompile(`^[A-Z0-9-]{3,12}$`)

// Special formats, matched case-insensitively against the whole filename
var (
	meetingFormat     = regexp.MustCompile(`(?i)^MTG_([0-9]{6})_([A-Za-z]+)\.[a-z0-9]{2,4}$`)
	transmittalFormat = regexp.MustCompile(`(?i)^TXM_([A-Z]{2,4})_([0-9]{3})_([0-9]{6})\.[a-z0-9]{2,4}$`)
	shopDrawingFormat = regexp.MustCompile(`(?i)^SHOP_([A-Z]{1,2})_([A-Z]+)_([A-Z]+)_([CR]\d{1,2})_([0-9]{6})\.[a-z0-9]{2,4}$`)
	asBuiltFormat     = regexp.MustCompile(`(?i)^AB_([A-Z]{1,2})_([A-Z0-9]{1,4})_([0-9]{6})\.[a-z0-9]{2,4}$`)
)

const (
	heuristicBase     = 0.2
	heuristicPerField = 0.1
)

// Classifier maps filenames onto the AEC naming convention. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct{}

// New creates a classifier
func New() *Classifier {
	return &Classifier{}
}

// Classify parses filename, falling back to keyword inference over the
// filename and then the ancestors of dir, nearest first. It never fails: a
// name that yields nothing is returned as types.Unknown.
func (c *Classifier) Classify(filename, dir string) types.Classification {
	name := filepath.Base(filename)

	if s, ok := classifyPrimary(name); ok {
		return s
	}
	if s, ok := classifySpecial(name); ok {
		s.Project = projectFromDirs(dir)
		return s
	}
	if h, ok := classifyHeuristic(name, dir); ok {
		return h
	}
	return unknownFor(name)
}

// ClassifyPath is Classify for an absolute or relative file path
func (c *Classifier) ClassifyPath(path string) types.Classification {
	return c.Classify(filepath.Base(path), filepath.Dir(path))
}

// classifyPrimary matches Project_Phase_Discipline_DocType_Sheet_Revision_Date.ext.
// A project number containing the delimiter is rejoined from the leading tokens.
func classifyPrimary(name string) (types.Standard, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	tokens := strings.Split(strings.ToUpper(stem), "_")
	if len(tokens) < 7 {
		return types.Standard{}, false
	}

	n := len(tokens)
	project := strings.Join(tokens[:n-6], "_")
	phase, discipline, docType := tokens[n-6], tokens[n-5], tokens[n-4]
	sheet, revToken, date := tokens[n-3], tokens[n-2], tokens[n-1]

	for _, part := range tokens[:n-6] {
		if !projectToken.MatchString(part) {
			return types.Standard{}, false
		}
	}
	phaseName, ok := Phases[phase]
	if !ok {
		return types.Standard{}, false
	}
	disciplineName, ok := Disciplines[discipline]
	if !ok {
		return types.Standard{}, false
	}
	if !docTypeToken.MatchString(docType) || !sheetToken.MatchString(sheet) || !dateToken.MatchString(date) {
		return types.Standard{}, false
	}
	rev, ok := types.ParseRevision(revToken)
	if !ok {
		return types.Standard{}, false
	}

	docTypeName, ok := DocumentTypes[docType]
	if !ok {
		docTypeName = "Unknown"
	}

	return types.Standard{
		Fields: types.Fields{
			Project:        project,
			PhaseCode:      phase,
			PhaseName:      phaseName,
			DisciplineCode: discipline,
			DisciplineName: disciplineName,
			DocTypeCode:    docType,
			DocTypeName:    docTypeName,
			Sheet:          sheet,
			Revision:       rev,
			DateIssued:     date,
		},
		NamingFormat: types.FormatPrimary,
	}, true
}

// classifySpecial matches the project-less meeting, transmittal, shop drawing
// and as-built formats.
func classifySpecial(name string) (types.Standard, bool) {
	if m := meetingFormat.FindStringSubmatch(name); m != nil {
		return special(types.FormatMeeting, "MTG", types.Fields{
			DateIssued: m[1],
		}), true
	}

	if m := transmittalFormat.FindStringSubmatch(name); m != nil {
		return special(types.FormatTransmittal, "TXM", types.Fields{
			DateIssued: m[3],
		}), true
	}

	if m := shopDrawingFormat.FindStringSubmatch(name); m != nil {
		discipline := strings.ToUpper(m[1])
		disciplineName, ok := Disciplines[discipline]
		if !ok {
			return types.Standard{}, false
		}
		rev, _ := types.ParseRevision(m[4])
		return special(types.FormatShopDrawing, "SHOP", types.Fields{
			DisciplineCode: discipline,
			DisciplineName: disciplineName,
			Sheet:          strings.ToUpper(m[2] + "-" + m[3]),
			Revision:       rev,
			DateIssued:     m[5],
		}), true
	}

	if m := asBuiltFormat.FindStringSubmatch(name); m != nil {
		discipline := strings.ToUpper(m[1])
		disciplineName, ok := Disciplines[discipline]
		if !ok {
			return types.Standard{}, false
		}
		rev, _ := types.ParseRevision("AB")
		return special(types.FormatAsBuilt, "AB", types.Fields{
			DisciplineCode: discipline,
			DisciplineName: disciplineName,
			Sheet:          strings.ToUpper(m[2]),
			Revision:       rev,
			DateIssued:     m[3],
		}), true
	}

	return types.Standard{}, false
}

func special(format types.NamingFormat, docType string, f types.Fields) types.Standard {
	f.DocTypeCode = docType
	f.DocTypeName = DocumentTypes[docType]
	return types.Standard{Fields: f, NamingFormat: format}
}

// classifyHeuristic infers what it can from keywords. The filename is
// searched first, then each ancestor directory nearest first; the first
// source to yield a field wins it.
func classifyHeuristic(name, dir string) (types.Heuristic, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	var (
		f        types.Fields
		keywords []string
		inferred int
	)

	// note records what produced a field: "name:plan" or "dir:Structural"
	apply := func(text, source string) {
		normalized := normalize(text)
		note := func(rule keywordRule) string {
			if source == "dir" {
				return "dir:" + text
			}
			return "name:" + rule.keyword
		}
		if f.DisciplineCode == "" {
			if rule, ok := matchKeyword(normalized, disciplineKeywords); ok {
				f.DisciplineCode = rule.code
				f.DisciplineName = Disciplines[rule.code]
				keywords = append(keywords, note(rule))
				inferred++
			}
		}
		if f.PhaseCode == "" {
			if rule, ok := matchKeyword(normalized, phaseKeywords); ok {
				f.PhaseCode = rule.code
				f.PhaseName = Phases[rule.code]
				keywords = append(keywords, note(rule))
				inferred++
			}
		}
		if f.DocTypeCode == "" {
			if rule, ok := matchKeyword(normalized, documentTypeKeywords); ok {
				f.DocTypeCode = rule.code
				f.DocTypeName = DocumentTypes[rule.code]
				keywords = append(keywords, note(rule))
				inferred++
			}
		}
	}

	apply(stem, "name")

	// Revision and date only come from the filename itself
	for _, tok := range splitTokens(stem) {
		// Lower-case words like "for" are prose, not issue codes
		if f.Revision.IsZero() && tok == strings.ToUpper(tok) {
			if rev, ok := types.ParseRevision(tok); ok {
				f.Revision = rev
				keywords = append(keywords, "name:"+rev.Token)
				inferred++
				continue
			}
		}
		if f.DateIssued == "" && dateToken.MatchString(tok) {
			f.DateIssued = tok
			keywords = append(keywords, "name:"+tok)
			inferred++
		}
	}

	for _, ancestor := range ancestors(dir) {
		if f.DisciplineCode != "" && f.PhaseCode != "" && f.DocTypeCode != "" {
			break
		}
		apply(ancestor, "dir")
	}

	if inferred == 0 {
		return types.Heuristic{}, false
	}

	f.Project = projectFromDirs(dir)

	if f.DocTypeCode == "" {
		f.DocTypeCode, f.DocTypeName = docTypeFromExtension(name)
	}

	score := heuristicBase + heuristicPerField*float64(inferred)
	if score > types.ConfidenceHeuristicMax {
		score = types.ConfidenceHeuristicMax
	}
	return types.Heuristic{Fields: f, Score: score, Keywords: keywords}, true
}

func unknownFor(name string) types.Unknown {
	code, typeName := docTypeFromExtension(name)
	return types.Unknown{RawName: name, DocTypeCode: code, DocTypeName: typeName}
}

func docTypeFromExtension(name string) (string, string) {
	code, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", "Unknown"
	}
	if n, ok := DocumentTypes[code]; ok {
		return code, n
	}
	return code, extensionTypeNames[code]
}

// matchKeyword returns the first rule whose keyword starts a word in text
func matchKeyword(text string, rules []keywordRule) (keywordRule, bool) {
	padded := " " + text
	for _, rule := range rules {
		if strings.Contains(padded, " "+rule.keyword) {
			return rule, true
		}
	}
	return keywordRule{}, false
}

// normalize lower-cases text and turns delimiters and camel-case boundaries
// into single spaces: "03_StructuralPlans" becomes "03 structural plans".
func normalize(text string) string {
	var b strings.Builder
	var prev rune
	for _, r := range text {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			r = ' '
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteRune(' ')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// splitTokens splits a stem on the delimiters used by loose names. Hyphens
// are kept so ISO dates survive as one token.
func splitTokens(stem string) []string {
	return strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '.' || unicode.IsSpace(r)
	})
}

// projectFromDirs returns the project number of the nearest ancestor
// directory named for one, or "" when none is
func projectFromDirs(dir string) string {
	for _, name := range ancestors(dir) {
		lead := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == ' ' })
		if len(lead) == 0 || !projectNumber.MatchString(lead[0]) {
			continue
		}
		tok := lead[0]
		// Needs a digit, plus a letter or hyphen so "001_Admin" is not a project
		if strings.ContainsAny(tok, "0123456789") && strings.ContainsAny(tok, "ABCDEFGHIJKLMNOPQRSTUVWXYZ-") {
			return tok
		}
	}
	return ""
}

// ancestors lists the directory names of dir from nearest to root
func ancestors(dir string) []string {
	if dir == "" || dir == "." {
		return nil
	}
	var names []string
	for {
		base := filepath.Base(dir)
		if base == string(filepath.Separator) || base == "." || base == "" {
			break
		}
		names = append(names, base)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return names
}
