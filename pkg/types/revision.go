package types

import (
	"regexp"
	"strconv"
	"strings"
)

// RevisionKind distinguishes internal check prints from external issues
type RevisionKind string

const (
	RevisionNone       RevisionKind = ""
	RevisionCheckPrint RevisionKind = "check_print"
	RevisionClean      RevisionKind = "clean"
	RevisionIssue      RevisionKind = "issue_code"
)

// rank orders kinds: issue codes outrank clean revisions, which outrank check prints.
func (k RevisionKind) rank() int {
	switch k {
	case RevisionIssue:
		return 3
	case RevisionClean:
		return 2
	case RevisionCheckPrint:
		return 1
	default:
		return 0
	}
}

// IssueCodes maps each special issue literal to its precedence. Higher wins.
var IssueCodes = map[string]int{
	"RFI":    1, // issued for RFI response
	"PCO":    2, // potential change order review
	"IFP":    3, // issued for permit
	"IFB":    4, // issued for bidding
	"IFC":    5, // issued for construction
	"CONST":  6, // construction issue
	"FOR":    7, // issued for record
	"AB":     8, // as-built
	"RECORD": 9, // record drawing
}

// IssueCodeNames gives the long form of each issue literal
var IssueCodeNames = map[string]string{
	"RFI":    "Issued for RFI Response",
	"PCO":    "Issued for Potential Change Order",
	"IFP":    "Issued for Permit",
	"IFB":    "Issued for Bidding",
	"IFC":    "Issued for Construction",
	"CONST":  "Construction Issue",
	"FOR":    "Issued for Record",
	"AB":     "As-Built",
	"RECORD": "Record Drawing",
}

var numberedRevision = regexp.MustCompile(`^([CR])(\d+)$`)

// Revision is a parsed revision token
type Revision struct {
	Token  string
	Kind   RevisionKind
	Number int // numeric suffix for C/R, issue precedence for issue codes
}

// ParseRevision classifies token as a revision. ok is false when the token is
// not a revision under any of the accepted forms.
func ParseRevision(token string) (Revision, bool) {
	upper := strings.ToUpper(strings.TrimSpace(token))
	if upper == "" {
		return Revision{}, false
	}

	if m := numberedRevision.FindStringSubmatch(upper); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Revision{}, false
		}
		kind := RevisionClean
		if m[1] == "C" {
			kind = RevisionCheckPrint
		}
		return Revision{Token: upper, Kind: kind, Number: n}, true
	}

	if p, ok := IssueCodes[upper]; ok {
		return Revision{Token: upper, Kind: RevisionIssue, Number: p}, true
	}

	return Revision{}, false
}

// IsZero reports whether no revision was found
func (r Revision) IsZero() bool {
	return r.Kind == RevisionNone
}

// CompareRevisions returns -1, 0 or 1 as a ranks below, equal to or above b.
// A check print never outranks a clean revision regardless of number, and any
// issue code outranks every numbered revision.
func CompareRevisions(a, b Revision) int {
	if ra, rb := a.Kind.rank(), b.Kind.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch {
	case a.Number < b.Number:
		return -1
	case a.Number > b.Number:
		return 1
	default:
		return 0
	}
}
