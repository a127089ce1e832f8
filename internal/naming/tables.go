package naming

// Phases maps phase codes to names
var Phases = map[string]string{
	"PD": "Pre-Design/Programming",
	"SD": "Schematic Design",
	"DD": "Design Development",
	"CD": "Construction Documents",
	"CA": "Construction Administration",
	"CO": "Closeout",
}

// Disciplines maps discipline codes to names
var Disciplines = map[string]string{
	"A":  "Architectural",
	"S":  "Structural",
	"G":  "Geotechnical",
	"C":  "Civil",
	"M":  "Mechanical",
	"E":  "Electrical",
	"P":  "Plumbing",
	"H":  "Hydraulic",
	"F":  "Fire Protection",
	"L":  "Landscape",
	"I":  "Interiors",
	"T":  "Transportation",
	"EN": "Environmental",
	"SU": "Survey",
	"PM": "Project Management",
	"GE": "General/Multi-Discipline",
}

// DocumentTypes maps document type codes to names
var DocumentTypes = map[string]string{
	// Drawings
	"DWG": "Drawing",
	"PLN": "Plan",
	"SEC": "Section",
	"DTL": "Detail",
	"SCH": "Schedule",
	// Calculations
	"CALC": "Calculation",
	"LOAD": "Load Calculation",
	"SIZE": "Sizing Calculation",
	"PAR":  "Parameter Calculation",
	// Reports
	"RPT":   "Report",
	"MEMO":  "Memorandum",
	"STUDY": "Study",
	"EVAL":  "Evaluation",
	// Specifications
	"SPEC": "Specification",
	"DIV":  "Division",
	// Correspondence
	"RFI": "Request for Information",
	"SUB": "Submittal",
	"CO":  "Change Order",
	"TXM": "Transmittal",
	"LTR": "Letter",
	// Models
	"BIM": "Building Information Model",
	"3D":  "3D Model",
	"CAD": "CAD File",
	// Photos
	"PHO": "Photograph",
	"IMG": "Image",
	// Permits
	"PER": "Permit",
	"APP": "Application",
	// Special formats
	"MTG":  "Meeting",
	"SHOP": "Shop Drawing",
	"AB":   "As-Built",
}

// extensionTypes infers a document type from the file extension alone
var extensionTypes = map[string]string{
	".dwg":  "CAD",
	".dxf":  "CAD",
	".dgn":  "CAD",
	".rvt":  "BIM",
	".rfa":  "BIM",
	".ifc":  "BIM",
	".nwd":  "3D",
	".nwc":  "3D",
	".skp":  "3D",
	".jpg":  "IMG",
	".jpeg": "IMG",
	".png":  "IMG",
	".tif":  "IMG",
	".tiff": "IMG",
	".pdf":  "PDF",
	".doc":  "DOC",
	".docx": "DOC",
	".xls":  "XLS",
	".xlsx": "XLS",
	".csv":  "XLS",
	".ppt":  "PPT",
	".pptx": "PPT",
	".txt":  "TXT",
}

// extensionTypeNames names the extension-only types missing from DocumentTypes
var extensionTypeNames = map[string]string{
	"PDF": "PDF Document",
	"DOC": "Word Document",
	"XLS": "Spreadsheet",
	"PPT": "Presentation",
	"TXT": "Text File",
}

// keywordRule maps a keyword to a code. Keywords are lower case with words
// separated by single spaces and match at the start of a word. Rules are
// checked in slice order and the first match wins, so specific keywords come
// before their prefixes.
type keywordRule struct {
	keyword string
	code    string
}

var disciplineKeywords = []keywordRule{
	{"fire protection", "F"},
	{"fireprotection", "F"},
	{"fire", "F"},
	{"structural", "S"},
	{"architectural", "A"},
	{"architecture", "A"},
	{"mechanical", "M"},
	{"hvac", "M"},
	{"electrical", "E"},
	{"plumbing", "P"},
	{"geotechnical", "G"},
	{"hydraulic", "H"},
	{"civil", "C"},
	{"landscape", "L"},
	{"interiors", "I"},
	{"interior", "I"},
	{"transportation", "T"},
	{"traffic", "T"},
	{"environmental", "EN"},
	{"survey", "SU"},
	{"project management", "PM"},
	{"general", "GE"},
}

var documentTypeKeywords = []keywordRule{
	{"shop drawing", "SHOP"},
	{"shopdrawing", "SHOP"},
	{"as built", "AB"},
	{"asbuilt", "AB"},
	{"record drawing", "AB"},
	{"transmittal", "TXM"},
	{"submittal", "SUB"},
	{"meeting", "MTG"},
	{"minutes", "MTG"},
	{"specification", "SPEC"},
	{"spec", "SPEC"},
	{"calculation", "CALC"},
	{"calc", "CALC"},
	{"schedule", "SCH"},
	{"elevation", "DWG"},
	{"section", "SEC"},
	{"detail", "DTL"},
	{"plan", "PLN"},
	{"drawing", "DWG"},
	{"report", "RPT"},
	{"memo", "MEMO"},
	{"study", "STUDY"},
	{"evaluation", "EVAL"},
	{"letter", "LTR"},
	{"permit", "PER"},
	{"photo", "PHO"},
	{"rfi", "RFI"},
}

var phaseKeywords = []keywordRule{
	{"pre design", "PD"},
	{"predesign", "PD"},
	{"programming", "PD"},
	{"schematic", "SD"},
	{"design development", "DD"},
	{"construction documents", "CD"},
	{"construction administration", "CA"},
	{"close out", "CO"},
	{"closeout", "CO"},
}
