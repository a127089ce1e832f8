// Package naming classifies files against the AEC naming convention.
//
// The canonical grammar is
//
//	ProjectNumber_Phase_Discipline_DocumentType_Sheet_Revision_Date.ext
//
// for example PROJ1_CD_A_DWG_101_R1_010124.pdf. A full match yields a
// types.Standard classification. Four project-less formats used for meeting
// minutes, transmittals, shop drawings and as-builts are also recognized.
//
// Names that match neither fall back to keyword inference over the filename
// and its ancestor directories (types.Heuristic), and finally to the file
// extension alone (types.Unknown). Classification never fails.
package naming
