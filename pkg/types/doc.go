// Package types provides shared type definitions for the aecwatch ingestion engine.
//
// This package defines the domain types used across the classifier, the store,
// the revision resolver and the pipeline.
//
// # Core Types
//
// FileRecord is the stored state of one observed file, keyed by absolute path:
//
//	record := &types.FileRecord{
//	    Path:   "/projects/PROJ1/A/PROJ1_CD_A_DWG_101_R1_010124.pdf",
//	    Digest: "9f86d0...",
//	    Status: types.StatusCompleted,
//	}
//
// Classification is a closed set of variants. Consumers switch on the concrete
// type instead of testing nullable fields:
//
//	switch c := classification.(type) {
//	case types.Standard:
//	    // full grammar match, confidence 0.95
//	case types.Heuristic:
//	    // keyword inference, confidence <= 0.6
//	case types.Unknown:
//	    // extension only
//	}
//
// # Revision Ordering
//
// CompareRevisions orders revision tokens within a group:
//
//	C01 < C12 < R0 < R1 < R15 < IFP < IFB < IFC
//
// Check prints (C##) are internal and never outrank clean revisions (R##).
// Issue codes outrank every numbered revision.
//
// # Status
//
// Records move forward through discovered, hashed, classified and completed.
// Any non-terminal state may fail. Failed records re-enter at discovered on
// retry, and completed records re-enter at discovered when their content changes.
package types
