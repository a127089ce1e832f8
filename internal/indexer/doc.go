// Package indexer runs observed files through the ingestion pipeline.
//
// # Basic Usage
//
//	p := indexer.NewPipeline(store, &indexer.Config{
//	    Workers:   runtime.NumCPU(),
//	    Extractor: extractor.NewDefaultRegistry(),
//	})
//
//	result := p.ProcessBatch(ctx, paths)
//	fmt.Printf("batch %s: %d completed, %d failed\n",
//	    result.ID, len(result.Completed), len(result.Failed))
//
// # Pipeline
//
// Each path is processed independently on a bounded worker pool:
//
//  1. Hash: Fingerprint reads the file in 64 KiB chunks (SHA-256)
//  2. Detect: ChangeDetector compares the digest with the stored record
//  3. Classify: naming.Classifier parses the filename
//  4. Extract: the optional extractor produces a payload
//  5. Store: the record is upserted with the status it reached
//  6. Resolve: revision.Resolver recomputes the group's current record
//
// Unchanged files only have their last-processed time bumped. A file whose
// previous pass failed is reprocessed even when its digest is unchanged.
//
// # Failure Handling
//
// A failure in one file never aborts the batch. Unreadable files are stored
// with status failed and returned in BatchResult.Retry so the watcher can
// re-queue them. Resolution errors are collected per group in
// BatchResult.GroupErrors.
package indexer
