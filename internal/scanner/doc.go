// Package scanner coordinates the end-to-end scanning pipeline for
// directory trees and text buffers.
//
// The scanner orchestrates file discovery, extraction, masking, and
// storage, managing concurrency and error handling for large dump
// collections.
//
// # Basic Usage
//
//	s := scanner.New(store)
//
//	report, err := s.ScanPath(ctx, "/var/dumps", &scanner.Config{
//	    IncludeTrailingInfo: true,
//	    Workers:             8,
//	})
//
//	fmt.Printf("Scanned %d files, found %d cards in %v\n",
//	    report.FilesScanned, report.CardsFound, report.Duration)
//
// # Scanning Pipeline
//
// The scanner executes a multi-stage pipeline:
//
//  1. Discovery: Walk the tree, select files by extension, skip
//     hidden directories
//  2. Read: Load each file and drop invalid UTF-8 bytes
//  3. Extract: Run the windowed pattern pass over the text
//  4. Mask & Store: Persist masked identities in batched transactions
//
// # Concurrent Processing
//
// Files are processed by a worker pool bounded by a semaphore, with
// batches of files committed per transaction:
//
//	semaphore := make(chan struct{}, workers)
//
//	for _, batch := range batches {
//	    g.Go(func() error {
//	        tx, _ := store.BeginTx(ctx)
//	        for _, file := range batch {
//	            semaphore <- struct{}{}
//	            scanFile(ctx, tx, file)
//	            <-semaphore
//	        }
//	        return tx.Commit()
//	    })
//	}
//
// Default: NumCPU() workers. Extraction within a single file is
// sequential; parallelism comes from scanning many files at once.
//
// # Error Handling
//
// A file that cannot be read or stored is counted as failed and
// reported in ErrorMessages; the run continues with the remaining
// files. Only storage or context failures abort the whole scan.
//
//	report, err := s.ScanPath(ctx, root, config)
//	if err != nil {
//	    return err // fatal: nothing usable happened
//	}
//	for _, msg := range report.ErrorMessages {
//	    log.Printf("skipped: %s", msg)
//	}
//
// # Single Scan At A Time
//
// A Scanner rejects overlapping path scans:
//
//	if _, err := s.ScanPath(ctx, root, nil); errors.Is(err, scanner.ErrScanInProgress) {
//	    // another run holds the lock
//	}
//
// # Progress Tracking
//
// Monitor progress with a callback:
//
//	config.Progress = func(path string, hits int) {
//	    fmt.Printf("%s: %d\n", path, hits)
//	}
//
// # Counters
//
// Report.TotalHits counts every accepted record across files, where
// the same card in two files counts twice. Report.CardsFound counts
// the distinct identities persisted for the run.
package scanner
