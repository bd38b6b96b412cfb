// Package tasks runs listening-history imports with real-time progress reporting.
//
// # Pipeline
//
// [ImportEngine.Import] reconciles a batch of play events in fixed steps:
//
//  1. Discover distinct track references in event order
//  2. Check which tracks are already stored
//  3. Enrich the missing references through [services.Catalog]
//  4. Derive album, artist and collaboration candidates
//  5. Check stored artists and look up the rest one at a time
//  6. Check stored albums and drop anything whose dependencies are missing
//  7. Ensure the listener exists
//  8. Write artists, albums, tracks, history and collaborations in that order
//
// Every write is idempotent, so importing the same events twice adds nothing the second time.
// Entities the catalog cannot resolve are dropped together with their dependents and counted in
// [models.ImportResult.Dropped].
//
// [ImportEngine.ImportFiles] applies the pipeline to several export files, parsing them concurrently
// and importing them in order.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct carries the phase, step counters, a message and optional data.
// Updates use select with default so a slow consumer never stalls an import.
package tasks
