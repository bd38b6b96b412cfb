package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/listenlog/internal/events"
	"github.com/desertthunder/listenlog/internal/models"
)

const maxParseWorkers = 4

// FileImportResult is the outcome of importing one export file.
type FileImportResult struct {
	Path   string
	Result *models.ImportResult
	Error  error
}

// Success reports whether the file was parsed and imported.
func (r FileImportResult) Success() bool {
	return r.Error == nil && r.Result != nil
}

// BatchImportResult aggregates the outcome of importing several export files.
type BatchImportResult struct {
	Files     []FileImportResult
	Total     models.Counts
	Dropped   models.Counts
	Events    int
	Succeeded int
	Failed    int
}

type parseJob struct {
	index int
	path  string
}

type parsed struct {
	index  int
	events []models.PlayEvent
	err    error
}

// ImportFiles imports each export file for userID.
//
// Files are parsed concurrently by a small worker pool, then imported one at a time in the order given
// so that overlapping plays resolve the same way on every run. A malformed file is recorded as a failure
// and the batch continues; storage failures and cancellation stop the batch and are returned alongside
// the partial result. Phase updates from each import are forwarded to prog between file updates.
func (e *ImportEngine) ImportFiles(ctx context.Context, prog chan<- ProgressUpdate, paths []string, userID string) (*BatchImportResult, error) {
	result := &BatchImportResult{Files: make([]FileImportResult, len(paths))}
	if len(paths) == 0 {
		return result, nil
	}

	parsedFiles := e.parseAll(ctx, paths)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			result.Files = result.Files[:i]
			return result, err
		}
		sendProgress(prog, fileStartedUpdate(i+1, len(paths), path))

		fr := FileImportResult{Path: path}
		p := parsedFiles[i]
		if p.err != nil {
			fr.Error = p.err
		} else {
			res, err := e.Import(ctx, prog, p.events, userID)
			if err != nil {
				result.Files = result.Files[:i]
				return result, fmt.Errorf("import %s: %w", path, err)
			}
			fr.Result = res
		}

		result.Files[i] = fr
		if fr.Success() {
			result.Succeeded++
			result.Events += fr.Result.Events
			result.Total = addCounts(result.Total, fr.Result.Counts)
			result.Dropped = addCounts(result.Dropped, fr.Result.Dropped)
		} else {
			result.Failed++
			e.logger.Warn("file skipped", "path", path, "error", fr.Error)
		}
		sendProgress(prog, fileCompletedUpdate(i+1, len(paths), fr))
	}
	return result, nil
}

// parseAll parses paths with a bounded worker pool and returns results indexed like paths.
func (e *ImportEngine) parseAll(ctx context.Context, paths []string) []parsed {
	workers := min(maxParseWorkers, len(paths))
	jobs := make(chan parseJob, len(paths))
	results := make(chan parsed, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go parseWorker(ctx, &wg, jobs, results)
	}

	for i, path := range paths {
		jobs <- parseJob{index: i, path: path}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]parsed, len(paths))
	for i := range out {
		out[i] = parsed{index: i, err: context.Canceled}
	}
	for res := range results {
		out[res.index] = res
	}
	return out
}

// parseWorker parses files from the jobs channel until it is drained or ctx is done.
func parseWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan parseJob, results chan<- parsed) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		evts, err := events.ParseFile(job.path)
		results <- parsed{index: job.index, events: evts, err: err}
	}
}

func addCounts(a, b models.Counts) models.Counts {
	return models.Counts{
		Artists: a.Artists + b.Artists,
		Albums:  a.Albums + b.Albums,
		Tracks:  a.Tracks + b.Tracks,
		History: a.History + b.History,
		Links:   a.Links + b.Links,
	}
}
