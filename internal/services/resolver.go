package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/metrics"
	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"golang.org/x/sync/errgroup"
)

// ResolverOpts configures a [CatalogResolver].
type ResolverOpts struct {
	BatchSize   int // ids per SeveralTracks call, clamped to 1..[shared.MaxCatalogBatch]
	Concurrency int // sub-batches in flight at once
	Logger      *log.Logger
}

// CatalogResolver implements [Catalog] on top of a [Source].
type CatalogResolver struct {
	source      Source
	batchSize   int
	concurrency int
	logger      *log.Logger
}

// NewCatalogResolver creates a resolver over source.
func NewCatalogResolver(source Source, opts ResolverOpts) *CatalogResolver {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &CatalogResolver{
		source:      source,
		batchSize:   shared.CatalogConfig{BatchSize: opts.BatchSize}.EffectiveBatchSize(),
		concurrency: max(1, opts.Concurrency),
		logger:      logger,
	}
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// EnrichTracks resolves refs in sub-batches. A sub-batch that fails is logged and its references
// are left out of the result. Only a cancelled or expired ctx produces an error.
func (r *CatalogResolver) EnrichTracks(ctx context.Context, refs []string) (map[string]models.EnrichedTrack, error) {
	refsByID := make(map[string][]string)
	var ids []string
	for _, ref := range refs {
		id := models.TrackIDFromURI(ref)
		if id == "" {
			continue
		}
		if _, seen := refsByID[id]; !seen {
			ids = append(ids, id)
		}
		if !containsString(refsByID[id], ref) {
			refsByID[id] = append(refsByID[id], ref)
		}
	}

	result := make(map[string]models.EnrichedTrack, len(refs))
	if len(ids) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, batch := range chunk(ids, r.batchSize) {
		g.Go(func() error {
			start := time.Now()
			tracks, err := r.source.SeveralTracks(gctx, batch)
			metrics.CatalogBatchDuration.WithLabelValues("tracks").Observe(time.Since(start).Seconds())

			if err != nil {
				if isContextErr(err) && ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.CatalogRequests.WithLabelValues("tracks", "error").Inc()
				r.logger.Warn("track batch lookup failed, dropping its references", "batch", i, "size", len(batch), "error", err)
				return nil
			}
			metrics.CatalogRequests.WithLabelValues("tracks", "ok").Inc()

			mu.Lock()
			defer mu.Unlock()

			resolved := 0
			for pos, track := range tracks {
				if track == nil {
					continue
				}
				id := track.ID
				if len(tracks) == len(batch) {
					id = batch[pos]
				}
				for _, ref := range refsByID[id] {
					result[ref] = track.Enriched(ref)
					resolved++
				}
			}
			r.logger.Debug("track batch resolved", "batch", i, "size", len(batch), "resolved", resolved)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ArtistDetail looks up one artist. Any failure other than cancellation is reported as not found.
func (r *CatalogResolver) ArtistDetail(ctx context.Context, id string) (models.ArtistLookup, error) {
	start := time.Now()
	artist, err := r.source.Artist(ctx, id)
	metrics.CatalogBatchDuration.WithLabelValues("artist").Observe(time.Since(start).Seconds())

	switch {
	case err != nil && isContextErr(err) && ctx.Err() != nil:
		return models.ArtistLookup{}, ctx.Err()
	case err != nil:
		outcome := "error"
		if errors.Is(err, shared.ErrNotFound) {
			outcome = "not_found"
			r.logger.Debug("artist not found", "artist_id", id)
		} else {
			r.logger.Warn("artist lookup failed, treating as not found", "artist_id", id, "error", err)
		}
		metrics.CatalogRequests.WithLabelValues("artist", outcome).Inc()
		return models.ArtistNotFound(id), nil
	case artist == nil || artist.ID == "" || artist.Name == "":
		metrics.CatalogRequests.WithLabelValues("artist", "not_found").Inc()
		return models.ArtistNotFound(id), nil
	}

	metrics.CatalogRequests.WithLabelValues("artist", "ok").Inc()
	found := artist.Model()
	found.ID = id
	return models.ArtistFound(found), nil
}
