// Package services resolves track references and artist ids against the Spotify catalog.
//
// # Layers
//
// [SpotifyService] talks to the Web API with client-credentials OAuth2 and a request rate limiter.
// [BreakerSource] wraps any [Source] in a circuit breaker so a failing catalog is rejected fast
// instead of timing out once per batch. [CatalogResolver] sits on top and implements [Catalog]:
// it deduplicates references, splits them into sub-batches of at most [shared.MaxCatalogBatch] ids,
// runs sub-batches in parallel and maps the results back to the references that asked for them.
//
// # Error Handling
//
// A reference or artist the catalog cannot resolve is not an error at the [Catalog] level:
// [CatalogResolver.EnrichTracks] leaves it out of the result map and [CatalogResolver.ArtistDetail]
// returns a lookup with Found set to false. Only context cancellation is returned to callers.
//
// Below that level, [SpotifyService] reports:
//   - [shared.ErrNotFound] : 400 or 404 from the API
//   - [shared.ErrCatalogUnavailable] : transport failures, 429 and 5xx responses, open breaker
//   - [shared.ErrUnauthorized] : rejected client credentials
package services
