// Package models defines the entities persisted by listenlog and the intermediate records that flow
// through an import.
//
// The package contains three categories of types:
//
// 1. Persisted rows: one struct per relation
//   - [User] : the listener that owns history entries
//   - [Artist], [Album], [Track] : catalog dimensions keyed by catalog id
//   - [Collaboration] : a featured artist on a track
//   - [HistoryEntry] : one play, keyed by its timestamp
//
// 2. Import inputs: [PlayEvent] is the canonical shape of one exported play event.
//
// 3. Catalog records: [EnrichedTrack] and [ArtistLookup] carry what the catalog returned, and
// [ImportResult] reports what an import run wrote.
//
// Every persisted row implements [Entity], which gives writers a conflict key to deduplicate on.
package models
