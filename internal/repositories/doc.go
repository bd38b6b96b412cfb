// Package repositories implements SQLite persistence for listening history.
//
// Two contracts matter to an import:
//   - Existence checks ([Store.Existing]) partition candidate identifiers into present and absent with
//     one query per entity kind, however many identifiers are asked about.
//   - Idempotent writes ([Store.InsertArtists] and friends) insert rows inside a single transaction and
//     silently skip rows whose key already exists, reporting only rows actually inserted.
//
// [UserRepository] creates the placeholder listener an import writes history for.
package repositories
