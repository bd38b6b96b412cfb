// package repositories provides the SQLite existence checks and idempotent writers used by imports.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/goccy/go-json"
)

// Tables lists every relation written by an import, in foreign key dependency order.
var Tables = []string{"users", "artists", "albums", "tracks", "history", "collaborations"}

var kindTables = map[models.EntityKind]string{
	models.KindArtist: "artists",
	models.KindAlbum:  "albums",
	models.KindTrack:  "tracks",
}

// Store checks for and writes catalog entities and history.
type Store struct {
	db *sql.DB
}

// NewStore creates a new [Store] with the given database connection
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Existing returns the subset of ids already persisted for kind, using a single query.
func (s *Store) Existing(ctx context.Context, kind models.EntityKind, ids models.IDSet) (models.IDSet, error) {
	table, ok := kindTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", shared.ErrInvalidArgument, kind)
	}

	found := make(models.IDSet)
	if len(ids) == 0 {
		return found, nil
	}

	arg, err := json.Marshal(ids.Sorted())
	if err != nil {
		return nil, fmt.Errorf("failed to encode ids: %w", err)
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE id IN (SELECT value FROM json_each(?))", table)
	rows, err := s.db.QueryContext(ctx, query, string(arg))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query %s: %w", shared.ErrStorageUnavailable, table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan %s id: %w", shared.ErrStorageUnavailable, table, err)
		}
		found.Add(id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %w", shared.ErrStorageUnavailable, err)
	}

	return found, nil
}

// Count returns the number of rows in table, which must be one of [Tables].
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	known := false
	for _, t := range Tables {
		known = known || t == table
	}
	if !known {
		return 0, fmt.Errorf("%w: unknown table %q", shared.ErrInvalidArgument, table)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count %s: %w", shared.ErrStorageUnavailable, table, err)
	}
	return n, nil
}

// insertAll writes rows with a prepared conflict-ignoring statement inside one transaction and
// returns how many rows were actually inserted. Rows are deduplicated by key first: the last
// occurrence wins and keeps the position of the first.
func insertAll[T models.Entity](ctx context.Context, db *sql.DB, query string, rows []T, args func(T) []any) (int, error) {
	rows = dedupe(rows)
	if len(rows) == 0 {
		return 0, nil
	}

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %w", shared.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prepare insert: %w", shared.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		result, err := stmt.ExecContext(ctx, args(row)...)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to insert %s: %w", shared.ErrStorageUnavailable, row.Key(), err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: failed to get affected rows: %w", shared.ErrStorageUnavailable, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit: %w", shared.ErrStorageUnavailable, err)
	}

	return inserted, nil
}

func dedupe[T models.Entity](rows []T) []T {
	index := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.Key()]; ok {
			out[i] = row
			continue
		}
		index[row.Key()] = len(out)
		out = append(out, row)
	}
	return out
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
