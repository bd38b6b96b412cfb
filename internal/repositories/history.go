package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
)

// InsertHistory inserts plays, skipping any whose played_at timestamp is already recorded.
func (s *Store) InsertHistory(ctx context.Context, entries []models.HistoryEntry) (int, error) {
	query := `
		INSERT INTO history (
			user_id, track_id, played_at, ms_played, platform, country, ip_address,
			reason_start, reason_end, skipped, shuffle, offline, incognito
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(played_at) DO NOTHING
	`
	return insertAll(ctx, s.db, query, entries, func(h models.HistoryEntry) []any {
		return []any{
			h.UserID, h.TrackID, h.PlayedAt, h.MSPlayed,
			nullString(h.Platform), nullString(h.Country), nullString(h.IPAddress),
			nullString(h.ReasonStart), nullString(h.ReasonEnd),
			h.Skipped, h.Shuffle, h.Offline, h.Incognito,
		}
	})
}

// ListeningTime is a user's play count and total time played.
type ListeningTime struct {
	Plays    int   `json:"plays"`
	MSPlayed int64 `json:"ms_played"`
}

// ListeningTime sums the history recorded for userID.
func (s *Store) ListeningTime(ctx context.Context, userID string) (ListeningTime, error) {
	var lt ListeningTime
	query := `SELECT COUNT(*), COALESCE(SUM(ms_played), 0) FROM history WHERE user_id = ?`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&lt.Plays, &lt.MSPlayed); err != nil {
		return lt, fmt.Errorf("%w: failed to sum history: %w", shared.ErrStorageUnavailable, err)
	}
	return lt, nil
}
