package main

import (
	"context"
	"strconv"

	"github.com/desertthunder/listenlog/internal/formatter"
	"github.com/desertthunder/listenlog/internal/repositories"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// Stats prints row counts per table and, with --user, that user's name and listening time.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := repositories.NewStore(db)

	stats := make([]formatter.Stat, 0, len(repositories.Tables)+2)
	for _, table := range repositories.Tables {
		n, err := store.Count(ctx, table)
		if err != nil {
			return err
		}
		stats = append(stats, formatter.Stat{Name: table, Value: strconv.Itoa(n)})
	}

	if user := cmd.String("user"); user != "" {
		u, err := repositories.NewUserRepository(db).Get(ctx, user)
		if err != nil {
			return err
		}
		lt, err := store.ListeningTime(ctx, user)
		if err != nil {
			return err
		}
		stats = append(stats,
			formatter.Stat{Name: "user (" + user + ")", Value: u.DisplayName},
			formatter.Stat{Name: "plays (" + user + ")", Value: strconv.Itoa(lt.Plays)},
			formatter.Stat{Name: "listening time (" + user + ")", Value: shared.FormatDuration(lt.MSPlayed)},
		)
	}

	return formatter.WriteStats(r.output, "Library", stats, format)
}
