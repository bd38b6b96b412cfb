package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/repositories"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogTrack prints the catalog record for a track URI or id, or the stored row with --local.
func (r *Runner) CatalogTrack(ctx context.Context, cmd *cli.Command) error {
	id := models.TrackIDFromURI(cmd.StringArg("ref"))
	if id == "" {
		return fmt.Errorf("%w: track reference", shared.ErrMissingArgument)
	}

	if cmd.Bool("local") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		track, err := repositories.NewStore(db).Track(ctx, id)
		if err != nil {
			return err
		}
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	lookup, err := r.catalogLookup()
	if err != nil {
		return err
	}

	track, err := lookup.Track(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch track %s: %w", id, err)
	}
	return r.writeJSON(track, cmd.Bool("pretty"))
}

// CatalogArtist prints the catalog record for an artist id, or the stored row with --local.
func (r *Runner) CatalogArtist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	if cmd.Bool("local") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		artist, err := repositories.NewStore(db).Artist(ctx, id)
		if err != nil {
			return err
		}
		return r.writeJSON(artist, cmd.Bool("pretty"))
	}

	lookup, err := r.catalogLookup()
	if err != nil {
		return err
	}

	artist, err := lookup.Artist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch artist %s: %w", id, err)
	}
	return r.writeJSON(artist, cmd.Bool("pretty"))
}
