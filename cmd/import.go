package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/listenlog/internal/formatter"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/desertthunder/listenlog/internal/tasks"
	"github.com/desertthunder/listenlog/internal/ui"
	"github.com/urfave/cli/v3"
)

// Import ingests the export files given with --file and prints the result.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	files := cmd.StringSlice("file")
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one --file is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	catalog, err := r.catalogClient()
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	user := cmd.String("user")

	if cmd.Bool("tui") {
		engine := r.newEngine(db, catalog, shared.DiscardLogger())
		return r.importTUI(ctx, engine, files, user, format)
	}

	engine := r.newEngine(db, catalog, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	result, err := engine.ImportFiles(ctx, progressCh, files, user)
	close(progressCh)
	<-done

	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return r.writeImport(result, format)
}

// writeImport prints a single-file import as its own report and several files as a batch summary.
func (r *Runner) writeImport(result *tasks.BatchImportResult, format formatter.Format) error {
	if len(result.Files) == 1 {
		f := result.Files[0]
		if !f.Success() {
			return fmt.Errorf("import %s: %w", f.Path, f.Error)
		}
		return formatter.WriteImport(r.output, f.Result, format)
	}

	if err := formatter.WriteBatch(r.output, result, format); err != nil {
		return err
	}
	if result.Succeeded == 0 && result.Failed > 0 {
		return fmt.Errorf("%w: no file could be imported", shared.ErrMalformedInput)
	}
	return nil
}

// importTUI runs the import behind the bubbletea progress view, then prints the result.
func (r *Runner) importTUI(ctx context.Context, engine *tasks.ImportEngine, files []string, user string, format formatter.Format) error {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}

	model := ui.NewModel(ctx, strings.Join(names, ", "), func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BatchImportResult, error) {
		return engine.ImportFiles(ctx, progress, files, user)
	})

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if err := model.Err(); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if model.Result() == nil {
		return nil
	}
	return r.writeImport(model.Result(), format)
}
