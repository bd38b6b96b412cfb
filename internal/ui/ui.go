package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/listenlog/internal/formatter"
	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ImportingView ViewState = iota
	ResultView
)

const maxMessages = 6

// RunFunc runs an import, reporting progress on the channel it is given.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BatchImportResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	run          RunFunc
	title        string
	view         ViewState
	spinner      spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
	progressChan chan tasks.ProgressUpdate
	done         chan completion
	progress     tasks.ProgressUpdate
	messages     []string
	filesDone    int
	fileTotal    int
	phaseFrac    float64
	showLog      bool
	result       *tasks.BatchImportResult
	err          error
}

// NewModel creates a model that runs run when started. title names the import in the header.
func NewModel(ctx context.Context, title string, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		title:   title,
		view:    ImportingView,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		help:    help.New(),
		keys:    newKeyMap(),
		showLog: true,
	}
}

// Result returns the finished import, or nil while it is running or after a failure.
func (m *Model) Result() *tasks.BatchImportResult { return m.result }

// Err returns the error that ended the import, if any.
func (m *Model) Err() error { return m.err }

// Init starts the import and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.details):
			m.showLog = !m.showLog
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-4, 80))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.view != ImportingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.apply(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgImportComplete:
			c := msg.data.(completion)
			m.result, m.err = c.result, c.err
			m.view = ResultView
			m.phaseFrac = 1
			return m, nil
		}
	}
	return m, nil
}

// apply folds a progress update into the file and phase counters.
func (m *Model) apply(u tasks.ProgressUpdate) {
	m.progress = u

	switch u.Data.(type) {
	case tasks.FileImportResult:
		m.filesDone, m.fileTotal = u.Step, u.Total
		m.phaseFrac = 0
	case *models.ImportResult:
		m.phaseFrac = 1
	default:
		if u.Phase == tasks.ParseEvents {
			m.fileTotal = u.Total
			m.phaseFrac = 0
		} else {
			m.phaseFrac = float64(u.Phase) / float64(tasks.Complete)
		}
	}

	if u.Message != "" {
		m.messages = append(m.messages, u.Message)
		if len(m.messages) > maxMessages {
			m.messages = m.messages[len(m.messages)-maxMessages:]
		}
	}
}

// Percent reports overall completion across files in [0, 1].
func (m *Model) Percent() float64 {
	if m.view == ResultView {
		return 1
	}
	if m.fileTotal == 0 {
		return m.phaseFrac
	}
	p := (float64(m.filesDone) + m.phaseFrac) / float64(m.fileTotal)
	return min(p, 1)
}

// start runs the import in a goroutine. The result is handed over on done before the progress
// channel is closed, so the model never reads shared state written by the goroutine.
func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan completion, 1)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		m.done <- completion{result, err}
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			c := <-done
			return importCompleteMsg(c.result, c.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ResultView:
		return m.renderResult()
	default:
		return m.renderImporting()
	}
}

func (m *Model) renderImporting() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Importing " + m.title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), phaseLabel(m.progress))
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")

	if m.showLog {
		for _, msg := range m.messages {
			b.WriteString(styles.message.Render("  " + msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Import failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Import Complete")
	if m.result.Failed > 0 {
		title = styles.warn.Render(fmt.Sprintf("Import finished with %d failed files", m.result.Failed))
	}

	var buf bytes.Buffer
	if err := formatter.WriteBatch(&buf, m.result, formatter.FormatText); err != nil {
		return styles.err.Render(err.Error())
	}
	return fmt.Sprintf("%s\n\n%s\n%s", title, buf.String(), helpView)
}

// phaseLabel describes the current step for the status line.
func phaseLabel(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.ParseEvents:
		return "Reading export..."
	case tasks.DiscoverTracks, tasks.CheckTracks:
		return "Checking stored tracks..."
	case tasks.EnrichTracks:
		return "Looking up tracks in the catalog..."
	case tasks.CheckArtists:
		return "Checking stored artists..."
	case tasks.EnrichArtists:
		return fmt.Sprintf("Looking up artists (%d/%d)", u.Step, u.Total)
	case tasks.CheckAlbums, tasks.Filter:
		return "Reconciling..."
	case tasks.EnsureUser:
		return "Preparing listener..."
	case tasks.WriteArtists, tasks.WriteAlbums, tasks.WriteTracks, tasks.WriteHistory, tasks.WriteLinks:
		return "Writing " + strings.TrimPrefix(u.Phase.String(), "write_") + "..."
	case tasks.Complete:
		return "Finishing..."
	default:
		return "Starting..."
	}
}
