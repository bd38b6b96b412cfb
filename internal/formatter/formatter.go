// package formatter renders import results and stats as text tables, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/desertthunder/listenlog/internal/tasks"
)

// Format selects an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat validates a user-supplied format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want one of %v)", shared.ErrInvalidFlag, s, Formats)
}

// Stat is one labelled value in a key/value report.
type Stat struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

var importHeaders = []string{"Entity", "Inserted", "Dropped"}

// ImportRows returns one row per entity type: name, inserted count and dropped count.
func ImportRows(res *models.ImportResult) [][]string {
	return [][]string{
		{"artists", strconv.Itoa(res.Artists), strconv.Itoa(res.Dropped.Artists)},
		{"albums", strconv.Itoa(res.Albums), strconv.Itoa(res.Dropped.Albums)},
		{"tracks", strconv.Itoa(res.Tracks), strconv.Itoa(res.Dropped.Tracks)},
		{"history", strconv.Itoa(res.History), strconv.Itoa(res.Dropped.History)},
		{"links", strconv.Itoa(res.Links), strconv.Itoa(res.Dropped.Links)},
	}
}

// renderTable draws a bordered table with a highlighted header row.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// markdownTable renders rows as a GitHub-flavored Markdown table.
func markdownTable(buf *bytes.Buffer, headers []string, rows [][]string) {
	buf.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	buf.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, cell := range row {
			escaped[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
	}
}

func toCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV records: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportToText renders a summary line followed by a table of per-entity counts.
func ImportToText(res *models.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d events for %s in %dms\n", res.Events, res.UserID, res.DurationMS)
	if res.UserCreated {
		fmt.Fprintf(&b, "Created user %s\n", res.UserID)
	}
	b.WriteString(renderTable(importHeaders, ImportRows(res)))
	b.WriteString("\n")
	return b.String()
}

// ImportToMarkdown renders the import result as a Markdown report.
func ImportToMarkdown(res *models.ImportResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Import Report\n\n")
	fmt.Fprintf(&buf, "**User**: %s\n", res.UserID)
	fmt.Fprintf(&buf, "**Run**: %s\n", res.RunID)
	fmt.Fprintf(&buf, "**Events**: %d\n", res.Events)
	fmt.Fprintf(&buf, "**Duration**: %dms\n\n", res.DurationMS)

	markdownTable(&buf, importHeaders, ImportRows(res))
	return buf.Bytes()
}

// ImportToCSV converts the import result to CSV with columns: Entity, Inserted, Dropped
func ImportToCSV(res *models.ImportResult) ([]byte, error) {
	return toCSV(importHeaders, ImportRows(res))
}

// WriteImport writes res to w in the given format.
func WriteImport(w io.Writer, res *models.ImportResult, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = shared.MarshalJSON(res, true)
		data = append(data, '\n')
	case FormatCSV:
		data, err = ImportToCSV(res)
	case FormatMarkdown:
		data = ImportToMarkdown(res)
	default:
		data = []byte(ImportToText(res))
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var batchHeaders = []string{"File", "Status", "Events", "Plays", "Error"}

// BatchRows returns one row per file: path, status, event count, new plays and error text.
func BatchRows(res *tasks.BatchImportResult) [][]string {
	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		row := []string{f.Path, "ok", "", "", ""}
		if f.Success() {
			row[2] = strconv.Itoa(f.Result.Events)
			row[3] = strconv.Itoa(f.Result.History)
		} else {
			row[1] = "failed"
			if f.Error != nil {
				row[4] = f.Error.Error()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

type batchJSON struct {
	Files     []fileJSON    `json:"files"`
	Total     models.Counts `json:"total"`
	Dropped   models.Counts `json:"dropped"`
	Events    int           `json:"events"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

type fileJSON struct {
	Path   string               `json:"path"`
	Result *models.ImportResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// WriteBatch writes a multi-file import summary to w in the given format.
func WriteBatch(w io.Writer, res *tasks.BatchImportResult, format Format) error {
	switch format {
	case FormatJSON:
		out := batchJSON{
			Files:     make([]fileJSON, 0, len(res.Files)),
			Total:     res.Total,
			Dropped:   res.Dropped,
			Events:    res.Events,
			Succeeded: res.Succeeded,
			Failed:    res.Failed,
		}
		for _, f := range res.Files {
			fj := fileJSON{Path: f.Path, Result: f.Result}
			if f.Error != nil {
				fj.Error = f.Error.Error()
			}
			out.Files = append(out.Files, fj)
		}
		data, err := shared.MarshalJSON(out, true)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatCSV:
		data, err := toCSV(batchHeaders, BatchRows(res))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	totals := &models.ImportResult{Counts: res.Total, Dropped: res.Dropped, Events: res.Events}
	if format == FormatMarkdown {
		var buf bytes.Buffer
		buf.WriteString("# Batch Import Report\n\n")
		fmt.Fprintf(&buf, "**Files**: %d succeeded, %d failed\n\n", res.Succeeded, res.Failed)
		markdownTable(&buf, batchHeaders, BatchRows(res))
		buf.WriteString("\n## Totals\n\n")
		markdownTable(&buf, importHeaders, ImportRows(totals))
		_, err := w.Write(buf.Bytes())
		return err
	}

	_, err := fmt.Fprintf(w, "%d files imported, %d failed\n%s\n%s\n",
		res.Succeeded, res.Failed,
		renderTable(batchHeaders, BatchRows(res)),
		renderTable(importHeaders, ImportRows(totals)))
	return err
}

// WriteStats writes a titled list of labelled values to w in the given format.
func WriteStats(w io.Writer, title string, stats []Stat, format Format) error {
	headers := []string{"Name", "Value"}
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Name, s.Value}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = shared.MarshalJSON(stats, true)
		data = append(data, '\n')
	case FormatCSV:
		data, err = toCSV(headers, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "# %s\n\n", title)
		markdownTable(&buf, headers, rows)
		data = buf.Bytes()
	default:
		data = []byte(title + "\n" + renderTable(headers, rows) + "\n")
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
