// Package ui implements a terminal progress view for imports using bubbletea's Elm architecture.
//
// The [Model] starts an import in the background and renders two views:
//  1. [ImportingView] : spinner, progress bar and the latest phase messages
//  2. [ResultView] : per-file outcome and per-entity counts
//
// Progress updates flow through a channel from the import engine. The model reads one update per
// command, so rendering never blocks the import.
//
// Key bindings (d, ?, q) are displayed with charmbracelet/bubbles/help.
package ui
