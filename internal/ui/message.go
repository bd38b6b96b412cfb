package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/listenlog/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgImportComplete
)

type completion struct {
	result *tasks.BatchImportResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result *tasks.BatchImportResult, err error) Msg {
	return Msg{kind: MsgImportComplete, data: completion{result, err}}
}
