// Package ui provides the Bubbletea terminal user interface for audioconvertctl.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the Bubbletea model for the conversion-run UI. It tracks one
// input/output pair being driven through a node tick by tick.
type Model struct {
	InputPath  string
	OutputPath string

	Tick      int
	FramesOut int64

	InPassthrough       bool
	MixPassthrough      bool
	ResamplePassthrough bool
	OutPassthrough      bool
	RateMatchDelay      int

	StartTime time.Time
	Done      bool
	Err       error

	// ProgressChan is the channel the model waits on for its next message.
	// audioconvertctl's driver loop delivers TickMsg/DoneMsg through
	// tea.Program.Send instead and never writes to it.
	ProgressChan chan tea.Msg

	Width  int
	Height int
}

// NewModel creates a new UI model for one input/output pair.
func NewModel(inputPath, outputPath string) Model {
	return Model{
		InputPath:    inputPath,
		OutputPath:   outputPath,
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		m.Tick = msg.Tick
		m.FramesOut = msg.FramesOut
		m.InPassthrough = msg.InPassthrough
		m.MixPassthrough = msg.MixPassthrough
		m.ResamplePassthrough = msg.ResamplePassthrough
		m.OutPassthrough = msg.OutPassthrough
		m.RateMatchDelay = msg.RateMatchDelay
		return m, waitForProgress(m.ProgressChan)

	case DoneMsg:
		m.Tick = msg.Ticks
		m.FramesOut = msg.FramesOut
		m.Err = msg.Err
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nInput: %s\n", m.InputPath)
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

// waitForProgress creates a command that waits for the next message from
// the driver loop.
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
