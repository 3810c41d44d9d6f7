package ui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type taskDoneMsg struct{ err error }

// spinnerModel shows a spinner beside a label until the task reports back.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newSpinnerModel(label string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(InfoStyle),
		),
		label: label,
	}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.label + "\n"
}

// RunWithSpinner runs task while a spinner labelled label animates on out.
// When out is not a terminal the task runs without any animation.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, task func(context.Context) error) error {
	if !IsTerminal(out) {
		return task(ctx)
	}

	p := tea.NewProgram(newSpinnerModel(label),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithContext(ctx),
	)

	errCh := make(chan error, 1)
	go func() {
		err := task(ctx)
		errCh <- err
		p.Send(taskDoneMsg{err: err})
	}()

	// The program exits on its own once the task reports back, or early
	// when ctx ends; either way the task's result is what matters.
	_, _ = p.Run()
	return <-errCh
}
