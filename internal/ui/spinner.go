package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// doneMsg carries the work function's result back into the program.
type doneMsg[T any] struct{ v T }

type spinnerModel[T any] struct {
	spin   spinner.Model
	label  string
	result T
	done   bool
}

func (m spinnerModel[T]) Init() tea.Cmd {
	return m.spin.Tick
}

func (m spinnerModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg[T]:
		m.result = msg.v
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	// Keys are ignored: a run cannot be interrupted once started.
	return m, nil
}

func (m spinnerModel[T]) View() string {
	if m.done {
		return ""
	}
	return m.spin.View() + " " + lipgloss.NewStyle().Foreground(ColorMuted).Render(m.label) + "\n"
}

// RunWithSpinner runs work while showing a spinner on an interactive
// terminal. Without a terminal, or if the program fails to start, work runs
// plainly.
func RunWithSpinner[T any](label string, work func() T) T {
	if !IsInteractive() {
		return work()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	p := tea.NewProgram(spinnerModel[T]{spin: s, label: label}, tea.WithoutSignalHandler())

	resCh := make(chan T, 1)
	go func() {
		v := work()
		resCh <- v
		p.Send(doneMsg[T]{v: v})
	}()

	final, err := p.Run()
	if err == nil {
		if m, ok := final.(spinnerModel[T]); ok && m.done {
			return m.result
		}
	}
	return <-resCh
}
