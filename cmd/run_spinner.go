package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
)

type runProgressMsg application.Progress

type runDoneMsg struct {
	err error
}

type runSpinnerModel struct {
	spinner  spinner.Model
	work     tea.Cmd
	answered int
	total    int
	failures int
	err      error
	done     bool
}

func newRunSpinnerModel(work tea.Cmd) runSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return runSpinnerModel{spinner: s, work: work}
}

func (m runSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m runSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case runProgressMsg:
		m.answered = msg.Done
		m.total = msg.Total
		if msg.Outcome.Failed() {
			m.failures++
		}
		return m, nil
	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m runSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.total == 0 {
		return fmt.Sprintf("%s Answering questions...", m.spinner.View())
	}
	label := fmt.Sprintf("%s answered %d/%d", m.spinner.View(), m.answered, m.total)
	if m.failures > 0 {
		label += fmt.Sprintf(" (%d failed)", m.failures)
	}
	return label
}

// runWithSpinner runs work while a spinner on output tracks per-question
// progress reported through the callback.
func runWithSpinner(ctx context.Context, output io.Writer, work func(ctx context.Context, onProgress func(application.Progress)) error) error {
	var p *tea.Program
	onProgress := func(progress application.Progress) {
		p.Send(runProgressMsg(progress))
	}
	workCmd := func() tea.Msg {
		return runDoneMsg{err: work(ctx, onProgress)}
	}

	p = tea.NewProgram(
		newRunSpinnerModel(workCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(runSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
