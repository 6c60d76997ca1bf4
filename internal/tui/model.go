// Package tui renders the guessing card in a terminal.
//
// The model owns one guess.Session at a time. Each key press maps to one
// engine call, and the view is rebuilt from the session's Result, so the
// engine itself never touches the screen.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/guessage/internal/guess"
)

// Styles groups the lipgloss styles used by the card.
type Styles struct {
	Card    lipgloss.Style
	Title   lipgloss.Style
	Message lipgloss.Style
	Done    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the card's look.
func DefaultStyles() Styles {
	return Styles{
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 3),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Message: lipgloss.NewStyle(),
		Done:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Model is the bubbletea model for one card.
type Model struct {
	max     int
	src     guess.Source
	session *guess.Session
	result  guess.Result
	err     error
	styles  Styles
}

// New opens a first session over [0, maxValue].
func New(maxValue int, src guess.Source) (Model, error) {
	m := Model{max: maxValue, src: src, styles: DefaultStyles()}
	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) restart() error {
	s, res, err := guess.Start(m.max, m.src)
	if err != nil {
		return err
	}
	m.session, m.result, m.err = s, res, nil
	return nil
}

// Session exposes the current session (read-only use).
func (m Model) Session() *guess.Session { return m.session }

// Result is the last result shown.
func (m Model) Result() guess.Result { return m.result }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "r":
		if err := m.restart(); err != nil {
			m.err = err
		}
		return m, nil
	case "o", "right":
		m.answer(guess.AnswerOlder)
	case "y", "left":
		m.answer(guess.AnswerYounger)
	case "c", "enter":
		m.answer(guess.AnswerCorrect)
	}
	return m, nil
}

func (m *Model) answer(a guess.Answer) {
	res, err := m.session.Apply(a)
	m.result = res
	if errors.Is(err, guess.ErrConverged) {
		// Controls are hidden once converged; stray keys are ignored.
		return
	}
	m.err = err
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Guess your age"))
	b.WriteString("\n\n")
	if m.result.State == guess.StateConverged {
		b.WriteString(m.styles.Done.Render(m.result.Message))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d answers  [r] again  [q] quit", m.result.Steps)))
	} else {
		b.WriteString(m.styles.Message.Render(m.result.Message))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("[y/←] younger  [o/→] older  [c/enter] correct  [q] quit"))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}
	return m.styles.Card.Render(b.String()) + "\n"
}
