package main

import (
	"fmt"
	"strings"

	"topicquiz"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// stateChangedMsg is sent whenever the quiz reports a transition
type stateChangedMsg struct{}

// waitForUpdate blocks until the quiz signals a transition
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return stateChangedMsg{}
	}
}

// model renders the quiz and turns key presses into quiz actions. It keeps
// no quiz state of its own beyond the option cursor.
type model struct {
	quiz    *topicquiz.Quiz
	updates <-chan struct{}

	input   textinput.Model
	spinner spinner.Model
	cursor  int
	notice  string // why the last action was rejected
	width   int
}

func newModel(quiz *topicquiz.Quiz, updates <-chan struct{}) model {
	ti := textinput.New()
	ti.Placeholder = "History, Jazz, Volcanoes..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	return model{
		quiz:    quiz,
		updates: updates,
		input:   ti,
		spinner: sp,
		width:   60,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForUpdate(m.updates))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		return m, waitForUpdate(m.updates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-16, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.quiz.State()
	key := msg.String()

	switch state.Phase {
	case topicquiz.PhaseSelectingCategory:
		switch key {
		case "esc":
			return m, tea.Quit
		case "enter":
			m.act(m.quiz.SelectCategory(m.input.Value()))
			if m.notice == "" {
				m.input.Reset()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case topicquiz.PhaseLoading:
		if key == "q" || key == "esc" {
			return m, tea.Quit
		}

	case topicquiz.PhaseInQuiz:
		q, _ := state.CurrentQuestion()
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if !state.Answered && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if !state.Answered && m.cursor < len(q.Options)-1 {
				m.cursor++
			}
		case "1", "2", "3", "4":
			i := int(key[0] - '1')
			if !state.Answered && i < len(q.Options) {
				m.cursor = i
				m.act(m.quiz.SubmitAnswer(q.Options[i]))
			}
		case "enter", " ":
			if !state.Answered {
				if m.cursor < len(q.Options) {
					m.act(m.quiz.SubmitAnswer(q.Options[m.cursor]))
				}
				return m, nil
			}
			m.act(m.quiz.Advance())
			m.cursor = 0
		}

	case topicquiz.PhaseShowingResult:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "enter", "p":
			m.act(m.quiz.PlayAgain())
		}

	case topicquiz.PhaseFailed:
		switch key {
		case "q":
			return m, tea.Quit
		case "enter", "r":
			m.act(m.quiz.Retry())
		case "esc", "n":
			m.act(m.quiz.Reset())
		}
	}
	return m, nil
}

// act records why an action was rejected, or clears the last notice
func (m *model) act(err error) {
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = ""
}

func (m model) View() string {
	state := m.quiz.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Topic Quiz"))
	b.WriteString("\n\n")

	switch state.Phase {
	case topicquiz.PhaseSelectingCategory:
		b.WriteString("Pick a topic for five questions:\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Enter: start   Esc: quit"))

	case topicquiz.PhaseLoading:
		fmt.Fprintf(&b, "%s Generating questions about %s...\n\n", m.spinner.View(), state.Category)
		b.WriteString(dimStyle.Render("q: quit"))

	case topicquiz.PhaseInQuiz:
		m.viewQuestion(&b, state)

	case topicquiz.PhaseShowingResult:
		fmt.Fprintf(&b, "Quiz complete: %s\n\n", state.Category)
		b.WriteString(correctStyle.Render(fmt.Sprintf("You scored %d / %d", state.Score, state.Total())))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Enter: play again   q: quit"))

	case topicquiz.PhaseFailed:
		b.WriteString(errorStyle.Render(state.ErrorMessage))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Enter: try again   n: new topic   q: quit"))
	}

	if m.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.notice))
	}

	return boxStyle.Width(max(m.width-4, 20)).Render(b.String())
}

func (m model) viewQuestion(b *strings.Builder, state topicquiz.State) {
	q, _ := state.CurrentQuestion()

	b.WriteString(dimStyle.Render(fmt.Sprintf("%s · Question %d of %d · Score %d",
		state.Category, state.CurrentIndex+1, state.Total(), state.Score)))
	b.WriteString("\n\n")
	b.WriteString(q.Text)
	b.WriteString("\n\n")

	for i, o := range q.Options {
		prefix := "  "
		if !state.Answered && i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%d. %s", i+1, o)
		switch state.Mark(o) {
		case topicquiz.MarkCorrect:
			line = correctStyle.Render(line + "  ✓")
		case topicquiz.MarkWrong:
			line = wrongStyle.Render(line) + errorStyle.Render("  ✗")
		case topicquiz.MarkDimmed:
			line = dimStyle.Render(line)
		}
		b.WriteString(prefix + line + "\n")
	}

	b.WriteString("\n")
	if !state.Answered {
		b.WriteString(dimStyle.Render("↑/↓ or 1-4: choose   Enter: answer   q: quit"))
		return
	}
	next := "next question"
	if state.IsLastQuestion() {
		next = "see results"
	}
	b.WriteString(dimStyle.Render("Enter: " + next + "   q: quit"))
}
