// internal/tui/chat.go

// Package tui provides an interactive question-and-answer loop in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/ragqa/internal/rag"
)

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, query string) (rag.Response, error)
}

// exchange is one question and its outcome.
type exchange struct {
	question string
	answer   string
	sources  []string
	err      error
	elapsed  time.Duration
}

// answerMsg carries a completed Ask back into the update loop.
type answerMsg struct {
	resp    rag.Response
	err     error
	elapsed time.Duration
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inputStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type model struct {
	ctx       context.Context
	asker     Asker
	subtitle  string
	textArea  textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	history   []exchange
	isLoading bool
	pending   string
	width     int
	height    int
}

func initialModel(ctx context.Context, asker Asker, subtitle string) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Ask a question about the indexed site..."
	ta.Focus()
	ta.Prompt = "Ask Anything: "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return &model{
		ctx:      ctx,
		asker:    asker,
		subtitle: subtitle,
		textArea: ta,
		viewport: viewport.New(100, 10),
		spinner:  s,
	}
}

// Run starts the interactive loop and blocks until the user quits.
func Run(ctx context.Context, asker Asker, subtitle string) error {
	p := tea.NewProgram(initialModel(ctx, asker, subtitle), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func askCmd(ctx context.Context, asker Asker, question string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		resp, err := asker.Ask(ctx, question)
		return answerMsg{resp: resp, err: err, elapsed: time.Since(start)}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(max(20, msg.Width-4))
		_, frameH := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-frameH-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			question := strings.TrimSpace(m.textArea.Value())
			if question == "" {
				return m, nil
			}
			m.textArea.Reset()
			m.isLoading = true
			m.pending = question
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, askCmd(m.ctx, m.asker, question))
		}

	case answerMsg:
		m.history = append(m.history, exchange{
			question: m.pending,
			answer:   msg.resp.Answer,
			sources:  msg.resp.Context,
			err:      msg.err,
			elapsed:  msg.elapsed,
		})
		m.pending = ""
		m.isLoading = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RAG Q&A Bot"))
	if m.subtitle != "" {
		b.WriteString("  " + subtitleStyle.Render(m.subtitle))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(inputStyle.Render(m.textArea.View()))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("enter: ask • esc/ctrl+c: quit"))
	return b.String()
}

func (m *model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *model) transcript() string {
	if len(m.history) == 0 && !m.isLoading {
		return subtitleStyle.Render("No questions yet.")
	}
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(questionStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(answerStyle.Width(width).Render("Bot: " + ex.answer))
		b.WriteString("\n")
		if len(ex.sources) > 0 {
			b.WriteString(sourceStyle.Render("Sources: " + strings.Join(ex.sources, ", ")))
			b.WriteString("\n")
		}
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("(%s)", ex.elapsed.Truncate(time.Millisecond))))
		b.WriteString("\n\n")
	}
	if m.isLoading {
		b.WriteString(questionStyle.Render("You: " + m.pending))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " Thinking...")
	}
	return b.String()
}
