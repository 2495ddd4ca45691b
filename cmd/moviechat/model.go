package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/WessleyAI/marquee/engine/dispatch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F5C518")).
			Padding(0, 1)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	botStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666680"))
)

type message struct {
	role    string
	content string
	failed  bool
}

type answerMsg struct {
	resp dispatch.Response
	err  error
}

type asker interface {
	ask(ctx context.Context, text string) (dispatch.Response, error)
}

type model struct {
	ctx      context.Context
	api      asker
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	messages []message
	ready    bool
	loading  bool
}

func newModel(ctx context.Context, api asker) model {
	ti := textinput.New()
	ti.Placeholder = "Recommend movies like Heat"
	ti.Prompt = "┃ "
	ti.CharLimit = 1000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	r, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	return model{ctx: ctx, api: api, input: ti, spinner: s, renderer: r}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) send(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.api.ask(m.ctx, text)
		return answerMsg{resp: resp, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.loading {
				return m, nil
			}
			m.input.Reset()
			m.messages = append(m.messages, message{role: "You", content: text})
			m.loading = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.send(text))
		}

	case tea.WindowSizeMsg:
		const chrome = 5
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, msg.Height-chrome
		}
		m.input.Width = msg.Width - 4
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(msg.Width-4)); err == nil {
			m.renderer = r
		}
		m.refresh()

	case answerMsg:
		m.loading = false
		if msg.err != nil {
			m.messages = append(m.messages, message{role: "Marquee", content: msg.err.Error(), failed: true})
		} else {
			m.messages = append(m.messages, message{role: "Marquee", content: markdown(msg.resp)})
			if msg.resp.Intent == dispatch.Goodbye.String() {
				m.refresh()
				return m, tea.Quit
			}
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inCmd, vpCmd tea.Cmd
	m.input, inCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(inCmd, vpCmd)
}

// transcript renders the conversation.
func (m model) transcript() string {
	var b strings.Builder
	for _, msg := range m.messages {
		switch {
		case msg.role == "You":
			b.WriteString(userStyle.Render("You: ") + msg.content + "\n\n")
		case msg.failed:
			b.WriteString(botStyle.Render("Marquee: ") + errorStyle.Render(msg.content) + "\n\n")
		default:
			body := msg.content
			if m.renderer != nil {
				if out, err := m.renderer.Render(msg.content); err == nil {
					body = strings.TrimSpace(out)
				}
			}
			b.WriteString(botStyle.Render("Marquee:") + "\n" + body + "\n\n")
		}
	}
	return b.String()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "loading…"
	}
	status := helpStyle.Render("enter: send • esc: quit")
	if m.loading {
		status = m.spinner.View() + " thinking…"
	}
	return titleStyle.Render("Marquee") + "\n" + m.viewport.View() + "\n" + m.input.View() + "\n" + status
}
