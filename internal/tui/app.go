// Package tui provides a local terminal chat with the bot, talking to the
// same dispatcher the Telegram transport uses.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/OmkarNiphade/todo-bot/internal/dispatch"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	userStyle     = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	botStyle      = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	reminderStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
)

// ErrNotRunning is returned by Notify after Run has returned.
var ErrNotRunning = errors.New("console not running")

// Handler answers one chat message.
type Handler interface {
	Handle(ctx context.Context, msg dispatch.Message) string
}

// ReminderMsg delivers a fired reminder into the running console.
type ReminderMsg struct {
	Reminder models.Reminder
}

type replyMsg struct {
	text string
}

type speaker int

const (
	fromUser speaker = iota
	fromBot
	fromReminder
)

type line struct {
	from speaker
	text string
}

// App is the chat console model.
type App struct {
	ctx         context.Context
	handler     Handler
	userID      int64
	input       textinput.Model
	viewport    viewport.Model
	suggestions *Suggestions
	lines       []line
	busy        bool
	width       int
	height      int

	mu       sync.Mutex
	program  *tea.Program
	queued   []models.Reminder
	finished bool
}

// New creates a console chatting as userID.
func New(ctx context.Context, handler Handler, userID int64) *App {
	ti := textinput.New()
	ti.Placeholder = "Type /addtask, /viewtasks, /removetask or a reply"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 80

	a := &App{
		ctx:         ctx,
		handler:     handler,
		userID:      userID,
		input:       ti,
		viewport:    viewport.New(80, 20),
		suggestions: NewSuggestions(),
	}
	a.lines = append(a.lines, line{from: fromBot, text: dispatch.Welcome})
	a.refresh()
	return a
}

// Run starts the console and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))

	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.program = nil
		a.finished = true
		a.mu.Unlock()
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Notify shows a fired reminder in the console. Reminders arriving before Run
// are queued and shown once the console starts.
func (a *App) Notify(ctx context.Context, r models.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	p := a.program
	switch {
	case a.finished:
		a.mu.Unlock()
		return ErrNotRunning
	case p == nil:
		a.queued = append(a.queued, r)
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	p.Send(ReminderMsg{Reminder: r})
	return nil
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	a.mu.Lock()
	queued := a.queued
	a.queued = nil
	a.mu.Unlock()

	cmds := []tea.Cmd{textinput.Blink}
	for _, r := range queued {
		r := r
		cmds = append(cmds, func() tea.Msg { return ReminderMsg{Reminder: r} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return a, tea.Quit

		case tea.KeyUp:
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
				return a, nil
			}
			a.viewport.LineUp(1)
			return a, nil

		case tea.KeyDown:
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
				return a, nil
			}
			a.viewport.LineDown(1)
			return a, nil

		case tea.KeyTab:
			if selected := a.suggestions.Selected(); selected != nil {
				a.input.SetValue(selected.Text)
				a.input.CursorEnd()
				a.suggestions.Update(a.input.Value())
			}
			return a, nil

		case tea.KeyEnter:
			text := strings.TrimSpace(a.input.Value())
			if selected := a.suggestions.Selected(); selected != nil {
				text = selected.Text
			}
			if text == "" || a.busy {
				return a, nil
			}
			a.input.Reset()
			a.suggestions.Update("")
			a.busy = true
			a.push(line{from: fromUser, text: text})
			return a, a.send(text)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(msg.Width-6, 10)
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-8, 3)
		a.refresh()

	case replyMsg:
		a.busy = false
		a.push(line{from: fromBot, text: msg.text})
		return a, nil

	case ReminderMsg:
		a.push(line{from: fromReminder, text: dispatch.RenderReminder(msg.Reminder)})
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.suggestions.Update(a.input.Value())
	return a, cmd
}

// send runs the message through the handler off the UI goroutine.
func (a *App) send(text string) tea.Cmd {
	return func() tea.Msg {
		reply := a.handler.Handle(a.ctx, dispatch.Message{UserID: a.userID, Text: text})
		return replyMsg{text: reply}
	}
}

func (a *App) push(l line) {
	a.lines = append(a.lines, l)
	a.refresh()
}

func (a *App) refresh() {
	var b strings.Builder
	for i, l := range a.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch l.from {
		case fromUser:
			b.WriteString(userStyle.Render("you ›") + " " + l.text)
		case fromBot:
			b.WriteString(botStyle.Render("bot ›") + " " + l.text)
		case fromReminder:
			b.WriteString(reminderStyle.Render("⏰ " + l.text))
		}
	}
	a.viewport.SetContent(b.String())
	a.viewport.GotoBottom()
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("To-Do Bot")
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[user %d]", a.userID))
	if a.busy {
		header += "  " + helpStyle.Render("thinking…")
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	status := " Enter:send | Tab:complete | ↑↓:scroll | Ctrl+C:quit"
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}
