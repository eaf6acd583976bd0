package tui

import (
	"strings"

	"github.com/OmkarNiphade/todo-bot/internal/dispatch"
	"github.com/charmbracelet/lipgloss"
)

// Suggestions autocompletes slash commands.
type Suggestions struct {
	items       []SuggestionItem
	filtered    []SuggestionItem
	selectedIdx int
	visible     bool
}

// SuggestionItem represents a single autocomplete suggestion.
type SuggestionItem struct {
	Text        string
	Description string
}

var commandSuggestions = []SuggestionItem{
	{Text: "/" + dispatch.CmdAddTask, Description: "Add a task with a reminder"},
	{Text: "/" + dispatch.CmdViewTasks, Description: "List your tasks"},
	{Text: "/" + dispatch.CmdViewByCategory, Description: "List tasks by category"},
	{Text: "/" + dispatch.CmdRemoveTask, Description: "Remove a task"},
	{Text: "/" + dispatch.CmdCancel, Description: "Stop the current flow"},
	{Text: "/" + dispatch.CmdHelp, Description: "Show the welcome text"},
}

// NewSuggestions creates a new suggestions handler.
func NewSuggestions() *Suggestions {
	return &Suggestions{items: commandSuggestions}
}

// Update filters the suggestions for the current input. Only input starting
// with "/" and containing no spaces shows suggestions.
func (s *Suggestions) Update(input string) {
	if !strings.HasPrefix(input, "/") || strings.ContainsRune(input, ' ') {
		s.visible = false
		s.filtered = nil
		return
	}

	query := strings.ToLower(input)
	s.filtered = s.filtered[:0]
	for _, item := range s.items {
		if strings.HasPrefix(item.Text, query) && item.Text != query {
			s.filtered = append(s.filtered, item)
		}
	}
	if s.selectedIdx >= len(s.filtered) {
		s.selectedIdx = 0
	}
	s.visible = true
}

// Next moves to the next suggestion.
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion.
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible.
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(max(width-4, 20))

	itemStyle := lipgloss.NewStyle().Foreground(fgColor)

	for i, item := range s.filtered {
		if i == s.selectedIdx {
			b.WriteString(selectedStyle.Render("▶ " + item.Text))
			b.WriteString(" " + selectedStyle.Render(item.Description))
		} else {
			b.WriteString(itemStyle.Render("  " + item.Text))
			b.WriteString(" " + helpStyle.Render(item.Description))
		}
		if i < len(s.filtered)-1 {
			b.WriteString("\n")
		}
	}

	return boxStyle.Render(b.String())
}
