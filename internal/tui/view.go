package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"todolist/internal/model"
)

var (
	accentColor = lipgloss.Color("63")
	mutedColor  = lipgloss.Color("244")
	errorColor  = lipgloss.Color("196")

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(accentColor).
			Padding(0, 1)
	infoStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("230")).
		Background(accentColor).
		Bold(true)
	return s
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleBarStyle.Render("Todos"))
	sb.WriteString("\n\n")

	switch m.mode {
	case HelpMode:
		sb.WriteString(m.helpView())
		return sb.String()
	case AddMode:
		sb.WriteString(promptStyle.Render("New todo\n" + m.input.View()))
		sb.WriteString("\n" + infoStyle.Render("enter to save · esc to cancel"))
		return sb.String()
	case SearchMode:
		sb.WriteString(promptStyle.Render("Search\n" + m.input.View()))
		sb.WriteString("\n" + infoStyle.Render("enter to apply, empty clears · esc to cancel"))
		return sb.String()
	}

	if m.store.Loading() && m.store.Len() == 0 {
		sb.WriteString(infoStyle.Render("Loading…"))
	} else if m.store.Len() == 0 {
		sb.WriteString(infoStyle.Render("Nothing here. Press a to add a todo."))
	} else {
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(filterSummary(m.store.Filters(), m.store.Len())))
	sb.WriteString("\n")

	if m.mode == DeleteConfirmMode {
		if todo, ok := m.store.Get(m.pendingID); ok {
			sb.WriteString(errorStyle.Render(fmt.Sprintf("Delete #%d %q? (y/n)", todo.ID, todo.Title)))
			sb.WriteString("\n")
		}
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + describeError(m.err)))
		sb.WriteString("\n")
	} else if m.notice != "" {
		sb.WriteString(noticeStyle.Render(m.notice))
		sb.WriteString("\n")
	}

	sb.WriteString(infoStyle.Render(bindingsLine(m.keys.short())))
	return sb.String()
}

func (m Model) helpView() string {
	var sb strings.Builder
	for _, b := range m.keys.full() {
		h := b.Help()
		sb.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
	}
	sb.WriteString("\n" + infoStyle.Render("press any key to go back"))
	return sb.String()
}

func filterSummary(f model.Filters, count int) string {
	parts := []string{fmt.Sprintf("%d todos", count)}
	if f.HasSearch() {
		parts = append(parts, fmt.Sprintf("search %q", strings.TrimSpace(f.Search)))
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			names[i] = string(s)
		}
		parts = append(parts, "status "+strings.Join(names, ","))
	}
	if len(f.Priorities) > 0 {
		names := make([]string, len(f.Priorities))
		for i, p := range f.Priorities {
			names[i] = p.String()
		}
		parts = append(parts, "priority "+strings.Join(names, ","))
	}
	parts = append(parts, fmt.Sprintf("sorted by %s %s", f.SortField, f.SortDirection))
	return strings.Join(parts, " · ")
}

func bindingsLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
