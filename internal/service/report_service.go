package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"todolist/internal/model"
)

const dueSoonWindow = 48 * time.Hour

// ReportService builds human-readable summaries for scheduled notifications.
type ReportService struct {
	todos *TodoService
}

func NewReportService(todos *TodoService) *ReportService {
	return &ReportService{todos: todos}
}

// Summary renders the report as Telegram HTML.
func (s *ReportService) Summary(ctx context.Context, now time.Time) (string, error) {
	stats, err := s.todos.Stats(ctx)
	if err != nil {
		return "", err
	}

	overdue, err := s.todos.List(ctx, model.Filters{
		Statuses:  []model.Status{model.StatusOverdue},
		SortField: model.SortDueAt,
	})
	if err != nil {
		return "", err
	}

	dueSoon, err := s.todos.DueSoon(ctx, dueSoonWindow)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Todo report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Total: %d · Completed: %d · Pending: %d · Overdue: %d\n",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue))

	builder.WriteString("\n⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, todo := range overdue {
			builder.WriteString(FormatTodo(todo, now))
		}
	}

	builder.WriteString("\n⏳ <b>Due in the next 48h</b>\n")
	if len(dueSoon) == 0 {
		builder.WriteString("— nothing due soon\n")
	} else {
		for _, todo := range dueSoon {
			builder.WriteString(FormatTodo(todo, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTodo renders one todo as a Telegram HTML line with its due date and description.
func FormatTodo(todo model.Todo, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if todo.DueAt != nil {
		d := todo.DueAt.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= dueSoonWindow:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(todo.Title))))
	if todo.Priority != nil {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", model.PriorityLabel(todo.Priority)))
	}

	if todo.DueAt != nil {
		d := todo.DueAt.In(now.Location())
		if now.After(d) {
			daysLate := int(now.Sub(d).Hours() / 24)
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>%d d late</b>", d.Format("2006-01-02"), daysLate))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format("2006-01-02 15:04")))
		}
	}

	if todo.Description != nil && *todo.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(*todo.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}
