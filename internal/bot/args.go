package bot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"todolist/internal/model"
	"todolist/internal/validation"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("wrong arguments")

func parseID(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%q is not a todo id", raw)
	}
	return uint(value), nil
}

// splitIDRest reads "<id> <rest>" as used by /rename, /priority and /due.
func splitIDRest(args string) (uint, string, error) {
	args = strings.TrimSpace(args)
	head, rest, _ := strings.Cut(args, " ")
	if head == "" {
		return 0, "", errUsage
	}
	id, err := parseID(head)
	if err != nil {
		return 0, "", err
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, "", errUsage
	}
	return id, rest, nil
}

func parseIDPair(args string) (uint, uint, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, errUsage
	}
	a, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := parseID(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// parseDraft reads "title | description".
func parseDraft(args string) model.Draft {
	title, description, found := strings.Cut(args, "|")
	draft := model.Draft{Title: strings.TrimSpace(title)}
	if found {
		if d := strings.TrimSpace(description); d != "" {
			draft.Description = &d
		}
	}
	return draft
}

func isNone(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "-", "null", "clear":
		return true
	}
	return false
}

func parsePriorityArg(raw string) (model.Field[model.Priority], error) {
	if isNone(raw) {
		return model.Null[model.Priority](), nil
	}
	p, err := model.ParsePriority(raw)
	if err != nil || p == model.PriorityNone {
		return model.Field[model.Priority]{}, fmt.Errorf("priority must be 0-3 or none")
	}
	return model.Some(p), nil
}

// parseDueArg reads a calendar date; the todo becomes due at the end of that day (UTC).
func parseDueArg(raw string) (model.Field[time.Time], error) {
	if isNone(raw) {
		return model.Null[time.Time](), nil
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return model.Field[time.Time]{}, fmt.Errorf("date must look like %s", dateLayout)
	}
	return model.Some(day.Add(24*time.Hour - time.Second)), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseStatusList(raw string) ([]model.Status, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "all") {
		return nil, nil
	}
	var out []model.Status
	for _, part := range splitList(raw) {
		s, err := model.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parsePriorityList(raw string) ([]model.Priority, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "all") {
		return nil, nil
	}
	var out []model.Priority
	for _, part := range splitList(raw) {
		p, err := model.ParsePriority(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parseSortArgs(raw string) (model.SortField, model.SortDirection, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 || len(fields) > 2 {
		return "", "", errUsage
	}
	field, err := model.ParseSortField(fields[0])
	if err != nil {
		return "", "", err
	}
	dir := model.SortAsc
	if len(fields) == 2 {
		if dir, err = model.ParseSortDirection(fields[1]); err != nil {
			return "", "", err
		}
	}
	return field, dir, nil
}

func describeFilters(f model.Filters) string {
	var parts []string
	if f.HasSearch() {
		parts = append(parts, fmt.Sprintf("search “%s”", escape(strings.TrimSpace(f.Search))))
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			names[i] = string(s)
		}
		parts = append(parts, "status "+strings.Join(names, ", "))
	}
	if len(f.Priorities) > 0 {
		names := make([]string, len(f.Priorities))
		for i, p := range f.Priorities {
			names[i] = p.String()
		}
		parts = append(parts, "priority "+strings.Join(names, ", "))
	}
	if f.SortField != model.SortOrderIndex || f.SortDirection != model.SortAsc {
		parts = append(parts, fmt.Sprintf("sorted by %s %s", f.SortField, f.SortDirection))
	}
	if len(parts) == 0 {
		return ""
	}
	return "🔎 " + strings.Join(parts, " · ")
}

func formatValidation(errs validation.Errors) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("❗ Please fix:")
	for _, field := range fields {
		for _, msg := range errs[field] {
			b.WriteString("\n• " + escape(msg))
		}
	}
	return b.String()
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
