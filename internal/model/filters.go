package model

import (
	"net/url"
	"strconv"
	"strings"
)

// Filters describes which todos to list and in what order.
// Dimensions combine with AND, values inside one dimension with OR.
type Filters struct {
	Search        string        `json:"search"`
	Statuses      []Status      `json:"statuses"`
	Priorities    []Priority    `json:"priorities"`
	SortField     SortField     `json:"sortField"`
	SortDirection SortDirection `json:"sortDirection"`
}

// DefaultFilters lists everything in manual order.
func DefaultFilters() Filters {
	return Filters{SortField: SortOrderIndex, SortDirection: SortAsc}
}

// Normalized fills empty sort settings with the defaults and drops duplicate selectors.
func (f Filters) Normalized() Filters {
	if f.SortField == "" {
		f.SortField = SortOrderIndex
	}
	if f.SortDirection == "" {
		f.SortDirection = SortAsc
	}
	f.Statuses = dedupe(f.Statuses)
	f.Priorities = dedupe(f.Priorities)
	return f
}

// HasSearch reports whether the search term restricts the result.
func (f Filters) HasSearch() bool {
	return strings.TrimSpace(f.Search) != ""
}

// HasStatus reports whether s is selected.
func (f Filters) HasStatus(s Status) bool {
	for _, v := range f.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseFilters reads filters from a query string: q, status, priority, sort and dir.
// status and priority may repeat or hold comma separated values.
func ParseFilters(values url.Values) (Filters, error) {
	f := DefaultFilters()
	f.Search = values.Get("q")

	for _, raw := range splitValues(values["status"]) {
		s, err := ParseStatus(raw)
		if err != nil {
			return Filters{}, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	for _, raw := range splitValues(values["priority"]) {
		p, err := ParsePriority(raw)
		if err != nil {
			return Filters{}, err
		}
		f.Priorities = append(f.Priorities, p)
	}

	field, err := ParseSortField(values.Get("sort"))
	if err != nil {
		return Filters{}, err
	}
	dir, err := ParseSortDirection(values.Get("dir"))
	if err != nil {
		return Filters{}, err
	}
	f.SortField = field
	f.SortDirection = dir
	return f.Normalized(), nil
}

// Values encodes the filters in the form ParseFilters reads.
func (f Filters) Values() url.Values {
	f = f.Normalized()
	v := url.Values{}
	if f.HasSearch() {
		v.Set("q", f.Search)
	}
	for _, s := range f.Statuses {
		v.Add("status", string(s))
	}
	for _, p := range f.Priorities {
		if p == PriorityNone {
			v.Add("priority", "none")
			continue
		}
		v.Add("priority", strconv.Itoa(int(p)))
	}
	v.Set("sort", string(f.SortField))
	v.Set("dir", string(f.SortDirection))
	return v
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dedupe[T comparable](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
