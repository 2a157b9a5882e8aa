package catalog

import (
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type QueryResult struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// Search keeps the items whose name or category contains q, ignoring case.
// A blank q returns items unchanged. Otherwise q is matched as given,
// surrounding spaces included.
func Search(items []Item, q string) []Item {
	if strings.TrimSpace(q) == "" {
		return items
	}
	q = strings.ToLower(q)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Category), q) {
			out = append(out, it)
		}
	}
	return out
}

func Paginate(items []Item, page, limit int) QueryResult {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	total := len(items)
	res := QueryResult{
		Items:      []Item{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	// Compare pages before multiplying; (page-1)*limit can overflow.
	if page-1 >= res.TotalPages {
		return res
	}
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}

	res.Items = append(res.Items, items[start:end]...)
	return res
}

// ParsePageParams turns raw query values into a page and limit. Anything
// that is not a positive integer falls back to the default.
func ParsePageParams(pageStr, limitStr string) (page, limit int) {
	page = parsePositive(pageStr, DefaultPage)
	limit = parsePositive(limitStr, DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func parsePositive(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}
