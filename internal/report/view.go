package report

import (
	"sort"
	"strings"

	"mizan/internal/core"
)

// PageSize is the fixed number of ledger rows per page.
const PageSize = 10

// ApplyFilters narrows the ledger to the rows matching the filters and
// returns the requested page. Empty filter fields match everything. An
// out-of-range page number is clamped into [1, totalPages], so callers
// never receive an empty page while matches exist.
func ApplyFilters(ledger []core.Transaction, f core.Filters, page int) core.Page {
	search := strings.ToLower(f.Search)

	var filtered []core.Transaction
	for _, t := range ledger {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		filtered = append(filtered, t)
	}

	totalPages := (len(filtered) + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	items := filtered[start:end]
	if items == nil {
		items = []core.Transaction{}
	}
	return core.Page{
		Items:       items,
		TotalItems:  len(filtered),
		TotalPages:  totalPages,
		CurrentPage: page,
	}
}

func matchesSearch(t core.Transaction, search string) bool {
	return strings.Contains(strings.ToLower(t.Description), search) ||
		strings.Contains(strings.ToLower(t.RelatedName), search) ||
		strings.Contains(strings.ToLower(t.Category), search)
}

// Categories lists the distinct categories present in the ledger,
// sorted, for populating filter choices.
func Categories(ledger []core.Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range ledger {
		if t.Category == "" {
			continue
		}
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}
