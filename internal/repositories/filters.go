package repositories

import (
	"sort"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ApplyResultFilters filters, orders and pages results in memory, for
// backends that cannot query.
func ApplyResultFilters(results []*models.Result, filters ResultFilters) []*models.Result {
	out := make([]*models.Result, 0, len(results))
	needle := strings.ToLower(strings.TrimSpace(filters.StudentName))
	for _, r := range results {
		if needle != "" && !strings.Contains(strings.ToLower(r.StudentName), needle) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if filters.SortOrder == "asc" {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return out[:0]
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out
}
