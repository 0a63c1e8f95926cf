package compliance

import "github.com/jwalitptl/mediguard/internal/model"

// ComplianceRate is round-half-up(100 * taken / total), 100 for no history.
func ComplianceRate(history []model.ComplianceEvent) int {
	total := len(history)
	if total == 0 {
		return 100
	}
	taken := 0
	for _, ev := range history {
		if ev.Status == model.OutcomeTaken {
			taken++
		}
	}
	return (200*taken + total) / (2 * total)
}
