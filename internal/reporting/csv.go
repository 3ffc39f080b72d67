package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"fund-strategy-lab/internal/domain"
)

// RenderCSV renders compare records as CSV string.
func RenderCSV(records []domain.CompareRecord) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Writes to a strings.Builder cannot fail.
	_ = w.Write([]string{"name", "avg_pos", "max_pos", "profit_per_invest", "profit_amount_per_pos"})
	for _, r := range records {
		_ = w.Write([]string{
			r.Name,
			formatFloat(r.AvgPos),
			formatFloat(r.MaxPos),
			formatFloat(r.ProfitPerInvest),
			formatFloat(r.ProfitAmountPerPos),
		})
	}
	w.Flush()

	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
