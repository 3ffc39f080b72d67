package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Range: %s to %s | Strategies: %d\n\n",
		r.Query.Start().Format(time.DateOnly), r.Query.End().Format(time.DateOnly), len(r.Records)))
	if len(r.Query.ChartChecked) > 0 {
		sb.WriteString(fmt.Sprintf("Metrics: %s\n\n", strings.Join(r.Query.ChartChecked, ", ")))
	}

	// Records
	sb.WriteString("## Records\n\n")
	if len(r.Records) > 0 {
		sb.WriteString("| Strategy | AvgPos | MaxPos | ProfitPerInvest | ProfitAmountPerPos |\n")
		sb.WriteString("|----------|--------|--------|-----------------|--------------------|\n")
		for _, rec := range r.Records {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.4f |\n",
				escapeCell(rec.Name), rec.AvgPos, rec.MaxPos, rec.ProfitPerInvest, rec.ProfitAmountPerPos))
		}
	} else {
		sb.WriteString("No strategies compared.\n")
	}
	sb.WriteString("\n")

	// Rankings
	if len(r.Rankings) > 0 {
		sb.WriteString("## Rankings\n\n")
		sb.WriteString("| Value | Best | Worst |\n")
		sb.WriteString("|-------|------|-------|\n")
		for _, row := range r.Rankings {
			sb.WriteString(fmt.Sprintf("| %s | %s (%.4f) | %s (%.4f) |\n",
				row.Label, escapeCell(row.Best), row.BestValue, escapeCell(row.Worst), row.WorstValue))
		}
		sb.WriteString("\n")
	}

	// Data quality
	if len(r.MissingData) > 0 {
		sb.WriteString("## Missing Data\n\n")
		for _, name := range r.MissingData {
			sb.WriteString(fmt.Sprintf("- %s has no snapshots in range\n", name))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
