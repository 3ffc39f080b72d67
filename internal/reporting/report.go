package reporting

import (
	"time"

	"fund-strategy-lab/internal/domain"
)

// Report is a printable compare result.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Query       domain.CompareQuery

	// One row per selected strategy, in selection order
	Records []domain.CompareRecord

	// Best and worst strategy per compared value
	Rankings []RankingRow

	// Strategies with no snapshots in the range (all values zero)
	MissingData []string
}

// RankingRow names the best and worst strategy for one value.
type RankingRow struct {
	Field      string
	Label      string
	Best       string
	BestValue  float64
	Worst      string
	WorstValue float64
}
