package backtest

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"fund-strategy-lab/internal/domain"
)

// NAVModel describes a synthetic fund as a geometric random walk over weekdays.
type NAVModel struct {
	Start decimal.Decimal // NAV on the first day
	Drift float64         // expected annual log return
	Vol   float64         // annual volatility
	Seed  uint64
}

const tradingDaysPerYear = 252

// Series returns one event per weekday in [from, to], dated at UTC midnight.
// The same model always yields the same series.
func (m NAVModel) Series(from, to time.Time) []Event {
	dt := 1.0 / tradingDaysPerYear
	shock := distuv.Normal{
		Mu:    (m.Drift - m.Vol*m.Vol/2) * dt,
		Sigma: m.Vol * math.Sqrt(dt),
		Src:   rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15),
	}

	nav := m.Start.InexactFloat64()
	var out []Event
	for d, last := domain.Day(from), domain.Day(to); !d.After(last); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if len(out) > 0 {
			nav *= math.Exp(shock.Rand())
		}
		out = append(out, Event{Date: d, NAV: decimal.NewFromFloat(nav).Round(4)})
	}
	return out
}
