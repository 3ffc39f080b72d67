package domain

// MetricKey identifies a numeric field of a strategy backtest that can be charted.
type MetricKey string

// Chartable metric keys, in display order.
const (
	MetricTotalAmount       MetricKey = "totalAmount"
	MetricLeftAmount        MetricKey = "leftAmount"
	MetricProfitRate        MetricKey = "profitRate"
	MetricProfit            MetricKey = "profit"
	MetricFundAmount        MetricKey = "fundAmount"
	MetricFundGrowthRate    MetricKey = "fundGrowthRate"
	MetricMaxPrincipal      MetricKey = "maxPrincipal"
	MetricAccumulatedProfit MetricKey = "accumulatedProfit"
	MetricTotalProfitRate   MetricKey = "totalProfitRate"
	MetricPosition          MetricKey = "position"
)

// Per-day flow fields. They exist on backtest rows but are not comparable across strategies.
const (
	MetricFundVal        MetricKey = "fundVal"
	MetricDateBuyAmount  MetricKey = "dateBuyAmount"
	MetricDateSellAmount MetricKey = "dateSellAmount"
	MetricBuy            MetricKey = "buy"
	MetricFixedBuy       MetricKey = "fixedBuy"
	MetricSell           MetricKey = "sell"
)

// ChartableMetrics is the metric vocabulary offered by the compare form.
var ChartableMetrics = []MetricKey{
	MetricTotalAmount,
	MetricLeftAmount,
	MetricProfitRate,
	MetricProfit,
	MetricFundAmount,
	MetricFundGrowthRate,
	MetricMaxPrincipal,
	MetricAccumulatedProfit,
	MetricTotalProfitRate,
	MetricPosition,
}

// ExcludedMetrics are never offered for comparison.
var ExcludedMetrics = []MetricKey{
	MetricFundVal,
	MetricDateBuyAmount,
	MetricDateSellAmount,
	MetricBuy,
	MetricFixedBuy,
	MetricSell,
}

// DefaultChartMetrics is the initial metric selection of the compare form.
var DefaultChartMetrics = []MetricKey{
	MetricTotalAmount,
	MetricAccumulatedProfit,
	MetricTotalProfitRate,
	MetricPosition,
}

// IsChartable reports whether key belongs to ChartableMetrics.
func IsChartable(key string) bool {
	for _, m := range ChartableMetrics {
		if string(m) == key {
			return true
		}
	}
	return false
}

// IsExcluded reports whether key is a known but non-comparable metric.
func IsExcluded(key string) bool {
	for _, m := range ExcludedMetrics {
		if string(m) == key {
			return true
		}
	}
	return false
}

// MetricKeyStrings converts keys to plain strings.
func MetricKeyStrings(keys []MetricKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// Label returns the display label of key, or key itself when labels has none.
func Label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok && l != "" {
		return l
	}
	return key
}
