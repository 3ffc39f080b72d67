package form

import "net/url"

// Keys of an HTML form post or query string.
const (
	KeyStrategy = "strategy"
	KeyMetric   = "metric"
	KeyStart    = "start"
	KeyEnd      = "end"
)

// ValuesFromURL reads a submission from url-encoded values.
// Strategy and metric may repeat. A range with both ends blank is treated as missing.
func ValuesFromURL(u url.Values) Values {
	v := Values{
		StrategyChecked: u[KeyStrategy],
		ChartChecked:    u[KeyMetric],
	}
	start, end := u.Get(KeyStart), u.Get(KeyEnd)
	if start != "" || end != "" {
		v.DateRange = []string{start, end}
	}
	return v
}

// URL encodes a query back into url values, the inverse of ValuesFromURL.
func (v Values) URL() url.Values {
	u := url.Values{}
	for _, s := range v.StrategyChecked {
		u.Add(KeyStrategy, s)
	}
	for _, m := range v.ChartChecked {
		u.Add(KeyMetric, m)
	}
	if len(v.DateRange) == 2 {
		u.Set(KeyStart, v.DateRange[0])
		u.Set(KeyEnd, v.DateRange[1])
	}
	return u
}
