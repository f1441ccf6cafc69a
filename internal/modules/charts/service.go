// Package charts turns price series into chart-ready data: summary statistics,
// a moving-average overlay and period aggregation for long ranges.
package charts

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/marketboard/internal/domain"
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// SMAPeriod is the window of the moving-average overlay.
const SMAPeriod = 7

// ChartDataPoint represents a single point on an aggregated chart
type ChartDataPoint struct {
	Time  string  `json:"time"`  // YYYY-MM-DD, YYYY-W## or YYYY-MM
	Value float64 `json:"value"` // average price in the period
}

// Summary describes a price series.
type Summary struct {
	Count         int                 `json:"count"`
	First         float64             `json:"first"`
	Last          float64             `json:"last"`
	Min           float64             `json:"min"`
	Max           float64             `json:"max"`
	ChangePercent float64             `json:"change_percent"`
	Mean          float64             `json:"mean"`
	StdDev        float64             `json:"std_dev"`
	SMA           []domain.PricePoint `json:"sma,omitempty"`
}

// Summarize computes statistics for points, which must be in time order.
// The SMA overlay is only present when there are at least SMAPeriod points.
func Summarize(points []domain.PricePoint) Summary {
	if len(points) == 0 {
		return Summary{}
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	s := Summary{
		Count: len(points),
		First: prices[0],
		Last:  prices[len(prices)-1],
		Min:   prices[0],
		Max:   prices[0],
		Mean:  stat.Mean(prices, nil),
	}
	for _, p := range prices[1:] {
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
	}
	if s.First != 0 {
		s.ChangePercent = (s.Last - s.First) / s.First * 100
	}
	if len(prices) > 1 {
		s.StdDev = stat.StdDev(prices, nil)
	}

	if len(prices) >= SMAPeriod {
		sma := talib.Sma(prices, SMAPeriod)
		// the first SMAPeriod-1 values are lookback padding
		for i := SMAPeriod - 1; i < len(sma); i++ {
			s.SMA = append(s.SMA, domain.PricePoint{
				TimestampMs: points[i].TimestampMs,
				Price:       sma[i],
			})
		}
	}

	return s
}

// Grouping selects the aggregation period.
type Grouping string

const (
	GroupDay   Grouping = "day"
	GroupWeek  Grouping = "week"
	GroupMonth Grouping = "month"
)

// ParseGrouping accepts day, week or month.
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(s); g {
	case GroupDay, GroupWeek, GroupMonth:
		return g, nil
	default:
		return "", fmt.Errorf("invalid grouping: %s (must be day, week or month)", s)
	}
}

// Aggregate averages points per UTC day, ISO week or month, sorted by period.
func Aggregate(points []domain.PricePoint, groupBy Grouping) []ChartDataPoint {
	aggregated := make(map[string][]float64) // period -> prices

	for _, p := range points {
		t := p.Time().UTC()

		var period string
		switch groupBy {
		case GroupWeek:
			year, week := t.ISOWeek()
			period = fmt.Sprintf("%d-W%02d", year, week)
		case GroupMonth:
			period = t.Format("2006-01")
		default:
			period = t.Format("2006-01-02")
		}

		aggregated[period] = append(aggregated[period], p.Price)
	}

	periods := make([]string, 0, len(aggregated))
	for period := range aggregated {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	result := make([]ChartDataPoint, 0, len(periods))
	for _, period := range periods {
		result = append(result, ChartDataPoint{
			Time:  period,
			Value: stat.Mean(aggregated[period], nil),
		})
	}
	return result
}
