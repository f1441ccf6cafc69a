// Package mockmarket generates stock and Steam market data.
// Neither market has a usable free API, so prices are drawn at random around fixed anchors.
package mockmarket

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aristath/marketboard/internal/domain"
)

const day = 24 * time.Hour

// maxSeriesDays bounds generated histories.
const maxSeriesDays = 3650

// generator holds the random source and clock shared by both sources.
type generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

func newGenerator() *generator {
	return &generator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

// Option configures a source.
type Option func(*generator)

// WithRandSource makes generated data reproducible.
func WithRandSource(src rand.Source) Option {
	return func(g *generator) {
		g.rand = rand.New(src)
	}
}

// WithClock replaces time.Now for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *generator) {
		g.now = now
	}
}

// float returns U[0,1). Callers must hold g.mu.
func (g *generator) float() float64 {
	return g.rand.Float64()
}

// series builds days+1 daily points ending now. step returns the next price.
func (g *generator) series(days int, start float64, floor float64, step func(price float64) float64) []domain.PricePoint {
	if days < 0 {
		days = 0
	}
	if days > maxSeriesDays {
		days = maxSeriesDays
	}
	end := g.now()
	price := start

	points := make([]domain.PricePoint, 0, days+1)
	for i := days; i >= 0; i-- {
		price = step(price)
		points = append(points, domain.PricePoint{
			TimestampMs: end.Add(-time.Duration(i) * day).UnixMilli(),
			Price:       math.Max(floor, price),
		})
	}
	return points
}
