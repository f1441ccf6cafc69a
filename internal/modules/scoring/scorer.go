// Package scoring computes the recommendation score shown in the "recommended" view.
// The score is a momentum/liquidity heuristic in [0, 100]; it is not a financial signal.
package scoring

import "github.com/aristath/marketboard/internal/domain"

const (
	MinScore = 0
	MaxScore = 100
)

// Components holds the per-bucket contributions before clamping.
type Components struct {
	Momentum24h    int `json:"momentum_24h"`
	Momentum7d     int `json:"momentum_7d"`
	Momentum30d    int `json:"momentum_30d"`
	Volume         int `json:"volume"`
	MarketPosition int `json:"market_position"`
	ATHDistance    int `json:"ath_distance"`
	LowPrice       int `json:"low_price"`
}

// Raw is the unclamped sum of all components.
func (c Components) Raw() int {
	return c.Momentum24h + c.Momentum7d + c.Momentum30d +
		c.Volume + c.MarketPosition + c.ATHDistance + c.LowPrice
}

// Total is the clamped score. It always equals Score for the same asset.
func (c Components) Total() int {
	return clamp(c.Raw())
}

// Score returns the recommendation score for an asset. Non-crypto assets score 0.
func Score(asset domain.Asset) int {
	return Breakdown(asset).Total()
}

// Breakdown returns each bucket's contribution. Missing fields count as 0.
func Breakdown(asset domain.Asset) Components {
	if asset.Type != domain.AssetTypeCrypto {
		return Components{}
	}

	change24h := asset.Change24h()

	return Components{
		Momentum24h:    momentum24h(change24h),
		Momentum7d:     momentum7d(asset.Change7d()),
		Momentum30d:    momentum30d(asset.Change30d()),
		Volume:         volume(asset.Volume(), asset.Cap()),
		MarketPosition: marketPosition(asset.Rank(), change24h),
		ATHDistance:    athDistance(asset.ATH(), asset.CurrentPrice, change24h),
		LowPrice:       lowPrice(asset.CurrentPrice, asset.Volume()),
	}
}

func momentum24h(change float64) int {
	switch {
	case change > 10:
		return 15
	case change > 5:
		return 10
	case change > 2:
		return 5
	case change > 0:
		return 2
	case change < -10:
		return -5
	}
	return 0
}

func momentum7d(change float64) int {
	switch {
	case change > 20:
		return 12
	case change > 10:
		return 8
	case change > 5:
		return 4
	case change < -20:
		return -3
	}
	return 0
}

func momentum30d(change float64) int {
	switch {
	case change > 50:
		return 13
	case change > 25:
		return 8
	case change > 10:
		return 3
	}
	return 0
}

// volume scores turnover (volume / market cap) plus absolute volume.
func volume(vol, mcap float64) int {
	if vol <= 0 || mcap <= 0 {
		return 0
	}

	score := 0
	ratio := vol / mcap
	switch {
	case ratio > 0.5:
		score += 15
	case ratio > 0.3:
		score += 12
	case ratio > 0.15:
		score += 8
	case ratio > 0.05:
		score += 4
	}

	switch {
	case vol > 1e9:
		score += 10
	case vol > 1e8:
		score += 5
	}
	return score
}

// marketPosition scores rank; mid caps (51-150) moving >5% in 24h get a bonus.
func marketPosition(rank int, change24h float64) int {
	if rank <= 0 {
		return 0
	}

	score := 0
	switch {
	case rank <= 10:
		score += 10
	case rank <= 30:
		score += 8
	case rank <= 50:
		score += 6
	case rank <= 100:
		score += 4
	case rank <= 150:
		score += 2
	}

	if rank > 50 && rank <= 150 && change24h > 5 {
		score += 10
	}
	return score
}

// athDistance rewards recovering coins far below their ATH and breakouts near it.
func athDistance(ath, price, change24h float64) int {
	if ath <= 0 || price <= 0 {
		return 0
	}

	score := 0
	distance := (ath - price) / ath * 100
	switch {
	case distance > 70 && change24h > 0:
		score += 15
	case distance > 50 && change24h > 0:
		score += 10
	case distance > 30 && change24h > 0:
		score += 5
	}

	if distance < 5 && change24h > 3 {
		score += 8
	}
	return score
}

func lowPrice(price, vol float64) int {
	switch {
	case price < 0.01 && vol > 1e7:
		return 12
	case price < 0.1 && vol > 5e7:
		return 8
	case price < 1 && vol > 1e8:
		return 5
	}
	return 0
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
