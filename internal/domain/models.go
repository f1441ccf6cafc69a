// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AssetType identifies the market an asset belongs to. It doubles as the dashboard tab.
type AssetType string

const (
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeStock  AssetType = "stock"
	AssetTypeSteam  AssetType = "steam"
)

// ParseAssetType parses a tab or type name. "stocks" is accepted as an alias of "stock".
func ParseAssetType(s string) (AssetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto":
		return AssetTypeCrypto, nil
	case "stock", "stocks":
		return AssetTypeStock, nil
	case "steam":
		return AssetTypeSteam, nil
	default:
		return "", fmt.Errorf("unknown asset type: %q", s)
	}
}

// Asset is the canonical record for one tradable item.
// Optional numeric fields are pointers so that "absent" is distinguishable from zero.
type Asset struct {
	ID               string    `json:"id"`
	Type             AssetType `json:"type"`
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol"`
	CurrentPrice     float64   `json:"current_price"`
	MarketCap        *float64  `json:"market_cap,omitempty"`
	TotalVolume      *float64  `json:"total_volume,omitempty"`
	ChangePercent24h *float64  `json:"price_change_percentage_24h,omitempty"`
	ChangePercent7d  *float64  `json:"price_change_percentage_7d,omitempty"`
	ChangePercent30d *float64  `json:"price_change_percentage_30d,omitempty"`
	MarketCapRank    *int      `json:"market_cap_rank,omitempty"`
	ATHPrice         *float64  `json:"ath,omitempty"`
	High24h          *float64  `json:"high_24h,omitempty"`
	Low24h           *float64  `json:"low_24h,omitempty"`
	Image            string    `json:"image,omitempty"`

	// Stock only
	Logo string `json:"logo,omitempty"`

	// Steam only
	AppID    int    `json:"appid,omitempty"`
	Game     string `json:"game,omitempty"`
	HashName string `json:"hash_name,omitempty"`
	Rarity   string `json:"rarity,omitempty"`
}

// Change24h returns the 24h change percentage, 0 when absent.
func (a Asset) Change24h() float64 { return deref(a.ChangePercent24h) }

// Change7d returns the 7d change percentage, 0 when absent.
func (a Asset) Change7d() float64 { return deref(a.ChangePercent7d) }

// Change30d returns the 30d change percentage, 0 when absent.
func (a Asset) Change30d() float64 { return deref(a.ChangePercent30d) }

// Volume returns the total volume, 0 when absent.
func (a Asset) Volume() float64 { return deref(a.TotalVolume) }

// Cap returns the market cap, 0 when absent.
func (a Asset) Cap() float64 { return deref(a.MarketCap) }

// ATH returns the all-time-high price, 0 when absent.
func (a Asset) ATH() float64 { return deref(a.ATHPrice) }

// Rank returns the market cap rank, 0 when absent.
func (a Asset) Rank() int {
	if a.MarketCapRank == nil {
		return 0
	}
	return *a.MarketCapRank
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ScoredAsset is an Asset annotated with a transient recommendation score.
// The score is only set by the "recommended" filter mode and is never persisted.
type ScoredAsset struct {
	Asset
	RecommendationScore *int `json:"recommendationScore,omitempty"`
}

// PricePoint is one sample of a price history series.
// It encodes as a [timestampMs, price] pair, the upstream wire shape.
type PricePoint struct {
	TimestampMs int64
	Price       float64
}

// Time returns the sample time.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.TimestampMs)
}

// MarshalJSON encodes the point as [timestampMs, price].
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.TimestampMs), p.Price})
}

// UnmarshalJSON decodes a [timestampMs, price] pair.
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("price point: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("price point: expected 2 elements, got %d", len(pair))
	}
	p.TimestampMs = int64(pair[0])
	p.Price = pair[1]
	return nil
}
