package domain

import "time"

// DetailRecord holds the extended fields for one asset.
// Placeholder is true when the record is synthetic demo data.
type DetailRecord struct {
	ID             string           `json:"id"`
	Type           AssetType        `json:"type"`
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Description    string           `json:"description"`
	MarketData     DetailMarketData `json:"market_data"`
	Links          DetailLinks      `json:"links"`
	ImageLarge     string           `json:"image,omitempty"`
	Placeholder    bool             `json:"placeholder"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
}

// DetailMarketData is the USD market block of a detail record.
type DetailMarketData struct {
	CurrentPrice      float64   `json:"current_price"`
	MarketCap         float64   `json:"market_cap"`
	TotalVolume       float64   `json:"total_volume"`
	High24h           float64   `json:"high_24h"`
	Low24h            float64   `json:"low_24h"`
	Change24h         float64   `json:"price_change_percentage_24h"`
	Change7d          float64   `json:"price_change_percentage_7d"`
	Change30d         float64   `json:"price_change_percentage_30d"`
	Change1y          float64   `json:"price_change_percentage_1y"`
	CirculatingSupply float64   `json:"circulating_supply"`
	TotalSupply       float64   `json:"total_supply"`
	ATH               float64   `json:"ath"`
	ATL               float64   `json:"atl"`
	ATHDate           time.Time `json:"ath_date,omitempty"`
	ATLDate           time.Time `json:"atl_date,omitempty"`
}

// DetailLinks holds external links for an asset.
type DetailLinks struct {
	Homepage       []string `json:"homepage,omitempty"`
	BlockchainSite []string `json:"blockchain_site,omitempty"`
}

// DetailFromAsset builds a detail record from snapshot fields.
// Stock and Steam assets have no upstream detail endpoint, so their detail view is the snapshot itself.
func DetailFromAsset(a Asset) DetailRecord {
	return DetailRecord{
		ID:     a.ID,
		Type:   a.Type,
		Name:   a.Name,
		Symbol: a.Symbol,
		MarketData: DetailMarketData{
			CurrentPrice: a.CurrentPrice,
			MarketCap:    a.Cap(),
			TotalVolume:  a.Volume(),
			High24h:      deref(a.High24h),
			Low24h:       deref(a.Low24h),
			Change24h:    a.Change24h(),
			Change7d:     a.Change7d(),
			Change30d:    a.Change30d(),
			ATH:          a.ATH(),
		},
		ImageLarge: a.Image,
	}
}
