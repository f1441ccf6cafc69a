package coingecko

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/marketboard/internal/domain"
)

// HistoryRange is a day count for price history, or MaxRange.
type HistoryRange int

// MaxRange requests the full available history.
const MaxRange HistoryRange = -1

const (
	// maxFallbackDays is the day count used when MaxRange cannot be served.
	maxFallbackDays = 365
	// MaxHistoryDays bounds explicit day counts.
	MaxHistoryDays = 3650
)

// Days returns a day-count range.
func Days(n int) HistoryRange {
	return HistoryRange(n)
}

// ParseHistoryRange accepts "max" or an integer in [1, MaxHistoryDays].
func ParseHistoryRange(s string) (HistoryRange, error) {
	if strings.EqualFold(s, "max") {
		return MaxRange, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxHistoryDays {
		return 0, fmt.Errorf("invalid history range %q: want a day count from 1 to %d or \"max\"", s, MaxHistoryDays)
	}
	return Days(n), nil
}

// IsMax reports whether the range is MaxRange.
func (r HistoryRange) IsMax() bool {
	return r == MaxRange
}

// String renders the range as the upstream days parameter.
func (r HistoryRange) String() string {
	if r.IsMax() {
		return "max"
	}
	return strconv.Itoa(int(r))
}

// steps is the number of day steps a synthetic series covers.
func (r HistoryRange) steps() int {
	if r.IsMax() {
		return maxFallbackDays
	}
	if r < 0 {
		return 0
	}
	if r > MaxHistoryDays {
		return MaxHistoryDays
	}
	return int(r)
}

// marketCoin is one element of /coins/markets.
type marketCoin struct {
	ID                                 string   `json:"id"`
	Symbol                             string   `json:"symbol"`
	Name                               string   `json:"name"`
	Image                              string   `json:"image"`
	CurrentPrice                       *float64 `json:"current_price"`
	MarketCap                          *float64 `json:"market_cap"`
	MarketCapRank                      *int     `json:"market_cap_rank"`
	TotalVolume                        *float64 `json:"total_volume"`
	High24h                            *float64 `json:"high_24h"`
	Low24h                             *float64 `json:"low_24h"`
	PriceChangePercentage24h           *float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage24hInCurrency *float64 `json:"price_change_percentage_24h_in_currency"`
	PriceChangePercentage7dInCurrency  *float64 `json:"price_change_percentage_7d_in_currency"`
	PriceChangePercentage30dInCurrency *float64 `json:"price_change_percentage_30d_in_currency"`
	ATH                                *float64 `json:"ath"`
}

// toAsset normalizes a market row into the canonical asset.
func toAsset(c marketCoin) domain.Asset {
	price := 0.0
	if c.CurrentPrice != nil && *c.CurrentPrice > 0 {
		price = *c.CurrentPrice
	}

	change24h := c.PriceChangePercentage24h
	if change24h == nil {
		change24h = c.PriceChangePercentage24hInCurrency
	}

	return domain.Asset{
		ID:               c.ID,
		Type:             domain.AssetTypeCrypto,
		Name:             c.Name,
		Symbol:           c.Symbol,
		CurrentPrice:     price,
		MarketCap:        c.MarketCap,
		TotalVolume:      c.TotalVolume,
		ChangePercent24h: change24h,
		ChangePercent7d:  c.PriceChangePercentage7dInCurrency,
		ChangePercent30d: c.PriceChangePercentage30dInCurrency,
		MarketCapRank:    c.MarketCapRank,
		ATHPrice:         c.ATH,
		High24h:          c.High24h,
		Low24h:           c.Low24h,
		Image:            c.Image,
	}
}

// parseMarkets decodes one markets page. Anything but a JSON array is malformed.
func parseMarkets(data []byte) ([]marketCoin, error) {
	var coins []marketCoin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, fmt.Errorf("%w: markets page: %v", ErrMalformedPayload, err)
	}
	// null decodes without error; [] does not leave coins nil
	if coins == nil {
		return nil, fmt.Errorf("%w: markets page is null", ErrMalformedPayload)
	}
	return coins, nil
}

type currencyMap map[string]*float64

func (m currencyMap) usd() float64 {
	if v, ok := m["usd"]; ok && v != nil {
		return *v
	}
	return 0
}

type coinDetail struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Name        string            `json:"name"`
	Description map[string]string `json:"description"`
	Image       struct {
		Large string `json:"large"`
	} `json:"image"`
	Links struct {
		Homepage       []string `json:"homepage"`
		BlockchainSite []string `json:"blockchain_site"`
	} `json:"links"`
	MarketData *struct {
		CurrentPrice             currencyMap       `json:"current_price"`
		MarketCap                currencyMap       `json:"market_cap"`
		TotalVolume              currencyMap       `json:"total_volume"`
		High24h                  currencyMap       `json:"high_24h"`
		Low24h                   currencyMap       `json:"low_24h"`
		ATH                      currencyMap       `json:"ath"`
		ATL                      currencyMap       `json:"atl"`
		ATHDate                  map[string]string `json:"ath_date"`
		ATLDate                  map[string]string `json:"atl_date"`
		PriceChangePercentage24h *float64          `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  *float64          `json:"price_change_percentage_7d"`
		PriceChangePercentage30d *float64          `json:"price_change_percentage_30d"`
		PriceChangePercentage1y  *float64          `json:"price_change_percentage_1y"`
		CirculatingSupply        *float64          `json:"circulating_supply"`
		TotalSupply              *float64          `json:"total_supply"`
	} `json:"market_data"`
}

// parseDetail validates a /coins/{id} body into a detail record.
func parseDetail(data []byte) (domain.DetailRecord, error) {
	var d coinDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.DetailRecord{}, fmt.Errorf("%w: detail: %v", ErrMalformedPayload, err)
	}
	if d.ID == "" {
		return domain.DetailRecord{}, fmt.Errorf("%w: detail without id", ErrMalformedPayload)
	}
	if d.MarketData == nil {
		return domain.DetailRecord{}, fmt.Errorf("%w: detail %s without market_data", ErrMalformedPayload, d.ID)
	}
	if _, ok := d.MarketData.CurrentPrice["usd"]; !ok {
		return domain.DetailRecord{}, fmt.Errorf("%w: detail %s without usd price", ErrMalformedPayload, d.ID)
	}

	md := d.MarketData
	return domain.DetailRecord{
		ID:          d.ID,
		Type:        domain.AssetTypeCrypto,
		Name:        d.Name,
		Symbol:      d.Symbol,
		Description: d.Description["en"],
		MarketData: domain.DetailMarketData{
			CurrentPrice:      md.CurrentPrice.usd(),
			MarketCap:         md.MarketCap.usd(),
			TotalVolume:       md.TotalVolume.usd(),
			High24h:           md.High24h.usd(),
			Low24h:            md.Low24h.usd(),
			Change24h:         deref(md.PriceChangePercentage24h),
			Change7d:          deref(md.PriceChangePercentage7d),
			Change30d:         deref(md.PriceChangePercentage30d),
			Change1y:          deref(md.PriceChangePercentage1y),
			CirculatingSupply: deref(md.CirculatingSupply),
			TotalSupply:       deref(md.TotalSupply),
			ATH:               md.ATH.usd(),
			ATL:               md.ATL.usd(),
			ATHDate:           parseDate(md.ATHDate["usd"]),
			ATLDate:           parseDate(md.ATLDate["usd"]),
		},
		Links: domain.DetailLinks{
			Homepage:       nonEmpty(d.Links.Homepage),
			BlockchainSite: nonEmpty(d.Links.BlockchainSite),
		},
		ImageLarge: d.Image.Large,
	}, nil
}

// marketChart is the /coins/{id}/market_chart body.
type marketChart struct {
	Prices []domain.PricePoint `json:"prices"`
}

// parseMarketChart requires a prices array.
func parseMarketChart(data []byte) ([]domain.PricePoint, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: market chart: %v", ErrMalformedPayload, err)
	}
	prices, ok := raw["prices"]
	if !ok || len(prices) == 0 || prices[0] != '[' {
		return nil, fmt.Errorf("%w: market chart without prices array", ErrMalformedPayload)
	}

	var chart marketChart
	if err := json.Unmarshal(data, &chart); err != nil {
		return nil, fmt.Errorf("%w: market chart: %v", ErrMalformedPayload, err)
	}
	if chart.Prices == nil {
		chart.Prices = []domain.PricePoint{}
	}
	return chart.Prices, nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nonEmpty drops the blank entries CoinGecko pads link arrays with.
func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
