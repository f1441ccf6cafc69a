package coingecko

import (
	"strings"
	"time"

	"github.com/aristath/marketboard/internal/domain"
)

const placeholderDescription = "DEMO MODE: API access failed (likely a network problem or rate limit). " +
	"This is placeholder data to demonstrate the layout and features."

// placeholderDetail is the fixed demo record served when a detail fetch fails.
func placeholderDetail(id string) domain.DetailRecord {
	runes := []rune(id)
	name := id
	if len(runes) > 0 {
		name = strings.ToUpper(string(runes[:1])) + string(runes[1:])
	}
	symbol := id
	if len(runes) > 3 {
		symbol = string(runes[:3])
	}

	return domain.DetailRecord{
		ID:          id,
		Type:        domain.AssetTypeCrypto,
		Name:        name,
		Symbol:      strings.ToUpper(symbol),
		Description: placeholderDescription,
		MarketData: domain.DetailMarketData{
			CurrentPrice:      54321,
			MarketCap:         1e12,
			TotalVolume:       3.5e10,
			High24h:           55000,
			Low24h:            53000,
			Change24h:         -2.5,
			Change7d:          5.1,
			Change30d:         12.4,
			Change1y:          45.8,
			CirculatingSupply: 19e6,
			TotalSupply:       21e6,
			ATH:               69000,
			ATL:               67,
			ATHDate:           time.Date(2021, time.November, 10, 0, 0, 0, 0, time.UTC),
			ATLDate:           time.Date(2013, time.July, 6, 0, 0, 0, 0, time.UTC),
		},
		Links: domain.DetailLinks{
			Homepage:       []string{"https://example.com"},
			BlockchainSite: []string{"https://etherscan.io"},
		},
		ImageLarge:  "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
		Placeholder: true,
	}
}

// syntheticHistory is a daily random walk of steps+1 points ending at now.
// Emitted prices never drop below 10.
func (c *Client) syntheticHistory(rng HistoryRange) []domain.PricePoint {
	c.randMu.Lock()
	defer c.randMu.Unlock()

	steps := rng.steps()
	end := c.now()
	price := 50000 + c.rand.Float64()*10000

	points := make([]domain.PricePoint, 0, steps+1)
	for i := steps; i >= 0; i-- {
		price *= 1 + (c.rand.Float64()-0.5)*0.05
		points = append(points, domain.PricePoint{
			TimestampMs: end.Add(-time.Duration(i) * 24 * time.Hour).UnixMilli(),
			Price:       max(10, price),
		})
	}
	return points
}
