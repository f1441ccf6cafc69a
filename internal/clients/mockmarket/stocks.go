package mockmarket

import (
	"context"
	"math"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/rs/zerolog"
)

// StockSource serves the popular US stocks with generated quotes.
type StockSource struct {
	gen       *generator
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewStockSource creates a stock source.
// cacheRepo is optional - if nil, every call generates fresh quotes
func NewStockSource(cacheRepo *clientdata.Repository, log zerolog.Logger, opts ...Option) *StockSource {
	s := &StockSource{
		gen:       newGenerator(),
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "mock-stocks").Logger(),
	}
	for _, opt := range opts {
		opt(s.gen)
	}
	return s
}

// FetchAll returns one asset per listed stock.
func (s *StockSource) FetchAll(ctx context.Context) ([]domain.Asset, error) {
	if s.cacheRepo != nil {
		var cached []domain.Asset
		if s.cacheRepo.GetInto(ctx, clientdata.KeyStocksData, &cached) {
			s.log.Debug().Int("stocks", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	s.gen.mu.Lock()
	assets := make([]domain.Asset, 0, len(popularStocks))
	for _, listing := range popularStocks {
		assets = append(assets, s.quote(listing))
	}
	s.gen.mu.Unlock()

	s.log.Debug().Int("stocks", len(assets)).Msg("Generated stock quotes")

	if s.cacheRepo != nil {
		s.cacheRepo.Set(ctx, clientdata.KeyStocksData, assets)
	}
	return assets, nil
}

// quote generates one stock. Callers must hold s.gen.mu.
func (s *StockSource) quote(l stockListing) domain.Asset {
	price := 50 + s.gen.float()*500
	change := (s.gen.float() - 0.5) * 20
	volume := math.Floor(s.gen.float() * 1e8)

	return domain.Asset{
		ID:               l.Symbol,
		Type:             domain.AssetTypeStock,
		Name:             l.Name,
		Symbol:           l.Symbol,
		CurrentPrice:     price,
		ChangePercent24h: domain.Float(change / price * 100),
		TotalVolume:      domain.Float(volume),
		MarketCap:        domain.Float(price * 1e9),
		High24h:          domain.Float(price + math.Abs(change)*0.5),
		Low24h:           domain.Float(price - math.Abs(change)*0.5),
		Image:            emojiImage(l.Logo),
		Logo:             l.Logo,
	}
}

// History returns a generated daily series of days+1 points for symbol.
// Prices move up to 5 USD per day and never drop below 10.
func (s *StockSource) History(symbol string, days int) []domain.PricePoint {
	s.gen.mu.Lock()
	defer s.gen.mu.Unlock()

	start := 100 + s.gen.float()*200
	return s.gen.series(days, start, 10, func(price float64) float64 {
		return price + (s.gen.float()-0.5)*10
	})
}
