package mockmarket

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/rs/zerolog"
)

// SteamSource serves popular Steam Community Market items with generated prices.
type SteamSource struct {
	gen       *generator
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewSteamSource creates a Steam source.
// cacheRepo is optional - if nil, every call generates fresh prices
func NewSteamSource(cacheRepo *clientdata.Repository, log zerolog.Logger, opts ...Option) *SteamSource {
	s := &SteamSource{
		gen:       newGenerator(),
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "mock-steam").Logger(),
	}
	for _, opt := range opts {
		opt(s.gen)
	}
	return s
}

// SteamID is the asset id of a Steam item.
func SteamID(appID int, hashName string) string {
	return fmt.Sprintf("%d-%s", appID, hashName)
}

// FetchAll returns one asset per listed item.
func (s *SteamSource) FetchAll(ctx context.Context) ([]domain.Asset, error) {
	if s.cacheRepo != nil {
		var cached []domain.Asset
		if s.cacheRepo.GetInto(ctx, clientdata.KeySteamData, &cached) {
			s.log.Debug().Int("items", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	s.gen.mu.Lock()
	assets := make([]domain.Asset, 0, len(popularSteamItems))
	for _, listing := range popularSteamItems {
		assets = append(assets, s.item(listing))
	}
	s.gen.mu.Unlock()

	s.log.Debug().Int("items", len(assets)).Msg("Generated Steam prices")

	if s.cacheRepo != nil {
		s.cacheRepo.Set(ctx, clientdata.KeySteamData, assets)
	}
	return assets, nil
}

// price draws a price within ±20% of the rarity anchor. Callers must hold s.gen.mu.
func (s *SteamSource) price(rarity string) float64 {
	base := basePriceFor(rarity)
	return base + (s.gen.float()-0.5)*base*0.4
}

// item generates one Steam asset. Callers must hold s.gen.mu.
func (s *SteamSource) item(l steamListing) domain.Asset {
	price := s.price(l.Rarity)
	change := (s.gen.float() - 0.5) * price * 0.3
	volume := math.Floor(s.gen.float() * 10000)
	supply := math.Floor(s.gen.float() * 50000)

	return domain.Asset{
		ID:               SteamID(l.AppID, l.HashName),
		Type:             domain.AssetTypeSteam,
		Name:             l.Name,
		Symbol:           l.HashName,
		CurrentPrice:     price,
		ChangePercent24h: domain.Float(change / price * 100),
		TotalVolume:      domain.Float(volume),
		MarketCap:        domain.Float(price * supply),
		High24h:          domain.Float(price + math.Abs(change)*0.5),
		Low24h:           domain.Float(math.Max(0, price-math.Abs(change)*0.5)),
		Image:            emojiImage(l.Emoji),
		AppID:            l.AppID,
		Game:             l.Game,
		HashName:         l.HashName,
		Rarity:           l.Rarity,
	}
}

// History returns a generated daily series of days+1 points for an item.
// Each day moves up to 5% and prices never drop below 0.01. Unknown items start at 10.
func (s *SteamSource) History(appID int, hashName string, days int) []domain.PricePoint {
	s.gen.mu.Lock()
	defer s.gen.mu.Unlock()

	start := 10.0
	for _, l := range popularSteamItems {
		if l.AppID == appID && l.HashName == hashName {
			start = s.price(l.Rarity)
			break
		}
	}

	return s.gen.series(days, start, 0.01, func(price float64) float64 {
		return price + (s.gen.float()-0.5)*price*0.1
	})
}
