package scoring

import (
	"testing"

	"github.com/aristath/marketboard/internal/domain"
	"github.com/stretchr/testify/assert"
)

func crypto(mut func(a *domain.Asset)) domain.Asset {
	a := domain.Asset{ID: "coin", Type: domain.AssetTypeCrypto, Name: "Coin", Symbol: "cn", CurrentPrice: 10}
	if mut != nil {
		mut(&a)
	}
	return a
}

func TestScore_LiquidLargeCapBeatsIlliquidLoser(t *testing.T) {
	strong := crypto(func(a *domain.Asset) {
		a.MarketCapRank = domain.Int(5)
		a.ChangePercent24h = domain.Float(12)
		a.TotalVolume = domain.Float(2e9)
		a.MarketCap = domain.Float(3e9)
	})
	weak := crypto(func(a *domain.Asset) {
		a.MarketCapRank = domain.Int(500)
		a.ChangePercent24h = domain.Float(-15)
		a.TotalVolume = domain.Float(1e5)
		a.MarketCap = domain.Float(1e9)
	})

	// 15 (24h) + 15 (turnover) + 10 (volume) + 10 (rank)
	assert.Equal(t, 50, Score(strong))
	assert.Equal(t, 0, Score(weak))
	assert.Greater(t, Score(strong), Score(weak))
}

func TestScore_NonCryptoIsZero(t *testing.T) {
	for _, typ := range []domain.AssetType{domain.AssetTypeStock, domain.AssetTypeSteam} {
		a := crypto(func(a *domain.Asset) {
			a.Type = typ
			a.ChangePercent24h = domain.Float(50)
			a.MarketCapRank = domain.Int(1)
		})
		assert.Equal(t, 0, Score(a), typ)
		assert.Equal(t, Components{}, Breakdown(a))
	}
}

func TestScore_ClampedToMax(t *testing.T) {
	a := crypto(func(a *domain.Asset) {
		a.CurrentPrice = 0.005
		a.ATHPrice = domain.Float(1)
		a.ChangePercent24h = domain.Float(20)
		a.ChangePercent7d = domain.Float(30)
		a.ChangePercent30d = domain.Float(80)
		a.TotalVolume = domain.Float(2e9)
		a.MarketCap = domain.Float(3e9)
		a.MarketCapRank = domain.Int(60)
	})

	c := Breakdown(a)
	assert.Equal(t, 106, c.Raw())
	assert.Equal(t, 100, c.Total())
	assert.Equal(t, 100, Score(a))
}

func TestScore_EmptyAssetIsZero(t *testing.T) {
	assert.Equal(t, 0, Score(crypto(nil)))
	assert.Equal(t, 0, Score(domain.Asset{Type: domain.AssetTypeCrypto}))
}

func TestScore_ClampedToMin(t *testing.T) {
	a := crypto(func(a *domain.Asset) {
		a.ChangePercent24h = domain.Float(-30)
		a.ChangePercent7d = domain.Float(-40)
	})

	assert.Equal(t, -8, Breakdown(a).Raw())
	assert.Equal(t, 0, Score(a))
}

func TestMomentumBuckets(t *testing.T) {
	cases24h := map[float64]int{11: 15, 10: 10, 6: 10, 5: 5, 3: 5, 2: 2, 0.1: 2, 0: 0, -10: 0, -10.1: -5}
	for change, want := range cases24h {
		assert.Equal(t, want, momentum24h(change), "24h %v", change)
	}

	cases7d := map[float64]int{21: 12, 20: 8, 11: 8, 6: 4, 5: 0, -20: 0, -21: -3}
	for change, want := range cases7d {
		assert.Equal(t, want, momentum7d(change), "7d %v", change)
	}

	cases30d := map[float64]int{51: 13, 50: 8, 26: 8, 11: 3, 10: 0, -60: 0}
	for change, want := range cases30d {
		assert.Equal(t, want, momentum30d(change), "30d %v", change)
	}
}

func TestVolume(t *testing.T) {
	assert.Equal(t, 0, volume(0, 1e9), "missing volume")
	assert.Equal(t, 0, volume(1e9, 0), "missing market cap")
	assert.Equal(t, 15+5, volume(6e8, 1e9))
	assert.Equal(t, 12+5, volume(4e8, 1e9))
	assert.Equal(t, 8+5, volume(2e8, 1e9))
	assert.Equal(t, 4, volume(6e7, 1e9))
	assert.Equal(t, 10, volume(2e9, 1e11))
}

func TestMarketPosition(t *testing.T) {
	assert.Equal(t, 0, marketPosition(0, 20), "missing rank")
	assert.Equal(t, 10, marketPosition(10, 0))
	assert.Equal(t, 8, marketPosition(30, 0))
	assert.Equal(t, 6, marketPosition(50, 10), "rank 50 is not a mid cap")
	assert.Equal(t, 4+10, marketPosition(51, 5.5))
	assert.Equal(t, 2+10, marketPosition(150, 6))
	assert.Equal(t, 2, marketPosition(150, 5))
	assert.Equal(t, 0, marketPosition(151, 50))
}

func TestATHDistance(t *testing.T) {
	assert.Equal(t, 0, athDistance(0, 10, 5), "missing ATH")
	assert.Equal(t, 0, athDistance(100, 0, 5), "missing price")
	assert.Equal(t, 15, athDistance(100, 20, 1))
	assert.Equal(t, 10, athDistance(100, 40, 1))
	assert.Equal(t, 5, athDistance(100, 60, 1))
	assert.Equal(t, 0, athDistance(100, 20, 0), "needs positive 24h")
	assert.Equal(t, 8, athDistance(100, 97, 4), "near-ATH breakout")
	assert.Equal(t, 0, athDistance(100, 97, 3))
}

func TestLowPrice(t *testing.T) {
	assert.Equal(t, 12, lowPrice(0.005, 2e7))
	assert.Equal(t, 8, lowPrice(0.05, 6e7))
	assert.Equal(t, 5, lowPrice(0.5, 2e8))
	assert.Equal(t, 0, lowPrice(0.5, 1e8))
	assert.Equal(t, 0, lowPrice(2, 1e10))
}

func TestScore_Deterministic(t *testing.T) {
	a := crypto(func(a *domain.Asset) {
		a.ChangePercent24h = domain.Float(3)
		a.MarketCapRank = domain.Int(42)
	})
	first := Score(a)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(a))
	}
}
