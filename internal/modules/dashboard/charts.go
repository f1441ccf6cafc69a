package dashboard

import (
	"context"

	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/domain"
	"golang.org/x/time/rate"
)

// chartAssets is how many of the visible assets get a sparkline.
const chartAssets = 5

// LoadCharts fetches sparkline history for the first visible assets, keyed by asset id.
// Requests are paced by RateLimitDelay. It returns an empty map when charts are disabled,
// and whatever was fetched so far when ctx is cancelled.
func (c *Controller) LoadCharts(ctx context.Context) map[string][]domain.PricePoint {
	out := make(map[string][]domain.PricePoint)
	if !c.cfg.EnableCharts {
		return out
	}

	visible := c.View().Assets
	if len(visible) > chartAssets {
		visible = visible[:chartAssets]
	}

	limiter := rate.NewLimiter(rate.Every(c.cfg.RateLimitDelay), 1)

	for _, a := range visible {
		if err := limiter.Wait(ctx); err != nil {
			c.log.Debug().Err(err).Int("loaded", len(out)).Msg("Chart loading interrupted")
			return out
		}

		switch a.Type {
		case domain.AssetTypeCrypto:
			out[a.ID] = c.crypto.HistoryWithFallback(ctx, a.ID, coingecko.Days(c.chartDays()))
		default:
			out[a.ID] = c.history(a.Asset, detailDays)
		}
	}

	c.log.Debug().Int("charts", len(out)).Msg("Loaded charts for visible assets")
	return out
}

func (c *Controller) chartDays() int {
	if c.cfg.ChartDays <= 0 {
		return detailDays
	}
	return c.cfg.ChartDays
}
