// internal/metrics/metrics.go
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Collector exposes the platform's trading activity as prometheus metrics.
// It consumes the same event surface the indexer does.
type Collector struct {
	registry *prometheus.Registry

	tokensCreated prometheus.Counter
	trades        *prometheus.CounterVec
	volume        prometheus.Counter
	graduations   prometheus.Counter
	lpWithdrawals prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tokensCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_tokens_created_total",
			Help: "Tokens created through the registry.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_trades_total",
			Help: "Executed curve trades by direction.",
		}, []string{"direction"}),
		volume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_volume_lamports_total",
			Help: "Native volume traded across all curves.",
		}),
		graduations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_graduations_total",
			Help: "Curves graduated to external liquidity.",
		}),
		lpWithdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_lp_withdrawals_total",
			Help: "LP token withdrawals after lock expiry.",
		}),
	}
	c.registry.MustRegister(c.tokensCreated, c.trades, c.volume, c.graduations, c.lpWithdrawals)
	return c
}

// Attach subscribes the collector to the event bus.
func (c *Collector) Attach(bus *events.Bus) {
	bus.SubscribeFunc(events.TypeTokenCreated, func(_ context.Context, _ events.Event) error {
		c.tokensCreated.Inc()
		return nil
	})
	bus.SubscribeFunc(events.TypeTrade, func(_ context.Context, e events.Event) error {
		trade, ok := e.(events.TradeEvent)
		if !ok {
			return nil
		}
		c.trades.WithLabelValues(string(trade.Direction)).Inc()
		c.volume.Add(float64(trade.NativeAmount))
		return nil
	})
	bus.SubscribeFunc(events.TypeGraduated, func(_ context.Context, _ events.Event) error {
		c.graduations.Inc()
		return nil
	})
	bus.SubscribeFunc(events.TypeLPWithdrawn, func(_ context.Context, _ events.Event) error {
		c.lpWithdrawals.Inc()
		return nil
	})
}

// Handler serves the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
