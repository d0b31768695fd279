package net

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// metrics are the counters exposed over /metrics. They are observability
// only: nothing in the matching core reads or depends on them.
type metrics struct {
	ordersPlaced   prometheus.Counter
	ordersRejected prometheus.Counter
	ordersCanceled prometheus.Counter
	tradesExecuted prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		ordersPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderengine_orders_placed_total",
			Help: "Orders successfully admitted to the book.",
		}),
		ordersRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderengine_orders_rejected_total",
			Help: "Orders rejected on admission (duplicate id, unfillable IOC, unknown id on modify).",
		}),
		ordersCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderengine_orders_canceled_total",
			Help: "Cancel requests processed, including no-ops on unknown ids.",
		}),
		tradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orderengine_trades_executed_total",
			Help: "Trades produced by the matching loop.",
		})}
}

// serveMetrics runs a small HTTP server exposing the Prometheus registry
// until ctx is cancelled.
func serveMetrics(ctx context.Context, address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", address).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
