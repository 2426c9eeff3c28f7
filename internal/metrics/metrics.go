// Package metrics exposes the wallet's prometheus instrumentation: an
// HTTP handler plus the gauges and counters that the wallet and relayer
// FSMs update as they run. Ambient observability, wired regardless of
// which feature is being touched.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-wallet/internal/log"
)

// Metrics owns a private prometheus registry and the gauges/counters the
// wallet publishes through it.
type Metrics struct {
	registry *prometheus.Registry
	logger   zerolog.Logger
	server   *http.Server

	WalletConfirmedBalanceMsat   prometheus.Gauge
	WalletUnconfirmedBalanceMsat prometheus.Gauge
	WalletFSMState               prometheus.Gauge
	ChainTipHeight               prometheus.Gauge

	InFlightIncomingPayments prometheus.Gauge
	InFlightOutgoingPayments prometheus.Gauge

	TrampolineRelayEarningsMsatTotal prometheus.Counter
	TrampolineRelaysTotal            *prometheus.CounterVec
}

// New builds a Metrics instance registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		logger:   log.Metrics,

		WalletConfirmedBalanceMsat: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "confirmed_balance_msat",
			Help:      "Confirmed wallet balance, in millisatoshi.",
		}),
		WalletUnconfirmedBalanceMsat: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "unconfirmed_balance_msat",
			Help:      "Unconfirmed wallet balance, in millisatoshi.",
		}),
		WalletFSMState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "fsm_state",
			Help:      "Current walletfsm.State as an integer (DISCONNECTED=0, WAITING_FOR_TIP=1, SYNCING=2, RUNNING=3).",
		}),
		ChainTipHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "chain_tip_height",
			Help:      "Height of the locally verified header-chain tip.",
		}),
		InFlightIncomingPayments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "inflight_incoming_payments",
			Help:      "Number of incoming payment FSMs (receiver + trampoline) currently active.",
		}),
		InFlightOutgoingPayments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_wallet",
			Name:      "inflight_outgoing_payments",
			Help:      "Number of outgoing multi-part sends currently active on behalf of a trampoline relay.",
		}),
		TrampolineRelayEarningsMsatTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "klingnet_wallet",
			Subsystem: "trampoline",
			Name:      "relay_earnings_msat_total",
			Help:      "Cumulative fee income earned relaying trampoline payments, in millisatoshi.",
		}),
		TrampolineRelaysTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klingnet_wallet",
			Subsystem: "trampoline",
			Name:      "relays_total",
			Help:      "Completed trampoline relays by outcome.",
		}, []string{"outcome"}),
	}

	return m
}

// Handler serves /metrics for a registered prometheus scraper.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing Handler at addr, in the
// background. Returns once the listener is bound.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}

	m.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the metrics HTTP server, if running.
func (m *Metrics) Stop() error {
	if m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}

// RecordRelay increments the relay-outcome counter and, when the relay
// earned a fee, adds it to the cumulative earnings counter.
func (m *Metrics) RecordRelay(succeeded bool, earnedMsat uint64) {
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
		m.TrampolineRelayEarningsMsatTotal.Add(float64(earnedMsat))
	}
	m.TrampolineRelaysTotal.WithLabelValues(outcome).Inc()
}

// SetWalletFSMState records the wallet FSM's current state. Callers pass
// the integer value of their walletfsm.State so this package stays a
// leaf dependency (it does not import internal/walletfsm).
func (m *Metrics) SetWalletFSMState(state int) {
	m.WalletFSMState.Set(float64(state))
}
