// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fabmetrics exposes a fleet of FABCore diagnostics snapshots as
// Prometheus metrics. It is opt-in and safe to call from a hot path: when
// disabled, Observe is a no-op.
package fabmetrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

var enabled atomic.Bool

// DiagnosticsSnapshot.Counters are already cumulative totals tracked by a
// FABCore for its own lifetime, so every metric here is a Gauge set to the
// snapshot's current value rather than a Counter accumulated across calls;
// repeatedly Observing the same tick is therefore idempotent.
var (
	ticksTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_ticks_total",
		Help: "Total ticks processed, per session.",
	}, []string{"session"})
	envelopeChangesTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_envelope_changes_total",
		Help: "Total stream precision envelope changes, per session.",
	}, []string{"session"})
	modeTransitionsTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_mode_transitions_total",
		Help: "Total FabMode transitions, per session.",
	}, []string{"session"})
	rebalanceEventsTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_rebalance_events_total",
		Help: "Total fill() calls where MMR diversity rebalancing ran, per session.",
	}, []string{"session"})

	streamSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_stream_window_size",
		Help: "Current stream window occupancy, per session.",
	}, []string{"session"})
	globalSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_global_window_size",
		Help: "Current global window occupancy, per session.",
	}, []string{"session"})
	stableTicks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_stable_ticks",
		Help: "Consecutive ticks the current FabMode has held, per session.",
	}, []string{"session"})
	streamPrecisionLevel = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_stream_precision_level",
		Help: "Ranked stream precision level (cold=0 .. hot=3), per session.",
	}, []string{"session"})
	changesPer1k = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_envelope_changes_per_1k_ticks",
		Help: "Envelope changes normalized per 1000 ticks, per session.",
	}, []string{"session"})
	selectedDiversity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fab_selected_diversity",
		Help: "Population variance of stream window scores, per session.",
	}, []string{"session"})

	fleetAvailableTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fab_fleet_available_tokens",
		Help: "Remaining fleet-wide token budget across all hosted sessions.",
	})
)

func init() {
	prometheus.MustRegister(
		ticksTotal, envelopeChangesTotal, modeTransitionsTotal, rebalanceEventsTotal,
		streamSize, globalSize, stableTicks, streamPrecisionLevel, changesPer1k, selectedDiversity,
		fleetAvailableTokens,
	)
}

// Enable turns metric recording on or off process-wide.
func Enable(on bool) { enabled.Store(on) }

// Enabled reports whether recording is active.
func Enabled() bool { return enabled.Load() }

// Observe records one session's diagnostics snapshot.
func Observe(sessionID string, snap fab.Snapshot) {
	if !enabled.Load() {
		return
	}
	c := snap.Diagnostics.Counters
	ticksTotal.WithLabelValues(sessionID).Set(float64(c.Ticks))
	envelopeChangesTotal.WithLabelValues(sessionID).Set(float64(c.EnvelopeChanges))
	modeTransitionsTotal.WithLabelValues(sessionID).Set(float64(c.ModeTransitions))
	rebalanceEventsTotal.WithLabelValues(sessionID).Set(float64(c.RebalanceEvents))

	g := snap.Diagnostics.Gauges
	streamSize.WithLabelValues(sessionID).Set(float64(g.StreamSize))
	globalSize.WithLabelValues(sessionID).Set(float64(g.GlobalSize))
	stableTicks.WithLabelValues(sessionID).Set(float64(g.StableTicks))
	streamPrecisionLevel.WithLabelValues(sessionID).Set(float64(fab.Level(g.StreamPrecision)))

	d := snap.Diagnostics.Derived
	changesPer1k.WithLabelValues(sessionID).Set(d.ChangesPer1k)
	selectedDiversity.WithLabelValues(sessionID).Set(d.SelectedDiversity)
}

// ObserveFleetAvailableTokens records the fleet-wide remaining token budget.
func ObserveFleetAvailableTokens(available int64) {
	if !enabled.Load() {
		return
	}
	fleetAvailableTokens.Set(float64(available))
}

// DeleteSession removes every per-session series for sessionID, called on
// eviction so stale label combinations do not accumulate forever.
func DeleteSession(sessionID string) {
	ticksTotal.DeleteLabelValues(sessionID)
	envelopeChangesTotal.DeleteLabelValues(sessionID)
	modeTransitionsTotal.DeleteLabelValues(sessionID)
	rebalanceEventsTotal.DeleteLabelValues(sessionID)
	streamSize.DeleteLabelValues(sessionID)
	globalSize.DeleteLabelValues(sessionID)
	stableTicks.DeleteLabelValues(sessionID)
	streamPrecisionLevel.DeleteLabelValues(sessionID)
	changesPer1k.DeleteLabelValues(sessionID)
	selectedDiversity.DeleteLabelValues(sessionID)
}

// StartMetricsEndpoint exposes /metrics on addr in a background goroutine.
func StartMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
