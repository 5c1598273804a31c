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

// fabsim is a standalone tick simulator for a single FABCore. It has two
// modes:
//
//   - scenario mode (-scenario s1..s6) replays one of the canonical
//     reference scenarios against a fresh core, tick by tick, printing the
//     resulting snapshot after every fill/step. This is useful for
//     eyeballing hysteresis and mode-machine behavior without writing a
//     throwaway test.
//   - load mode (-scenario load) runs a synthetic traffic generator against
//     one core indefinitely (or for -duration), at a target fill rate, with
//     a configurable score distribution, and exposes the resulting
//     diagnostics on a Prometheus /metrics endpoint.
//
// Usage:
//
//	go run ./cmd/fabsim -scenario s1
//	go run ./cmd/fabsim -scenario load -http :8080 -fills_per_sec 50 -duration 30s
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orbis-labs/fabcore/internal/telemetry/fabmetrics"
	"github.com/orbis-labs/fabcore/pkg/fab"
)

func main() {
	scenario := flag.String("scenario", "s1", "scenario to run: s1, s2, s3, s4, s5, s6, or load")
	httpAddr := flag.String("http", "", "if set, serve Prometheus metrics on this address during load mode (e.g. :8080)")
	fillsPerSec := flag.Float64("fills_per_sec", 20, "target fill() calls per second in load mode")
	duration := flag.Duration("duration", 30*time.Second, "how long to run load mode; 0 runs forever")
	nodes := flag.Int("nodes", 32, "budgets.nodes for load mode")
	hotFraction := flag.Float64("hot_fraction", 0.5, "fraction of generated nodes scored in the hot band (~0.9) vs a cooler band (~0.5) in load mode")
	flag.Parse()

	switch *scenario {
	case "s1":
		runS1Upgrade()
	case "s2":
		runS2TinySampleGuard()
	case "s3":
		runS3HappyPathPromotion()
	case "s4":
		runS4DegradationResetsStability()
	case "s5":
		runS5DeterminismAcrossBudgets()
	case "s6":
		runS6DiversityForMixedClusters()
	case "load":
		runLoad(*httpAddr, *fillsPerSec, *duration, *nodes, *hotFraction)
	default:
		log.Fatalf("unknown scenario %q (want s1..s6 or load)", *scenario)
	}
}

func printSnapshot(tick int, snap fab.Snapshot) {
	b, _ := json.Marshal(snap)
	fmt.Printf("tick=%d %s\n", tick, string(b))
}

// runS1Upgrade reproduces a hysteresis-gated precision upgrade: a uniformly
// hot score distribution should dwell at cold for the configured dwell
// period before stabilizing at hot.
func runS1Upgrade() {
	cfg := fab.DefaultConfig()
	cfg.SessionID = "sim-s1"
	cfg.EnvelopeMode = fab.EnvelopeHysteresis
	cfg.Hysteresis = fab.HysteresisConfig{DwellTime: 3, RateLimitTicks: 5, MinStreamForUpgrade: 8}
	core := fab.New(cfg)

	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: 32, Tokens: 4096}); err != nil {
		log.Fatal(err)
	}
	z := fab.ZSlice{Quotas: fab.Budgets{Nodes: 32}, Seed: "s1-seed"}
	for i := 0; i < 32; i++ {
		z.Nodes = append(z.Nodes, fab.ZNode{ID: fmt.Sprintf("n%d", i), Score: 0.85 + 0.10*rand.Float64()})
	}

	for tick := 1; tick <= 10; tick++ {
		if err := core.Fill(z); err != nil {
			log.Fatal(err)
		}
		snap, err := core.Mix()
		if err != nil {
			log.Fatal(err)
		}
		printSnapshot(tick, snap)
	}
}

// runS2TinySampleGuard reproduces the tiny-sample guard: with fewer nodes
// than MinStreamForUpgrade, hysteresis mode should never leave cold.
func runS2TinySampleGuard() {
	cfg := fab.DefaultConfig()
	cfg.SessionID = "sim-s2"
	cfg.EnvelopeMode = fab.EnvelopeHysteresis
	core := fab.New(cfg)

	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: 4, Tokens: 512}); err != nil {
		log.Fatal(err)
	}
	z := fab.ZSlice{
		Nodes: []fab.ZNode{
			{ID: "n0", Score: 0.9}, {ID: "n1", Score: 0.9},
			{ID: "n2", Score: 0.9}, {ID: "n3", Score: 0.9},
		},
		Quotas: fab.Budgets{Nodes: 4},
		Seed:   "s2-seed",
	}
	for tick := 1; tick <= 10; tick++ {
		if err := core.Fill(z); err != nil {
			log.Fatal(err)
		}
		snap, err := core.Mix()
		if err != nil {
			log.Fatal(err)
		}
		printSnapshot(tick, snap)
	}
}

// runS3HappyPathPromotion reproduces the FAB0 -> FAB1 -> FAB2 happy path
// under sustained healthy metrics.
func runS3HappyPathPromotion() {
	core := fab.New(fab.Config{SessionID: "sim-s3"})
	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: 16, Tokens: 2048}); err != nil {
		log.Fatal(err)
	}
	metrics := fab.Metrics{Stress: 0.1, SelfPresence: 0.9, ErrorRate: 0.0}
	for tick := 1; tick <= 5; tick++ {
		result, err := core.Step(metrics)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("tick=%d mode=%s stable_ticks=%d\n", tick, result.Mode, result.StableTicks)
	}
}

// runS4DegradationResetsStability reproduces a degradation event from a
// stable FAB2 state, confirming stability resets to zero on demotion.
func runS4DegradationResetsStability() {
	core := fab.New(fab.Config{SessionID: "sim-s4"})
	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: 16, Tokens: 2048}); err != nil {
		log.Fatal(err)
	}
	healthy := fab.Metrics{Stress: 0.1, SelfPresence: 0.9, ErrorRate: 0.0}
	for tick := 1; tick <= 12; tick++ {
		result, err := core.Step(healthy)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("tick=%d mode=%s stable_ticks=%d\n", tick, result.Mode, result.StableTicks)
	}

	degraded := fab.Metrics{Stress: 0.8, SelfPresence: 0.3, ErrorRate: 0.2}
	result, err := core.Step(degraded)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("degrade-tick mode=%s stable_ticks=%d\n", result.Mode, result.StableTicks)
}

// runS5DeterminismAcrossBudgets reproduces determinism across repeated runs
// at several budget sizes, printing the stream size and selected_diversity
// for each so two invocations of this binary can be diffed byte-for-byte.
func runS5DeterminismAcrossBudgets() {
	z := fab.ZSlice{Seed: "zs-1"}
	for i := 0; i < 100; i++ {
		z.Nodes = append(z.Nodes, fab.ZNode{ID: fmt.Sprintf("n%03d", i), Score: float64(i%97) / 97.0})
	}

	for _, n := range []int{8, 16, 32, 64} {
		cfg := fab.Config{SessionID: "sid-1"}
		core := fab.New(cfg)
		z.Quotas = fab.Budgets{Nodes: n}
		if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: n, Tokens: 4096}); err != nil {
			log.Fatal(err)
		}
		if err := core.Fill(z); err != nil {
			log.Fatal(err)
		}
		snap, err := core.Mix()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("nodes=%d stream_size=%d selected_diversity=%v\n", n, snap.StreamSize, snap.Diagnostics.Derived.SelectedDiversity)
	}
}

// runS6DiversityForMixedClusters reproduces the diversity scenario: two
// score clusters should both be represented in the stream window.
func runS6DiversityForMixedClusters() {
	var z fab.ZSlice
	for i := 0; i < 20; i++ {
		z.Nodes = append(z.Nodes, fab.ZNode{ID: fmt.Sprintf("hot-%d", i), Score: 0.9, Vec: []float64{1, 0}})
	}
	for i := 0; i < 20; i++ {
		z.Nodes = append(z.Nodes, fab.ZNode{ID: fmt.Sprintf("warm-%d", i), Score: 0.7, Vec: []float64{0, 1}})
	}
	z.Quotas = fab.Budgets{Nodes: 16}
	z.Seed = "s6-seed"

	core := fab.New(fab.Config{SessionID: "sim-s6"})
	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: 16, Tokens: 2048}); err != nil {
		log.Fatal(err)
	}
	if err := core.Fill(z); err != nil {
		log.Fatal(err)
	}
	snap, err := core.Mix()
	if err != nil {
		log.Fatal(err)
	}
	printSnapshot(1, snap)
}

// runLoad drives one core with a steady stream of synthetic fills, mixing
// its diagnostics into fabmetrics after every fill so -http can be scraped
// while the generator runs.
func runLoad(httpAddr string, fillsPerSec float64, duration time.Duration, nodeBudget int, hotFraction float64) {
	if fillsPerSec <= 0 {
		fillsPerSec = 20
	}
	if nodeBudget <= 0 {
		nodeBudget = 32
	}

	if httpAddr != "" {
		fabmetrics.Enable(true)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("fabsim load metrics listening on %s", httpAddr)
			if err := http.ListenAndServe(httpAddr, mux); err != nil {
				log.Fatalf("http: %v", err)
			}
		}()
	}

	cfg := fab.DefaultConfig()
	cfg.SessionID = "sim-load"
	cfg.EnvelopeMode = fab.EnvelopeHysteresis
	core := fab.New(cfg)
	if err := core.InitTick(fab.FAB0, fab.Budgets{Nodes: nodeBudget, Tokens: nodeBudget * 128}); err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	interval := time.Duration(float64(time.Second) / fillsPerSec)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var endTimer <-chan time.Time
	if duration > 0 {
		endTimer = time.After(duration)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	tick := 0
	healthyMetrics := fab.Metrics{Stress: 0.15, SelfPresence: 0.85, ErrorRate: 0.02}
	for {
		select {
		case <-ticker.C:
			tick++
			z := syntheticSlice(rng, nodeBudget, hotFraction, tick)
			if err := core.Fill(z); err != nil {
				log.Printf("fill error: %v", err)
				continue
			}
			if _, err := core.Step(healthyMetrics); err != nil {
				log.Printf("step error: %v", err)
				continue
			}
			snap, err := core.Mix()
			if err != nil {
				log.Printf("mix error: %v", err)
				continue
			}
			fabmetrics.Observe(core.SessionID(), snap)
			if tick%20 == 0 {
				printSnapshot(tick, snap)
			}
		case <-endTimer:
			fmt.Println("fabsim load: duration elapsed, stopping")
			return
		case <-sigCh:
			fmt.Println("\nfabsim load: interrupted, stopping")
			return
		}
	}
}

func syntheticSlice(rng *rand.Rand, nodeBudget int, hotFraction float64, tick int) fab.ZSlice {
	count := nodeBudget * 2
	z := fab.ZSlice{
		Quotas: fab.Budgets{Nodes: nodeBudget},
		Seed:   fmt.Sprintf("load-seed-%d", tick),
	}
	for i := 0; i < count; i++ {
		score := 0.45 + 0.1*rng.Float64()
		if rng.Float64() < hotFraction {
			score = 0.85 + 0.1*rng.Float64()
		}
		z.Nodes = append(z.Nodes, fab.ZNode{ID: fmt.Sprintf("n%d-%d", tick, i), Score: score})
	}
	return z
}
