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

// Package main provides the entry point for the FAB Core demo application.
//
// This application is a concrete, runnable demonstration of the core FAB
// library (pkg/fab). It hosts many FABCore instances behind a small HTTP
// surface, arbitrates a shared fleet token budget between them, and
// periodically externalizes diagnostics snapshots to a pluggable backend.
//
// This file orchestrates the whole service:
//  1. Initializing the session Manager and its fleet token pool.
//  2. Starting the background SnapshotWorker for externalization and
//     idle-session eviction.
//  3. Starting the HTTP demo server to drive tick loops live.
//  4. Managing graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbis-labs/fabcore/internal/api"
	"github.com/orbis-labs/fabcore/internal/session"
	"github.com/orbis-labs/fabcore/internal/snapshot/kafkastore"
	"github.com/orbis-labs/fabcore/internal/snapshot/redisstore"
	"github.com/orbis-labs/fabcore/internal/telemetry/fabmetrics"
)

func main() {
	// --- What this is ---
	// This demo hosts many FABCore sessions in one process. Each session
	// owns its own Global/Stream windows and mode machine; the only shared
	// state is the fleet token pool, which bounds how many tokens of
	// budgets.Tokens can be claimed across all in-flight ticks at once.
	//
	// Try it:
	//   curl -X POST localhost:8080/sessions/demo/init_tick -d '{"mode":"FAB0","budgets":{"nodes":32,"tokens":4096}}'
	//   curl -X POST localhost:8080/sessions/demo/fill -d '{"nodes":[{"id":"n1","score":0.9}],"quotas":{"nodes":32}}'
	//   curl -X POST localhost:8080/sessions/demo/step -d '{"SelfPresence":0.9,"Stress":0.1}'
	//   curl localhost:8080/sessions/demo/mix

	fleetTokens := flag.Int64("fleet_tokens", 1_000_000, "Total token budget shared across every hosted session")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address (e.g., :8080)")
	snapshotInterval := flag.Duration("snapshot_interval", time.Second, "How often to mix() and externalize every hosted session")
	evictionAge := flag.Duration("eviction_age", time.Hour, "Evict sessions that haven't been touched for this long")
	evictionInterval := flag.Duration("eviction_interval", 10*time.Minute, "How often to scan for idle sessions")
	snapshotBackend := flag.String("snapshot_backend", "none", "Snapshot externalization backend: none|redis|kafka")
	redisAddr := flag.String("redis_addr", "127.0.0.1:6379", "Redis address when snapshot_backend=redis")
	kafkaTopic := flag.String("kafka_topic", "fab-snapshots", "Kafka topic when snapshot_backend=kafka")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *metricsAddr != "" {
		fabmetrics.Enable(true)
		fabmetrics.StartMetricsEndpoint(*metricsAddr)
	}

	store := buildSnapshotStore(*snapshotBackend, *redisAddr, *kafkaTopic, logger)

	manager := session.NewManager(*fleetTokens, nil)
	worker := session.NewSnapshotWorker(manager, store, *snapshotInterval, evictionAge2(evictionAge), *evictionInterval, logger)
	worker.Start()

	apiServer := api.NewServer(manager)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("fab demo API server listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nshutting down fabd...")
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	fmt.Println("fabd gracefully stopped.")
}

// evictionAge2 exists only to keep flag.Duration's pointer dereferenced in
// one place; evictionAge is read once at startup.
func evictionAge2(d *time.Duration) time.Duration { return *d }

func buildSnapshotStore(backend, redisAddr, kafkaTopic string, logger *slog.Logger) session.SnapshotStore {
	switch backend {
	case "", "none":
		return nil
	case "redis":
		evaler := redisstore.NewGoRedisEvaler(redisAddr)
		return redisstore.New(evaler, 24*time.Hour)
	case "kafka":
		producer := kafkastore.LoggingProducer{Sink: func(line string) { logger.Info(line) }}
		return kafkastore.New(producer, kafkaTopic)
	default:
		log.Fatalf("unknown snapshot backend: %s", backend)
		return nil
	}
}
