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

// Package kafkastore externalizes fab.Snapshot values onto a Kafka topic.
// It deliberately avoids importing a specific Kafka client: Producer is a
// minimal interface any client (segmentio/kafka-go, confluent-kafka-go,
// sarama) can satisfy, so the demo build stays dependency-light while a
// production deployment wires in a real producer.
package kafkastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

// Producer is the minimal abstraction this store needs from a Kafka
// client. Implementations should enable an idempotent producer
// (enable.idempotence=true) and use the message key for broker-side
// deduplication and per-session ordering.
type Producer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// Message is the JSON payload published for each externalized snapshot.
type Message struct {
	SessionID       string    `json:"session_id"`
	Tick            int       `json:"tick"`
	Mode            string    `json:"mode"`
	GlobalPrecision string    `json:"global_precision"`
	StreamPrecision string    `json:"stream_precision"`
	GlobalSize      int       `json:"global_size"`
	StreamSize      int       `json:"stream_size"`
	Snapshot        fab.Snapshot `json:"snapshot"`
	TsUnixMs        int64     `json:"ts_unix_ms"`
}

// Store publishes one message per snapshot. It does not apply state
// locally; materialization and idempotent consumption (tracking the last
// applied tick per session) are the consumer's responsibility, matching
// the log-as-source-of-truth shape Kafka-backed adapters take elsewhere in
// this codebase.
type Store struct {
	producer       Producer
	topic          string
	defaultTimeout time.Duration
	now            func() time.Time
}

// New returns a Store publishing to topic via producer.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic, defaultTimeout: 10 * time.Second, now: time.Now}
}

// PutSnapshot implements session.SnapshotStore.
func (s *Store) PutSnapshot(ctx context.Context, sessionID string, snap fab.Snapshot) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && s.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaultTimeout)
		defer cancel()
	}

	msg := Message{
		SessionID:       sessionID,
		Tick:            snap.Diagnostics.Counters.Ticks,
		Mode:            snap.Mode.String(),
		GlobalPrecision: string(snap.GlobalPrecision),
		StreamPrecision: string(snap.StreamPrecision),
		GlobalSize:      snap.GlobalSize,
		StreamSize:      snap.StreamSize,
		Snapshot:        snap,
		TsUnixMs:        s.now().UnixMilli(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal kafka message for %s: %w", sessionID, err)
	}
	headers := map[string]string{"content-type": "application/json"}
	if err := s.producer.Produce(ctx, s.topic, []byte(sessionID), b, headers); err != nil {
		return fmt.Errorf("kafka produce session=%s: %w", sessionID, err)
	}
	return nil
}

// LoggingProducer is a dependency-free demo producer used when no real
// Kafka client is configured.
type LoggingProducer struct{ Sink func(line string) }

func (p LoggingProducer) Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	line := fmt.Sprintf("[kafka-demo] TOPIC=%s KEY=%s VALUE=%s HEADERS=%v", topic, string(key), truncate(string(value), 256), headers)
	if p.Sink != nil {
		p.Sink(line)
	} else {
		fmt.Println(line)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
