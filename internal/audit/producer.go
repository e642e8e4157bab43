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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Producer is a minimal abstraction over a message-broker client, the
// same shape as persistence.KafkaProducer — River does not hard-depend
// on any specific broker library, matching the teacher's own choice not
// to import one.
type Producer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// LoggingProducer is a demo Producer that prints what it would have sent.
// Not for production use.
type LoggingProducer struct{}

func (LoggingProducer) Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[audit-producer-demo] TOPIC=%s KEY=%s VALUE=%s HEADERS=%v\n", topic, string(key), string(value), headers)
	return nil
}

// ProducerSink publishes each event as a JSON message keyed by service
// name, leaving materialization (a search index, a SIEM ingester, ...) to
// whatever consumes the topic.
type ProducerSink struct {
	producer Producer
	topic    string
}

// NewProducerSink builds a sink publishing to topic via producer.
func NewProducerSink(producer Producer, topic string) *ProducerSink {
	if topic == "" {
		topic = "river-audit-events"
	}
	return &ProducerSink{producer: producer, topic: topic}
}

func (s *ProducerSink) Record(ctx context.Context, ev Event) error {
	payload := struct {
		Service  string    `json:"service"`
		Kind     string    `json:"kind"`
		Reason   string    `json:"reason"`
		Status   int       `json:"status"`
		PeerIP   string    `json:"peer_ip"`
		URIPath  string    `json:"uri_path"`
		Ts       time.Time `json:"ts"`
	}{ev.Service, string(ev.Kind), ev.Reason, ev.Status, ev.PeerIP, ev.URIPath, ev.Timestamp}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit marshal event: %w", err)
	}
	headers := map[string]string{"content-type": "application/json"}
	if err := s.producer.Produce(ctx, s.topic, []byte(ev.Service), b, headers); err != nil {
		return fmt.Errorf("audit produce topic=%s: %w", s.topic, err)
	}
	return nil
}

func (s *ProducerSink) Close() error { return nil }
