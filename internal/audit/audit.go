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

// Package audit records why a request was turned away. Admission
// rejections and filter rejections are routine outcomes, not errors (see
// spec.md §7) — this package exists purely to leave a durable trail for
// later review, and never influences the outcome it records.
package audit

import (
	"context"
	"time"
)

// Kind enumerates the event classes River can record.
type Kind string

const (
	KindAdmissionRejected Kind = "admission_rejected"
	KindFilterRejected    Kind = "filter_rejected"
	KindNoUpstream        Kind = "no_upstream"
)

// Event is one audit record. Reason names the rule or filter kind
// responsible (e.g. a rule's regex pattern, or "block-cidr-range").
type Event struct {
	Service   string
	Kind      Kind
	Reason    string
	Status    int
	PeerIP    string
	URIPath   string
	Timestamp time.Time
}

// Sink persists Events. Implementations must not block the request path
// for long; CommitBatch-shaped batching is left to each adapter.
type Sink interface {
	Record(ctx context.Context, ev Event) error
	Close() error
}

// NopSink discards every event; used when no sink is configured.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) error { return nil }
func (NopSink) Close() error                         { return nil }
