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

	"go.uber.org/zap"
)

// MockSink writes each event to a *zap.Logger at Info level. It is the
// default sink kind — no external dependency, same role as the teacher's
// MockPersister.
type MockSink struct {
	log *zap.Logger
}

// NewMockSink builds a MockSink. log may be nil, in which case a no-op
// logger is used.
func NewMockSink(log *zap.Logger) *MockSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &MockSink{log: log}
}

func (s *MockSink) Record(_ context.Context, ev Event) error {
	s.log.Info("audit event",
		zap.String("service", ev.Service),
		zap.String("kind", string(ev.Kind)),
		zap.String("reason", ev.Reason),
		zap.Int("status", ev.Status),
		zap.String("peer_ip", ev.PeerIP),
		zap.String("uri_path", ev.URIPath),
		zap.Time("ts", ev.Timestamp),
	)
	return nil
}

func (s *MockSink) Close() error { return nil }
