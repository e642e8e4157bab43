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
	"database/sql"
	"fmt"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS audit_events (
//   id BIGSERIAL PRIMARY KEY,
//   service TEXT NOT NULL,
//   kind TEXT NOT NULL,
//   reason TEXT NOT NULL,
//   status INT NOT NULL,
//   peer_ip TEXT,
//   uri_path TEXT,
//   ts TIMESTAMPTZ NOT NULL
// );
// CREATE INDEX IF NOT EXISTS idx_audit_events_service_ts ON audit_events(service, ts);

// PostgresSink inserts one row per event, driver-agnostic via *sql.DB —
// the same injection pattern as persistence.PostgresPersister, simplified
// since audit rows need no idempotency key (a duplicate insert is just a
// duplicate log line, not a double-counted balance).
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink builds a sink writing to the audit_events table via db.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (service, kind, reason, status, peer_ip, uri_path, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.Service, string(ev.Kind), ev.Reason, ev.Status, ev.PeerIP, ev.URIPath, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("audit postgres insert: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error { return s.db.Close() }
