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
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Options carries the knobs needed by any sink kind; unused fields for a
// given kind are ignored, following persistence.DemoOptions's shape.
type Options struct {
	Logger       *zap.Logger
	RedisAddr    string
	RedisStream  string
	RedisMaxLen  int64
	Postgres     *sql.DB
	ProducerImpl Producer
	Topic        string
}

// Build constructs a Sink from a string selector, mirroring
// persistence.BuildPersister's factory shape.
//
// Supported kinds: "" / "mock" (default), "redis", "postgres", "producer".
func Build(kind string, opts Options) (Sink, error) {
	switch kind {
	case "", "mock":
		return NewMockSink(opts.Logger), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("audit redis sink: RedisAddr is required")
		}
		maxLen := opts.RedisMaxLen
		if maxLen <= 0 {
			maxLen = 100_000
		}
		return NewGoRedisSink(opts.RedisAddr, opts.RedisStream, maxLen), nil
	case "postgres":
		if opts.Postgres == nil {
			return nil, fmt.Errorf("audit postgres sink: Postgres *sql.DB is required")
		}
		return NewPostgresSink(opts.Postgres), nil
	case "producer":
		p := opts.ProducerImpl
		if p == nil {
			p = LoggingProducer{}
		}
		return NewProducerSink(p, opts.Topic), nil
	default:
		return nil, fmt.Errorf("unknown audit sink kind: %s", kind)
	}
}
