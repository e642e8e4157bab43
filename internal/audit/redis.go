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
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// RedisStreamAppender is the minimal surface audit needs from a Redis
// client, mirroring the injection shape of persistence.RedisEvaler so a
// real client or a logging stand-in can both satisfy it.
type RedisStreamAppender interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) (string, error)
}

// RedisSink appends events to a capped Redis stream — the same
// idempotent-commit lineage as persistence.RedisPersister, adapted from a
// counter update (SETNX + HINCRBY) to an append-only audit trail (XADD
// MAXLEN ~) since audit records have no idempotency requirement: a
// duplicate audit entry is harmless, unlike a duplicate counter commit.
type RedisSink struct {
	client   RedisStreamAppender
	stream   string
	maxLen   int64
}

// NewRedisSink builds a sink that appends to streamKey, trimmed
// approximately to maxLen entries (0 disables trimming).
func NewRedisSink(client RedisStreamAppender, streamKey string, maxLen int64) *RedisSink {
	if streamKey == "" {
		streamKey = "river:audit"
	}
	return &RedisSink{client: client, stream: streamKey, maxLen: maxLen}
}

// goRedisClient adapts *redis.Client's XAdd (which returns a *redis.StringCmd)
// to the plain (string, error) shape of RedisStreamAppender.
type goRedisClient struct{ c *redis.Client }

func (g goRedisClient) XAdd(ctx context.Context, a *redis.XAddArgs) (string, error) {
	return g.c.XAdd(ctx, a).Result()
}

// NewGoRedisSink constructs a RedisSink over a real github.com/redis/go-redis/v9
// client connected to addr.
func NewGoRedisSink(addr, streamKey string, maxLen int64) *RedisSink {
	c := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisSink(goRedisClient{c: c}, streamKey, maxLen)
}

func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"service":  ev.Service,
			"kind":     string(ev.Kind),
			"reason":   ev.Reason,
			"status":   strconv.Itoa(ev.Status),
			"peer_ip":  ev.PeerIP,
			"uri_path": ev.URIPath,
			"ts_ms":    ev.Timestamp.UnixMilli(),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if _, err := s.client.XAdd(ctx, args); err != nil {
		return fmt.Errorf("audit redis xadd stream=%s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSink) Close() error { return nil }
