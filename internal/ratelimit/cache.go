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

package ratelimit

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/dgryski/go-rendezvous"

	"river/internal/ratelimit/arc"
)

// defaultShards is the number of independent ARC segments a BucketCache
// fans out across, satisfying spec.md §9's "avoid a single global mutex;
// shard by key-hash into N independent ARC segments."
const defaultShards = 16

// BucketCache is the bounded mapping from key to *Bucket described in
// spec.md §3. It shards across N independent arc.Cache segments, each with
// its own mutex, and uses rendezvous hashing (rather than a plain modulo)
// to assign a key to a shard so a future change in shard count remaps only
// a minimal fraction of keys.
type BucketCache struct {
	shards []*shard
	rdv    *rendezvous.Rendezvous
	maxBuckets int
}

type shard struct {
	mu    sync.Mutex
	cache *arc.Cache
}

// NewBucketCache builds a cache bounded by maxBuckets total resident
// entries, spread evenly across defaultShards segments (or across
// maxBuckets single-entry segments when maxBuckets < defaultShards).
func NewBucketCache(maxBuckets int) *BucketCache {
	if maxBuckets < 1 {
		maxBuckets = 1
	}
	shardCount := defaultShards
	if maxBuckets < shardCount {
		shardCount = maxBuckets
	}
	perShard := maxBuckets / shardCount

	names := make([]string, shardCount)
	shards := make([]*shard, shardCount)
	for i := range shards {
		names[i] = fmt.Sprintf("shard-%d", i)
		shards[i] = &shard{cache: arc.New(perShard)}
	}

	return &BucketCache{
		shards:     shards,
		rdv:        rendezvous.New(names, fnvHash),
		maxBuckets: maxBuckets,
	}
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// GetOrCreate returns the bucket for key, creating it via newFn on first
// access (spec.md §3: "Created lazily on first key hit").
func (c *BucketCache) GetOrCreate(key string, newFn func() *Bucket) *Bucket {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.cache.Put(key, func() arc.Evictable { return newFn() })
	return v.(*Bucket)
}

// shardFor resolves key to a shard via rendezvous hashing. Shard names are
// "shard-<index>" assigned in order at construction, so the chosen name
// maps back to the slice index directly.
func (c *BucketCache) shardFor(key string) *shard {
	name := c.rdv.Lookup(key)
	var idx int
	if _, err := fmt.Sscanf(name, "shard-%d", &idx); err != nil || idx < 0 || idx >= len(c.shards) {
		return c.shards[0]
	}
	return c.shards[idx]
}

// Len returns the total number of resident entries across all shards.
func (c *BucketCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += s.cache.Len()
		s.mu.Unlock()
	}
	return total
}
