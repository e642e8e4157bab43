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

// Package arc implements an Adaptive Replacement Cache: two resident lists
// T1 (recency) and T2 (frequency), two ghost lists B1 and B2 holding
// key-only metadata of recently evicted entries, and a self-tuning target
// size p for T1. See spec.md §4.2/§9 for the eviction rule this
// implements.
//
// A single Cache instance is a single ARC segment guarded by one mutex.
// spec.md §9 asks for the cache as a whole to "avoid a single global
// mutex; shard by key-hash into N independent ARC segments" — that sharding
// lives one level up, in internal/ratelimit/cache.go, which fans out across
// N of these.
package arc

import "container/list"

// Evictable is implemented by values the cache stores. A value reporting
// true from HasWaiters is never evicted (spec.md §4.2: "A bucket with
// active waiters must not be evicted; if a candidate has waiters, select
// the next eviction candidate").
type Evictable interface {
	HasWaiters() bool
}

type resident struct {
	key   string
	value Evictable
}

// Cache is one ARC segment, bounded by capacity. Not safe for concurrent
// use on its own — callers serialize access (see cache.go's per-shard
// mutex).
type Cache struct {
	capacity int
	p        int // target size for T1, in [0, capacity]

	t1, t2, b1, b2 *list.List

	t1idx, t2idx map[string]*list.Element // key -> element, resident lists
	b1idx, b2idx map[string]*list.Element // key -> element, ghost lists (value is nil resident)
}

// New creates an ARC segment with the given capacity (must be >= 1).
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		t1idx:    make(map[string]*list.Element),
		t2idx:    make(map[string]*list.Element),
		b1idx:    make(map[string]*list.Element),
		b2idx:    make(map[string]*list.Element),
	}
}

// Get returns the resident value for key, promoting a T1 hit to T2 (the
// key has now been seen at least twice) and refreshing a T2 hit to MRU.
func (c *Cache) Get(key string) (Evictable, bool) {
	if el, ok := c.t1idx[key]; ok {
		r := el.Value.(*resident)
		c.t1.Remove(el)
		delete(c.t1idx, key)
		ne := c.t2.PushFront(r)
		c.t2idx[key] = ne
		return r.value, true
	}
	if el, ok := c.t2idx[key]; ok {
		c.t2.MoveToFront(el)
		return el.Value.(*resident).value, true
	}
	return nil, false
}

// Put inserts or updates key. newFn is called (at most once) to construct
// the value only on a true miss (key not already resident); on a ghost hit
// (B1 or B2) the caller's newFn result is still used, since a ghost carries
// no payload, but the ARC list bookkeeping (p adjustment, promotion into
// T2) reflects the ghost history per the standard ARC algorithm.
func (c *Cache) Put(key string, newFn func() Evictable) Evictable {
	if v, ok := c.Get(key); ok {
		return v
	}

	if el, ok := c.b1idx[key]; ok {
		// Ghost hit in B1: increase p, then this key is promoted straight to T2.
		delta := 1
		if c.b1.Len() > 0 && c.b2.Len() > c.b1.Len() {
			delta = c.b2.Len() / c.b1.Len()
		}
		c.p = clamp(c.p+delta, 0, c.capacity)
		c.b1.Remove(el)
		delete(c.b1idx, key)
		c.replace(false)
		v := newFn()
		ne := c.t2.PushFront(&resident{key: key, value: v})
		c.t2idx[key] = ne
		return v
	}

	if el, ok := c.b2idx[key]; ok {
		// Ghost hit in B2: decrease p, promote to T2.
		delta := 1
		if c.b2.Len() > 0 && c.b1.Len() > c.b2.Len() {
			delta = c.b1.Len() / c.b2.Len()
		}
		c.p = clamp(c.p-delta, 0, c.capacity)
		c.b2.Remove(el)
		delete(c.b2idx, key)
		c.replace(true)
		v := newFn()
		ne := c.t2.PushFront(&resident{key: key, value: v})
		c.t2idx[key] = ne
		return v
	}

	// True miss.
	if c.t1.Len()+c.b1.Len() == c.capacity {
		if c.t1.Len() < c.capacity {
			c.evictGhost(c.b1, c.b1idx)
			c.replace(false)
		} else {
			c.evictFromT1Force()
		}
	} else if c.t1.Len()+c.b1.Len() < c.capacity &&
		c.t1.Len()+c.t2.Len()+c.b1.Len()+c.b2.Len() >= c.capacity {
		if c.t1.Len()+c.t2.Len()+c.b1.Len()+c.b2.Len() == 2*c.capacity {
			c.evictGhost(c.b2, c.b2idx)
		}
		c.replace(false)
	}

	v := newFn()
	ne := c.t1.PushFront(&resident{key: key, value: v})
	c.t1idx[key] = ne
	return v
}

// replace evicts one resident entry (from T1 or T2, per the self-tuned p)
// to make room for the incoming key, honoring that an entry with waiters
// must never be chosen; it walks the LRU end of the candidate list for the
// next evictable entry. inB2 reports whether the key triggering this
// replace came from a B2 ghost hit — the standard ARC REPLACE(x,p) tie-break
// at |T1| == p only prefers T1 in that case, not whenever B2 happens to be
// non-empty.
func (c *Cache) replace(inB2 bool) {
	preferT1 := c.t1.Len() >= 1 && (c.t1.Len() > c.p || (c.t1.Len() == c.p && inB2))
	if preferT1 {
		if c.evictLRUFrom(c.t1, c.t1idx, c.b1, c.b1idx) {
			return
		}
		c.evictLRUFrom(c.t2, c.t2idx, c.b2, c.b2idx)
		return
	}
	if c.t2.Len() >= 1 {
		if c.evictLRUFrom(c.t2, c.t2idx, c.b2, c.b2idx) {
			return
		}
	}
	c.evictLRUFrom(c.t1, c.t1idx, c.b1, c.b1idx)
}

// evictFromT1Force is used only when |T1|+|B1| == capacity and |T1| ==
// capacity (B1 empty): the standard ARC rule discards the T1 LRU page
// outright rather than ghosting it, since ghosting here would grow
// |T1|+|B1| past capacity and the cache would never shrink back.
func (c *Cache) evictFromT1Force() {
	c.evictLRUDiscard(c.t1, c.t1idx)
}

// evictLRUDiscard removes the least-recently-used evictable entry from
// residentList with no ghost bookkeeping (skipping any entry with active
// waiters).
func (c *Cache) evictLRUDiscard(residentList *list.List, residentIdx map[string]*list.Element) bool {
	for el := residentList.Back(); el != nil; el = el.Prev() {
		r := el.Value.(*resident)
		if r.value != nil && r.value.HasWaiters() {
			continue
		}
		residentList.Remove(el)
		delete(residentIdx, r.key)
		return true
	}
	return false
}

// evictLRUFrom removes the least-recently-used evictable entry from
// residentList (skipping any entry with active waiters) and records it in
// ghostList/ghostIdx. Returns false if no evictable candidate was found.
func (c *Cache) evictLRUFrom(residentList *list.List, residentIdx map[string]*list.Element, ghostList *list.List, ghostIdx map[string]*list.Element) bool {
	for el := residentList.Back(); el != nil; el = el.Prev() {
		r := el.Value.(*resident)
		if r.value != nil && r.value.HasWaiters() {
			continue
		}
		residentList.Remove(el)
		delete(residentIdx, r.key)
		ne := ghostList.PushFront(&resident{key: r.key})
		ghostIdx[r.key] = ne
		c.trimGhost(ghostList, ghostIdx)
		return true
	}
	return false
}

func (c *Cache) evictGhost(ghostList *list.List, ghostIdx map[string]*list.Element) {
	if el := ghostList.Back(); el != nil {
		r := el.Value.(*resident)
		ghostList.Remove(el)
		delete(ghostIdx, r.key)
	}
}

// trimGhost bounds a ghost list to capacity entries; ghost entries carry no
// payload so this is cheap memory hygiene (spec.md §9: "Ghost-list entries
// hold no payload and can be evicted aggressively to bound memory").
func (c *Cache) trimGhost(ghostList *list.List, ghostIdx map[string]*list.Element) {
	for ghostList.Len() > c.capacity {
		el := ghostList.Back()
		if el == nil {
			return
		}
		r := el.Value.(*resident)
		ghostList.Remove(el)
		delete(ghostIdx, r.key)
	}
}

// Len returns the number of resident (non-ghost) entries.
func (c *Cache) Len() int { return c.t1.Len() + c.t2.Len() }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
