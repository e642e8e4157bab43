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
	"regexp"
	"time"

	"river/internal/config"
)

const anyMatchingUriSharedKey = "matched"

// Rule is one compiled rate-limit rule: a predicate over the request plus
// the BucketCache it owns (spec.md §3/§4.2).
type Rule struct {
	kind    string
	pattern *regexp.Regexp // nil for source-ip
	cache   *BucketCache

	tokensPerBucket int64
	refillQty       int64
	refillPeriod    time.Duration
}

// NewRule compiles one RuleConfig. A malformed regex never reaches here —
// config.Validate already rejected it — but Rule recompiles from the
// validated pattern string since the config package doesn't retain
// *regexp.Regexp values (they are not serializable config state).
func NewRule(rc config.RuleConfig) (*Rule, error) {
	r := &Rule{
		kind:            rc.Kind,
		tokensPerBucket: rc.TokensPerBucket,
		refillQty:       rc.RefillQty,
		refillPeriod:    rc.RefillPeriod,
		cache:           NewBucketCache(rc.MaxBuckets),
	}
	switch rc.Kind {
	case "source-ip":
	case "specific-uri", "any-matching-uri":
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule kind=%s: %w", rc.Kind, err)
		}
		r.pattern = re
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rc.Kind)
	}
	return r, nil
}

// Matches reports whether this rule applies to the given request and, if
// so, the bucket key to use.
func (r *Rule) Matches(peerIP, uriPath string) (key string, ok bool) {
	switch r.kind {
	case "source-ip":
		return peerIP, true
	case "specific-uri":
		if r.pattern.MatchString(uriPath) {
			return uriPath, true
		}
	case "any-matching-uri":
		if r.pattern.MatchString(uriPath) {
			return anyMatchingUriSharedKey, true
		}
	}
	return "", false
}

// BucketFor returns (creating if needed) the bucket for key.
func (r *Rule) BucketFor(key string) *Bucket {
	return r.cache.GetOrCreate(key, func() *Bucket {
		return NewBucket(r.tokensPerBucket, r.refillQty, r.refillPeriod)
	})
}
