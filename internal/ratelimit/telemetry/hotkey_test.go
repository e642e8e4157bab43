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

package telemetry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestObserver_DisabledIsNoop(t *testing.T) {
	o := NewObserver(Config{Enabled: false})
	o.ObserveAdmission("alice", true)
	o.ObserveAdmission("alice", false)
	if got := o.TopN(10); len(got) != 0 {
		t.Fatalf("TopN on a disabled observer = %v, want empty", got)
	}
}

func TestObserver_TopNRanksByChurn(t *testing.T) {
	o := NewObserver(Config{Enabled: true, SampleRate: 1.0, TopN: 5})
	for i := 0; i < 10; i++ {
		o.ObserveAdmission("hot", true)
	}
	for i := 0; i < 2; i++ {
		o.ObserveAdmission("cold", true)
	}

	top := o.TopN(5)
	if len(top) != 2 {
		t.Fatalf("len(TopN) = %d, want 2", len(top))
	}
	if top[0].Key != "hot" || top[0].Count != 10 {
		t.Fatalf("top[0] = %+v, want {hot 10}", top[0])
	}
	if top[1].Key != "cold" || top[1].Count != 2 {
		t.Fatalf("top[1] = %+v, want {cold 2}", top[1])
	}
}

func TestObserver_TopNTruncatesToN(t *testing.T) {
	o := NewObserver(Config{Enabled: true, SampleRate: 1.0, TopN: 50})
	for _, k := range []string{"a", "b", "c", "d"} {
		o.ObserveAdmission(k, true)
	}
	if got := o.TopN(2); len(got) != 2 {
		t.Fatalf("len(TopN(2)) = %d, want 2", len(got))
	}
}

func TestObserver_SampleRateZeroExcludesAllKeys(t *testing.T) {
	o := NewObserver(Config{Enabled: true, SampleRate: 0})
	o.ObserveAdmission("alice", true)
	if got := o.TopN(10); len(got) != 0 {
		t.Fatalf("TopN with SampleRate=0 = %v, want empty", got)
	}
}

func TestObserver_LogLoopInvokesOnTopN(t *testing.T) {
	var mu sync.Mutex
	var calls int

	o := NewObserver(Config{
		Enabled:     true,
		SampleRate:  1.0,
		LogInterval: 5 * time.Millisecond,
		TopN:        5,
		OnTopN: func(top []KeyChurn) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})
	defer o.Close()

	o.ObserveAdmission("alice", true)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("OnTopN was never invoked by the background log loop")
}

func TestObserver_CloseStopsLogLoop(t *testing.T) {
	var calls atomic.Int64
	o := NewObserver(Config{
		Enabled:     true,
		SampleRate:  1.0,
		LogInterval: 5 * time.Millisecond,
		TopN:        5,
		OnTopN:      func(top []KeyChurn) { calls.Add(1) },
	})
	o.Close()
	time.Sleep(100 * time.Millisecond) // let any tick already in flight finish
	before := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if after := calls.Load(); after != before {
		t.Fatalf("OnTopN invoked %d more times after Close", after-before)
	}
	// Close on an observer whose loop never started (stopCh nil) must not panic.
	NewObserver(Config{Enabled: false}).Close()
}
