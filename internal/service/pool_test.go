package service

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var inFlight int32
	var maxSeen int32

	release := make(chan struct{})
	handler := p.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&maxSeen); got > 2 {
		t.Fatalf("max concurrent = %d, want <= 2", got)
	}
	close(release)
	wg.Wait()
}

func TestPool_DefaultsToEight(t *testing.T) {
	p := NewPool(0)
	if p.Size() != DefaultPoolSize {
		t.Fatalf("Size() = %d, want %d", p.Size(), DefaultPoolSize)
	}
}
