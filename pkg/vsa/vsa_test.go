// pkg/vsa/vsa_test.go
package vsa

import (
	"sync"
	"testing"
)

func TestVSA_New(t *testing.T) {
	v := New(100)
	scalar, vector := v.State()
	if scalar != 100 || vector != 0 {
		t.Errorf("New(100).State() = (%d, %d), want (100, 0)", scalar, vector)
	}
}

func TestVSA_UpdateAndState(t *testing.T) {
	v := New(100)
	v.Update(10)
	v.Update(-5)
	v.Update(2)

	scalar, vector := v.State()
	if scalar != 100 || vector != 7 {
		t.Errorf("State() = (%d, %d), want (100, 7)", scalar, vector)
	}
}

func TestVSA_NegativeVector(t *testing.T) {
	v := New(0)
	v.Update(-100)
	v.Update(-50)

	_, vector := v.State()
	if vector != -150 {
		t.Errorf("vector = %d, want -150", vector)
	}
}

// TestVSA_Concurrent tests that the VSA can be safely updated by multiple
// goroutines. If this test fails, it will likely be caught by the Go race
// detector (`go test -race ./...`).
func TestVSA_Concurrent(t *testing.T) {
	t.Parallel()

	v := New(0)
	numGoroutines := 100
	updatesPerGoroutine := 1000
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < updatesPerGoroutine; j++ {
				v.Update(1)
			}
		}()
	}

	wg.Wait()

	expectedVector := int64(numGoroutines * updatesPerGoroutine)
	_, vector := v.State()

	if vector != expectedVector {
		t.Errorf("Concurrent updates resulted in vector %d, want %d", vector, expectedVector)
	}
}
