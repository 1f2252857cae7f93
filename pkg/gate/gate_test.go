package gate

import (
	"sync"
	"testing"
)

func TestTryAcquireBounds(t *testing.T) {
	g := New(2)

	if !g.TryAcquire() {
		t.Fatal("first acquire refused")
	}
	if !g.TryAcquire() {
		t.Fatal("second acquire refused")
	}
	if g.TryAcquire() {
		t.Fatal("acquire past the cap succeeded")
	}
	if g.InFlight() != 2 {
		t.Fatalf("in flight: got %d", g.InFlight())
	}

	g.Release()
	if !g.TryAcquire() {
		t.Fatal("acquire after release refused")
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(1).Release()
}

func TestDefaultCapacity(t *testing.T) {
	if got := New(0).Max(); got != 8 {
		t.Fatalf("default max: got %d", got)
	}
	if got := New(-3).Max(); got != 8 {
		t.Fatalf("negative max: got %d", got)
	}
}

func TestConcurrentAcquire(t *testing.T) {
	const limit = 5
	g := New(limit)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted > limit {
		t.Fatalf("granted %d slots with cap %d", granted, limit)
	}
	if g.InFlight() != granted {
		t.Fatalf("in flight %d, granted %d", g.InFlight(), granted)
	}

	for i := 0; i < granted; i++ {
		g.Release()
	}
	if g.InFlight() != 0 {
		t.Fatalf("in flight after drain: got %d", g.InFlight())
	}
}

func TestRegistrySharesGates(t *testing.T) {
	reg := NewRegistry(func(backendID string) int {
		if backendID == "local" {
			return 1
		}
		return 4
	})

	local := reg.Get("local")
	if local != reg.Get("local") {
		t.Fatal("expected the same gate instance")
	}
	if local.Max() != 1 {
		t.Fatalf("local max: got %d", local.Max())
	}
	if reg.Get("anthropic").Max() != 4 {
		t.Fatalf("anthropic max: got %d", reg.Get("anthropic").Max())
	}
}
