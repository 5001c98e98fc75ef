package httpclient

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/navislabs/navis/discovery"
)

func TestPoolReturnsSameInstance(t *testing.T) {
	pool := NewPool(5)
	cfg := Config{BaseURL: "http://orders.internal"}

	a, err := pool.Get(cfg)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := pool.Get(cfg)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Error("equal configs must yield the same client instance")
	}
	if pool.Len() != 1 {
		t.Errorf("Len = %d, want 1", pool.Len())
	}
}

func TestPoolKeyDistinguishesConfigs(t *testing.T) {
	pool := NewPool(5)

	a, _ := pool.Get(Config{BaseURL: "http://orders.internal"})
	b, _ := pool.Get(Config{BaseURL: "http://orders.internal", Timeout: 2 * time.Second})
	c, _ := pool.Get(Config{BaseURL: "http://billing.internal"})

	if a == b || a == c || b == c {
		t.Error("distinct configs must yield distinct clients")
	}
	if pool.Len() != 3 {
		t.Errorf("Len = %d, want 3", pool.Len())
	}
}

func TestPoolRetryAndBreakerAreKeyed(t *testing.T) {
	pool := NewPool(5)
	base := Config{BaseURL: "http://orders.internal"}

	withRetry := base
	withRetry.Retry = testRetry(2)

	a, _ := pool.Get(base)
	b, _ := pool.Get(withRetry)
	if a == b {
		t.Error("retry config must participate in the pool key")
	}

	withBreaker := base
	withBreaker.CircuitBreaker = testBreaker("orders", 3)
	c, _ := pool.Get(withBreaker)
	if c == a || c == b {
		t.Error("breaker config must participate in the pool key")
	}
}

func TestPoolFIFOEviction(t *testing.T) {
	pool := NewPool(3)

	var first *Client
	for i := 0; i < 3; i++ {
		c, err := pool.Get(Config{BaseURL: fmt.Sprintf("http://svc-%d.internal", i)})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if i == 0 {
			first = c
		}
	}

	// Re-reading an entry must not refresh its eviction position.
	if c, _ := pool.Get(Config{BaseURL: "http://svc-0.internal"}); c != first {
		t.Fatal("expected cache hit for svc-0")
	}

	if _, err := pool.Get(Config{BaseURL: "http://svc-3.internal"}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pool.Len() != 3 {
		t.Errorf("Len = %d, want bound of 3", pool.Len())
	}

	// svc-0 was inserted first, so it was evicted; a new instance appears.
	if c, _ := pool.Get(Config{BaseURL: "http://svc-0.internal"}); c == first {
		t.Error("oldest entry should have been evicted")
	}
}

func TestPoolClear(t *testing.T) {
	pool := NewPool(5)
	a, _ := pool.Get(Config{BaseURL: "http://orders.internal"})

	pool.Clear()
	if pool.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", pool.Len())
	}

	b, _ := pool.Get(Config{BaseURL: "http://orders.internal"})
	if a == b {
		t.Error("Clear must discard cached instances")
	}
}

func TestPoolConcurrentMissBuildsOneClient(t *testing.T) {
	pool := NewPool(5)
	cfg := Config{BaseURL: "http://orders.internal"}

	const goroutines = 32
	results := make([]*Client, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := pool.Get(cfg)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent misses must converge on one client")
		}
	}
	if pool.Len() != 1 {
		t.Errorf("Len = %d, want 1", pool.Len())
	}
}

func TestDefaultPoolIsSingleton(t *testing.T) {
	t.Cleanup(ClearPool)

	if DefaultPool() != DefaultPool() {
		t.Error("DefaultPool must return the same instance")
	}

	a, err := Get(Config{BaseURL: "http://orders.internal"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, _ := Get(Config{BaseURL: "http://orders.internal"})
	if a != b {
		t.Error("package-level Get must use the shared pool")
	}
}

func TestGetForService(t *testing.T) {
	t.Cleanup(ClearPool)

	cfg := discovery.Config{HealthCheckInterval: time.Hour}
	cfg.ApplyDefaults()
	reg := discovery.NewRegistry(cfg, nil)
	defer reg.Close()
	reg.Register("orders", []string{"http://a.internal", "http://b.internal"})

	a, err := GetForService(reg, "orders", Config{})
	if err != nil {
		t.Fatalf("GetForService: %v", err)
	}
	b, err := GetForService(reg, "orders", Config{})
	if err != nil {
		t.Fatalf("GetForService: %v", err)
	}

	// Round-robin rotation yields distinct base URLs on consecutive calls.
	if a.BaseURL() == b.BaseURL() {
		t.Errorf("expected rotation, both calls hit %s", a.BaseURL())
	}

	if _, err := GetForService(reg, "missing", Config{}); err == nil {
		t.Error("expected error for unknown service")
	}
}
