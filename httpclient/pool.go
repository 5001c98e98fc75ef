package httpclient

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/navislabs/navis/discovery"
)

// DefaultPoolSize is the number of clients a pool retains before evicting
// the oldest entry.
const DefaultPoolSize = 10

// Pool caches clients by configuration so repeated lookups for the same
// target reuse one client and therefore one circuit breaker. Eviction is
// insertion-ordered: when the pool is full the client held the longest is
// dropped, regardless of use.
type Pool struct {
	mu      sync.Mutex
	maxSize int
	clients map[string]*Client
	order   []string
	group   singleflight.Group
	opts    []Option
}

// NewPool creates a pool holding at most maxSize clients. A non-positive
// maxSize falls back to DefaultPoolSize. The given options are applied to
// every client the pool constructs.
func NewPool(maxSize int, opts ...Option) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultPoolSize
	}
	return &Pool{
		maxSize: maxSize,
		clients: make(map[string]*Client),
		opts:    opts,
	}
}

// Get returns the pooled client for cfg, constructing and caching one on
// first use. Concurrent first lookups for the same configuration yield the
// same client instance.
func (p *Pool) Get(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	key := poolKey(cfg)

	p.mu.Lock()
	if c, ok := p.clients[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(key, func() (any, error) {
		p.mu.Lock()
		if c, ok := p.clients[key]; ok {
			p.mu.Unlock()
			return c, nil
		}
		p.mu.Unlock()

		c, err := New(cfg, p.opts...)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.clients[key] = c
		p.order = append(p.order, key)
		for len(p.order) > p.maxSize {
			oldest := p.order[0]
			p.order = p.order[1:]
			delete(p.clients, oldest)
		}
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Len returns the number of cached clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Clear removes all cached clients.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[string]*Client)
	p.order = nil
}

// poolKey derives the cache identity of a configuration. Two configs that
// differ only in fields outside the key share a client.
func poolKey(cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s", cfg.BaseURL, cfg.Timeout)
	if r := cfg.Retry; r != nil {
		fmt.Fprintf(&b, "|r:%d,%s,%s,%g", r.MaxRetries, r.BaseDelay, r.MaxDelay, r.Jitter)
	}
	if cb := cfg.CircuitBreaker; cb != nil {
		fmt.Fprintf(&b, "|cb:%s,%d,%s,%d", cb.Name, cb.FailureThreshold, cb.ResetTimeout, cb.HalfOpenSuccesses)
	}
	return b.String()
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the process-wide pool.
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(DefaultPoolSize)
	})
	return defaultPool
}

// Get returns a client for cfg from the process-wide pool.
func Get(cfg Config) (*Client, error) {
	return DefaultPool().Get(cfg)
}

// ClearPool empties the process-wide pool.
func ClearPool() {
	DefaultPool().Clear()
}

// GetForService resolves the next endpoint of a registered service and
// returns a pooled client bound to it. The base configuration's BaseURL is
// overwritten with the resolved endpoint; everything else is kept.
func GetForService(reg *discovery.Registry, service string, cfg Config) (*Client, error) {
	url, err := reg.GetNext(service)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = url
	return Get(cfg)
}
