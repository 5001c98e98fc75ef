package discovery

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/navislabs/navis/logger"
)

// Common registry errors.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrNoEndpoints     = errors.New("service has no endpoints")
)

// Endpoint is one URL backing a logical service, with its probed health.
type Endpoint struct {
	URL           string
	Healthy       bool
	LastCheckedAt time.Time
}

// service is a named endpoint set with a round-robin cursor and its prober.
type service struct {
	endpoints []*Endpoint
	cursor    int
	cancel    context.CancelFunc
}

// Registry maps logical service names to endpoint URLs and keeps their
// health current with a background prober per service. All operations are
// safe for concurrent use.
type Registry struct {
	cfg   Config
	log   *logger.Logger
	probe *http.Client

	mu       sync.Mutex
	services map[string]*service
}

// NewRegistry creates a registry. A nil logger falls back to the global one.
func NewRegistry(cfg Config, log *logger.Logger) *Registry {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		cfg:      cfg,
		log:      log.WithComponent("discovery"),
		probe:    &http.Client{Timeout: cfg.HealthCheckTimeout},
		services: make(map[string]*service),
	}
}

// Register replaces the endpoint set for a service. All endpoints start
// healthy, the round-robin cursor resets, and health probing is
// (re)scheduled. Duplicate URLs are collapsed.
func (r *Registry) Register(name string, urls []string) {
	endpoints := make([]*Endpoint, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		endpoints = append(endpoints, &Endpoint{URL: u, Healthy: true})
	}

	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if old, ok := r.services[name]; ok {
		old.cancel()
	}
	r.services[name] = &service{endpoints: endpoints, cancel: cancel}
	r.mu.Unlock()

	go r.probeLoop(ctx, name)

	r.log.Info("service registered", logger.Fields(
		"service", name,
		"endpoints", len(endpoints),
	))
}

// Unregister removes a service and stops its prober.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	svc, ok := r.services[name]
	if ok {
		delete(r.services, name)
	}
	r.mu.Unlock()

	if ok {
		svc.cancel()
		r.log.Info("service unregistered", logger.Fields("service", name))
	}
}

// GetNext returns the next endpoint URL in strict round-robin order.
// Health is deliberately ignored; callers that require a reachable endpoint
// should use GetHealthy.
func (r *Registry) GetNext(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[name]
	if !ok {
		return "", ErrServiceNotFound
	}
	if len(svc.endpoints) == 0 {
		return "", ErrNoEndpoints
	}

	url := svc.endpoints[svc.cursor].URL
	svc.cursor = (svc.cursor + 1) % len(svc.endpoints)
	return url, nil
}

// GetHealthy returns the URLs of endpoints currently believed reachable.
// Endpoints whose last probe is older than twice the check interval are
// treated as unknown and admitted, so a stalled prober cannot starve callers.
func (r *Registry) GetHealthy(name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[name]
	if !ok {
		return nil, ErrServiceNotFound
	}

	stale := 2 * r.cfg.HealthCheckInterval
	urls := make([]string, 0, len(svc.endpoints))
	for _, ep := range svc.endpoints {
		if ep.Healthy || time.Since(ep.LastCheckedAt) > stale {
			urls = append(urls, ep.URL)
		}
	}
	return urls, nil
}

// MarkHealthy flags an endpoint as reachable.
func (r *Registry) MarkHealthy(name, url string) {
	r.setHealth(name, url, true)
}

// MarkUnhealthy flags an endpoint as unreachable.
func (r *Registry) MarkUnhealthy(name, url string) {
	r.setHealth(name, url, false)
}

// Endpoints returns a snapshot of the service's endpoints.
func (r *Registry) Endpoints(name string) ([]Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[name]
	if !ok {
		return nil, ErrServiceNotFound
	}

	out := make([]Endpoint, len(svc.endpoints))
	for i, ep := range svc.endpoints {
		out[i] = *ep
	}
	return out, nil
}

// Close stops all probers and clears the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, svc := range r.services {
		svc.cancel()
	}
	r.services = make(map[string]*service)
}

func (r *Registry) setHealth(name, url string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[name]
	if !ok {
		return
	}
	for _, ep := range svc.endpoints {
		if ep.URL == url {
			ep.Healthy = healthy
			ep.LastCheckedAt = time.Now()
			return
		}
	}
}
