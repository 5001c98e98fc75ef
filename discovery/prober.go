package discovery

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/navislabs/navis/logger"
)

// probeLoop probes one service until its context is cancelled by Unregister
// or Close. Probe failures only flip health flags; they never surface to
// callers.
func (r *Registry) probeLoop(ctx context.Context, name string) {
	ticker := time.NewTicker(r.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.probeService(ctx, name)
		}
	}
}

func (r *Registry) probeService(ctx context.Context, name string) {
	r.mu.Lock()
	svc, ok := r.services[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	urls := make([]string, len(svc.endpoints))
	for i, ep := range svc.endpoints {
		urls[i] = ep.URL
	}
	r.mu.Unlock()

	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}
		if r.probeEndpoint(ctx, url) {
			r.MarkHealthy(name, url)
		} else {
			r.MarkUnhealthy(name, url)
			r.log.Debug("health probe failed", logger.Fields(
				"service", name,
				logger.FieldEndpoint, url,
			))
		}
	}
}

// probeEndpoint issues one GET against the endpoint's health path.
// Only a 200 counts as healthy.
func (r *Registry) probeEndpoint(ctx context.Context, url string) bool {
	pctx, cancel := context.WithTimeout(ctx, r.cfg.HealthCheckTimeout)
	defer cancel()

	target := strings.TrimRight(url, "/") + r.cfg.HealthCheckPath
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	resp, err := r.probe.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
