// Package httpclient provides the Navis service-to-service HTTP client with
// built-in resilience: retry with exponential backoff, circuit breaking,
// rate limiting, and a process-wide client pool.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://orders.internal",
//	    Timeout: 5 * time.Second,
//	})
//
//	resp, err := client.Get(ctx, "/orders/123")
//
// # With Resilience
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://orders.internal",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("orders"),
//	})
//
// # Pooled Clients
//
// The package-level pool caches configured clients by target so breaker
// state and connections survive across short-lived invocations:
//
//	client, err := httpclient.Get(cfg)
//
// Errors are classified into a closed set of kinds (Transport, HTTP, Decode,
// CircuitOpen, Cancelled); see the Error type and the Is* predicates.
package httpclient
