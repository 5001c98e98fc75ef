// Package discovery provides an in-process service registry with round-robin
// endpoint selection and background health probing.
//
// A Registry maps logical service names to endpoint URLs. Each registered
// service is probed periodically at its health check path; callers choose
// between GetNext (plain round-robin, ignores health) and GetHealthy
// (endpoints currently believed reachable).
//
//	reg := discovery.NewRegistry(discovery.Config{}, log)
//	defer reg.Close()
//
//	reg.Register("orders", []string{"http://orders-1:8080", "http://orders-2:8080"})
//	url, err := reg.GetNext("orders")
package discovery
