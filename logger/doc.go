// Package logger provides structured logging for Navis built on zerolog.
//
// Components obtain a tagged logger and emit structured events:
//
//	log := logger.NewDefault("orders-api").WithComponent("httpclient")
//	log.Info("request sent", logger.Fields("method", "GET", "status", 200))
//
// A process-wide logger is available through the package-level functions
// (Info, Warn, ...) once initialized with Init.
package logger
