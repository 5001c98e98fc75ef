// Package config provides configuration loading and validation for services
// built on Navis.
//
// It loads YAML config files and .env files via Viper and godotenv, lets
// process environment variables override file values, and validates structs
// with `validate` tags.
//
//	var cfg config.ServiceConfig
//	if err := config.Load("orders", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
