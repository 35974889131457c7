// Package config manages application configuration for the Haven API.
//
// Configuration is parsed from environment variables into typed structs by
// caarlos0/env, then checked as a whole by Validate:
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS, rate limit)
//   - DatabaseConfig: SurrealDB connection settings
//   - RedisConfig: cache, counters and rate limiting
//   - JWTConfig: access token signing
//   - StorageConfig: S3 bucket for uploads and gift assets
//   - MailConfig: SES sender
//   - PaymentsConfig: hosted checkout and billing portal
//   - JobsConfig: background job intervals
//   - CatalogConfig: sponsor tier and product seed file
package config
