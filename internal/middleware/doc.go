// Package middleware provides HTTP middleware for the Haven API.
//
// Global middleware runs on every request, in this order:
//
//   - RequestID: propagates or generates X-Request-ID
//   - Logger: structured request log via slog
//   - Recovery: turns panics into a 500 problem response
//   - CORS: go-chi/cors with the configured origins
//   - RateLimit: Redis fixed window per user or IP
//   - Idempotency: Redis-backed replay of POST/PATCH with Idempotency-Key
//   - Compress: gzip, skipped for event streams
//
// Route middleware wraps individual handlers:
//
//   - Auth / OptionalAuth: bearer token validation
//   - RequireModerator / RequireAdmin: role gates on the token claims
//
// Handlers read the caller with GetUserID, GetRole and GetClaims.
package middleware
