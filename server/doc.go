// Package server is the HTTP API of the pipeline service, built on Gin.
//
// The middleware stack (server/middleware) wraps the whole engine:
// recovery, request id, CORS, body size limit and request logging. The
// run routes add bearer-token auth and a per-client rate limit on
// triggers.
//
// Routes (server/endpoint):
//
//	POST /api/v1/runs              start a manual run (202, 409 while one is active)
//	GET  /api/v1/runs              recent runs, ?limit=N
//	GET  /api/v1/runs/:id          one run with task attempts
//	POST /api/v1/runs/:id/cancel   cancel the active run
//	GET  /api/v1/plan              execution levels and task settings
//	GET  /api/v1/events            live task and run events (SSE), ?run_id=ID
//	GET  /health, /alive, /ready   probes
//	GET  /version                  build info
//	GET  /metrics                  Prometheus scrape endpoint, when enabled
//
// Without TLS the server also accepts HTTP/2 cleartext (h2c).
package server
