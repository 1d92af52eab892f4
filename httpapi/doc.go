// Package httpapi exposes a goEnroll engine over JSON/HTTP.
//
// Routes live under /api and are wrapped in CORS handling. /metrics serves
// the engine counters in Prometheus text format and /healthz reports whether
// Redis and the database are reachable.
package httpapi
