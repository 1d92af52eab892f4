// Package middleware adapts goEnroll.Engine to net/http.
//
// [RequestContext] stamps each request with its client IP and a request id.
// [Authenticate] reads the Authorization bearer token, resolves it with
// Engine.Authenticate and stores the resulting identity in the request
// context. [RequireAdmin] additionally rejects non-admin identities.
//
// The package makes no decisions of its own; every check is delegated to the
// engine.
package middleware
