// Package audit relays account, catalog, and enrollment events to a sink
// without blocking the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//     Pinned event types are never shed, and drops are counted per type.
//   - [Event]: one record with id, time, actor, resource, and outcome.
//
// The engine decides which events exist. This package only buffers and
// delivers them, and never imports goEnroll.
package audit
