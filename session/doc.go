// Package session stores refresh sessions in Redis and rotates their refresh
// secrets atomically.
//
// Each session is a Redis hash keyed by session id, plus a per-user set of
// session ids so that every session of a user can be revoked at once. The
// rotation check-and-swap runs as one Lua script, so two concurrent refreshes
// with the same secret cannot both succeed; the loser sees a hash mismatch and
// the session is destroyed.
//
// # What this package must NOT do
//
//   - Interpret access tokens or roles.
//   - Store plaintext refresh secrets.
package session
