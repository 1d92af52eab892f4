// Package goEnroll is a course and class enrollment engine: accounts with
// rotating refresh sessions, an admin-managed catalog of courses and their
// class sessions, and a capacity-bounded join/leave state machine.
//
// Build an [Engine] with [New]. Every privileged method takes the [Identity]
// returned by [Engine.Authenticate] and checks it first; catalog mutations
// additionally require [RoleAdmin].
//
// # Capacity
//
// Seats are counted per class session. For every session
// 0 <= AvailableSpots <= TotalMaxSpots holds; a join takes exactly one seat
// and a leave returns exactly one, each inside a single database transaction.
// The admin override in [Engine.UpdateClassSession] is the only other writer
// of the counter and is rejected outside that range.
//
// Engine methods are safe for concurrent use.
package goEnroll
