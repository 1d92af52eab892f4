// Package rate implements Redis fixed-window counters for login, registration,
// and refresh throttling.
//
// # Window semantics
//
// INCR, then EXPIRE on the first hit of a window. Key prefixes:
//   - rl:  failed logins per email
//   - rli: failed logins per client IP
//   - rr:  registrations per client IP
//   - rf:  refreshes per session
package rate
