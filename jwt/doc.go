// Package jwt issues and verifies the short-lived access tokens that carry a
// user's id, role, and refresh session id.
//
// Verification is stateless. Expired tokens are reported separately from
// malformed or forged ones so callers can tell a client to refresh.
package jwt
