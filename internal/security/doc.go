// Package security summarizes the security posture of an engine
// configuration so operators can check it at startup.
package security
