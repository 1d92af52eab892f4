package middleware

import (
	"net"
	"net/http"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestContext attaches the client IP and a request id to the request
// context for rate limiting and audit. An incoming X-Request-ID is kept when
// it is a reasonable length; otherwise a fresh UUID is generated. The id is
// echoed in the response header.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		ctx := goEnroll.WithRequestID(r.Context(), reqID)
		ctx = goEnroll.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP uses the socket peer address. Forwarding headers are ignored
// because they are client controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
