package session

// Session is one refresh session. The refresh secret itself is never stored;
// RefreshHash is its SHA-256.
type Session struct {
	SessionID   string
	UserID      string
	Role        string
	RefreshHash [32]byte

	CreatedAt int64
	ExpiresAt int64
}
