// Package token generates session ids and the opaque refresh tokens handed
// to clients.
//
// A refresh token is base64url(session id || secret): 16 bytes of session id
// followed by a 32-byte secret. Only the SHA-256 of the secret is persisted.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	sessionIDSize = 16
	secretSize    = 32
	refreshSize   = sessionIDSize + secretSize
)

// ErrMalformed is returned when a refresh token cannot be decoded.
var ErrMalformed = errors.New("malformed refresh token")

// SessionID identifies one refresh session.
type SessionID [sessionIDSize]byte

// Secret is the random half of a refresh token.
type Secret [secretSize]byte

// NewSessionID returns a random session id.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

// String encodes the id as unpadded base64url.
func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the output of SessionID.String.
func ParseSessionID(value string) (SessionID, error) {
	var sid SessionID
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) != sessionIDSize {
		return sid, ErrMalformed
	}
	copy(sid[:], raw)
	return sid, nil
}

// NewSecret returns a random refresh secret.
func NewSecret() (Secret, error) {
	var secret Secret
	_, err := rand.Read(secret[:])
	return secret, err
}

// Hash returns the SHA-256 digest that is stored in place of the secret.
func (s Secret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// EncodeRefresh joins a session id and secret into the opaque client token.
func EncodeRefresh(sid SessionID, secret Secret) string {
	var raw [refreshSize]byte
	copy(raw[:sessionIDSize], sid[:])
	copy(raw[sessionIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeRefresh splits a client token back into its session id and secret.
func DecodeRefresh(value string) (SessionID, Secret, error) {
	var (
		sid    SessionID
		secret Secret
	)
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) != refreshSize {
		return sid, secret, ErrMalformed
	}
	copy(sid[:], raw[:sessionIDSize])
	copy(secret[:], raw[sessionIDSize:])
	return sid, secret, nil
}

// NewRefresh creates a session id, a secret, and the token that carries both.
func NewRefresh() (SessionID, Secret, string, error) {
	sid, err := NewSessionID()
	if err != nil {
		return SessionID{}, Secret{}, "", err
	}
	secret, err := NewSecret()
	if err != nil {
		return SessionID{}, Secret{}, "", err
	}
	return sid, secret, EncodeRefresh(sid, secret), nil
}
