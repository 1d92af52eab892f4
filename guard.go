package goEnroll

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goEnroll/jwt"
)

// Authenticate verifies an access token and returns the caller's identity.
// It checks signature and expiry only and never touches Redis or the
// database, so a token stays valid until it expires even if the account is
// deleted.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthFailure)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	uid, err := strconv.ParseUint(claims.UID, 10, 64)
	if err != nil || uid == 0 {
		e.metricInc(MetricAuthFailure)
		return nil, ErrTokenInvalid
	}
	role := Role(claims.Role)
	if role != RoleUser && role != RoleAdmin {
		e.metricInc(MetricAuthFailure)
		return nil, ErrTokenInvalid
	}

	return &Identity{
		UserID:    uint(uid),
		Role:      role,
		SessionID: claims.SID,
	}, nil
}

// Authorize reports whether id holds required. A missing identity is
// ErrUnauthorized; a role mismatch, including an empty role, is ErrForbidden.
func Authorize(id *Identity, required Role) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if id.Role == "" || id.Role != required {
		return ErrAdminRequired
	}
	return nil
}

func requireIdentity(id *Identity) error {
	if id == nil || id.UserID == 0 {
		return ErrUnauthorized
	}
	return nil
}

// authorize runs Authorize and records denials.
func (e *Engine) authorize(ctx context.Context, id *Identity, required Role, op string) error {
	err := Authorize(id, required)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrForbidden) {
		e.metricInc(MetricForbidden)
		e.emitAudit(ctx, auditEventAccessDenied, auditTarget{userID: id.UserID}, err, func() map[string]string {
			return map[string]string{"operation": op, "role": string(id.Role)}
		})
	}
	return err
}
