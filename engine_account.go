package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/MrEthical07/goEnroll/internal/token"
	"github.com/MrEthical07/goEnroll/password"
	"github.com/MrEthical07/goEnroll/session"
	"github.com/MrEthical07/goEnroll/storage"
)

// Register creates a user account with role "user" and signs it in.
//
// The account is committed before tokens are issued. If issuing fails the
// error wraps ErrPersistence, the account still exists, and the client should
// sign in with Login rather than register again.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*TokenPair, *User, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}

	if err := e.rateError(ctx, "register", MetricRegisterRateLimited,
		e.rateLimiter.AllowRegistration(ctx, clientIPFromContext(ctx))); err != nil {
		return nil, nil, err
	}

	req, err := req.normalized()
	if err != nil {
		e.emitAudit(ctx, auditEventRegister, auditTarget{}, err, nil)
		return nil, nil, err
	}

	model, err := e.createUser(ctx, req, RoleUser)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegister, auditTarget{}, err, nil)
		return nil, nil, err
	}
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, auditTarget{userID: model.ID, resource: auditResourceUser, resourceID: model.ID}, nil, nil)

	pair, err := e.issueTokens(ctx, model)
	if err != nil {
		return nil, nil, err
	}
	user := userFromModel(model)
	return pair, &user, nil
}

// Login checks credentials and issues a token pair. Unknown emails and wrong
// passwords fail identically with ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, pass string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == "" || pass == "" {
		return nil, validationError("", "email and password are required")
	}
	ip := clientIPFromContext(ctx)

	if err := e.rateError(ctx, "login", MetricLoginRateLimited, e.rateLimiter.CheckLogin(ctx, email, ip)); err != nil {
		return nil, err
	}

	model, err := e.store.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, mapStoreError("login", err)
	}

	ok := false
	if err == nil {
		ok, err = e.passwordHash.Verify(pass, model.Password)
		if err != nil {
			log.Printf("goEnroll: stored hash for user %d is unreadable: %v", model.ID, err)
			ok = false
		}
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		if incErr := e.rateLimiter.IncrementLogin(ctx, email, ip); incErr != nil {
			log.Printf("goEnroll: login limiter: %v", incErr)
		}
		e.emitAudit(ctx, auditEventLogin, auditTarget{userID: model.ID}, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if err := e.rateLimiter.ResetLogin(ctx, email); err != nil {
		log.Printf("goEnroll: login limiter reset: %v", err)
	}
	e.upgradePasswordHash(ctx, model, pass)

	pair, err := e.issueTokens(ctx, model)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, auditTarget{userID: model.ID}, nil, nil)
	return pair, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated destroys the session and returns ErrRefreshReuse.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	sid, secret, err := token.DecodeRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	if err := e.rateError(ctx, "refresh", MetricRefreshRateLimited,
		e.rateLimiter.AllowRefresh(ctx, sid.String())); err != nil {
		return nil, err
	}

	next, err := token.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: generate refresh secret", ErrPersistence)
	}

	sess, err := e.sessionStore.Rotate(ctx, sid.String(), secret.Hash(), next.Hash())
	if err != nil {
		err = sessionError("rotate refresh session", err)
		switch {
		case errors.Is(err, ErrRefreshReuse):
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuse, auditTarget{resource: auditResourceSession}, err, func() map[string]string {
				return map[string]string{"session_id": sid.String()}
			})
		default:
			e.metricInc(MetricRefreshFailure)
		}
		return nil, err
	}

	uid, err := strconv.ParseUint(sess.UserID, 10, 64)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, sess.SessionID)
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}
	// Re-read the user so deletions and role changes take effect on refresh.
	model, err := e.store.UserByID(ctx, uint(uid))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = e.sessionStore.Delete(ctx, sess.SessionID)
		}
		e.metricInc(MetricRefreshFailure)
		return nil, mapStoreError("refresh", err)
	}

	access, err := e.jwtManager.CreateAccess(sess.UserID, model.Role, sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %w", ErrPersistence, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, auditTarget{userID: model.ID}, nil, nil)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: token.EncodeRefresh(sid, next),
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.jwtManager.AccessTTL().Seconds()),
	}, nil
}

// Logout destroys the refresh session behind refreshToken. An already
// destroyed session is not an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	sid, secret, err := token.DecodeRefresh(refreshToken)
	if err != nil {
		return ErrRefreshInvalid
	}

	sess, err := e.sessionStore.Get(ctx, sid.String())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil
		}
		return sessionError("load refresh session", err)
	}
	if sess.RefreshHash != secret.Hash() {
		return ErrRefreshInvalid
	}

	if err := e.sessionStore.Delete(ctx, sess.SessionID); err != nil {
		return sessionError("delete refresh session", err)
	}

	e.metricInc(MetricLogout)
	uid, _ := strconv.ParseUint(sess.UserID, 10, 64)
	e.emitAudit(ctx, auditEventLogout, auditTarget{userID: uint(uid)}, nil, nil)
	return nil
}

// Profile returns the caller's own account.
func (e *Engine) Profile(ctx context.Context, id *Identity) (*User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	model, err := e.store.UserByID(ctx, id.UserID)
	if err != nil {
		return nil, mapStoreError("profile", err)
	}
	user := userFromModel(model)
	return &user, nil
}

// DeleteAccount deletes the caller's account, returns every seat it held,
// and revokes all of its refresh sessions.
func (e *Engine) DeleteAccount(ctx context.Context, id *Identity) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requireIdentity(id); err != nil {
		return err
	}

	released, err := e.store.DeleteUser(ctx, id.UserID)
	if err != nil {
		err = mapStoreError("delete account", err)
		e.emitAudit(ctx, auditEventAccountDelete, auditTarget{userID: id.UserID}, err, nil)
		return err
	}
	e.metricInc(MetricAccountDeleted)
	e.metricAdd(MetricSeatsReleased, len(released))

	if err := e.sessionStore.DeleteAllForUser(ctx, strconv.FormatUint(uint64(id.UserID), 10)); err != nil {
		// The account is gone; orphaned sessions fail on their next refresh.
		log.Printf("goEnroll: revoke sessions of deleted user %d: %v", id.UserID, err)
	}

	e.emitAudit(ctx, auditEventAccountDelete, auditTarget{userID: id.UserID, resource: auditResourceUser, resourceID: id.UserID}, nil, func() map[string]string {
		return map[string]string{"seats_released": strconv.Itoa(len(released))}
	})
	return nil
}

// EnsureAdmin creates an admin account for req unless the email is already
// registered, in which case the existing account is returned unchanged.
// created reports which happened.
func (e *Engine) EnsureAdmin(ctx context.Context, req RegisterRequest) (user *User, created bool, err error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}

	req, err = req.normalized()
	if err != nil {
		return nil, false, err
	}

	existing, err := e.store.UserByEmail(ctx, req.Email)
	if err == nil {
		u := userFromModel(existing)
		return &u, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, mapStoreError("ensure admin", err)
	}

	model, err := e.createUser(ctx, req, RoleAdmin)
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent seed.
		existing, err := e.store.UserByEmail(ctx, req.Email)
		if err != nil {
			return nil, false, mapStoreError("ensure admin", err)
		}
		u := userFromModel(existing)
		return &u, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	e.emitAudit(ctx, auditEventAdminSeeded, auditTarget{userID: model.ID, resource: auditResourceUser, resourceID: model.ID}, nil, nil)
	u := userFromModel(model)
	return &u, true, nil
}

func (e *Engine) createUser(ctx context.Context, req RegisterRequest, role Role) (storage.User, error) {
	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return storage.User{}, passwordError(err, e.config.Password.MinLength)
	}

	model := storage.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    hash,
		DateOfBirth: req.DateOfBirth,
		PhoneNumber: req.PhoneNumber,
		Role:        string(role),
	}
	if err := e.store.CreateUser(ctx, &model); err != nil {
		return storage.User{}, mapStoreError("create user", err)
	}
	return model, nil
}

func passwordError(err error, minLength int) error {
	switch {
	case errors.Is(err, password.ErrTooShort):
		if minLength <= 0 {
			minLength = 8
		}
		return validationError("password", fmt.Sprintf("must be at least %d characters", minLength))
	case errors.Is(err, password.ErrTooLong):
		return validationError("password", "is too long")
	}
	log.Printf("goEnroll: hash password: %v", err)
	return fmt.Errorf("%w: hash password", ErrPersistence)
}

// upgradePasswordHash rehashes with the current parameters after a
// successful login. Failures are logged and do not fail the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, model storage.User, pass string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwordHash.NeedsUpgrade(model.Password)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		log.Printf("goEnroll: rehash password for user %d: %v", model.ID, err)
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, model.ID, hash); err != nil {
		log.Printf("goEnroll: store upgraded hash for user %d: %v", model.ID, err)
	}
}

func (e *Engine) issueTokens(ctx context.Context, model storage.User) (*TokenPair, error) {
	sid, secret, refresh, err := token.NewRefresh()
	if err != nil {
		return nil, fmt.Errorf("%w: generate refresh token", ErrPersistence)
	}

	uid := strconv.FormatUint(uint64(model.ID), 10)
	now := e.now()
	ttl := e.config.JWT.RefreshTTL
	sess := &session.Session{
		SessionID:   sid.String(),
		UserID:      uid,
		Role:        model.Role,
		RefreshHash: secret.Hash(),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
	}
	if err := e.sessionStore.Save(ctx, sess, ttl); err != nil {
		return nil, sessionError("save refresh session", err)
	}

	access, err := e.jwtManager.CreateAccess(uid, model.Role, sess.SessionID)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, sess.SessionID)
		return nil, fmt.Errorf("%w: sign access token: %w", ErrPersistence, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.jwtManager.AccessTTL().Seconds()),
	}, nil
}
