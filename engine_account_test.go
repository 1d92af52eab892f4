package goEnroll

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goEnroll/internal/token"
)

func TestRegisterIssuesTokens(t *testing.T) {
	e := newTestEngine(t)

	pair, user, err := e.Register(context.Background(), registerRequest("a@x.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "Bearer" {
		t.Fatalf("unexpected token pair %+v", pair)
	}
	if pair.ExpiresIn != 300 {
		t.Fatalf("expected 300s access lifetime, got %d", pair.ExpiresIn)
	}
	if user.Role != RoleUser || user.Email != "a@x.com" || user.ID == 0 {
		t.Fatalf("unexpected user %+v", user)
	}

	id, err := e.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.UserID != user.ID || id.Role != RoleUser || id.SessionID == "" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	e := newTestEngine(t)
	registerUser(t, e, "a@x.com")

	_, _, err := e.Register(context.Background(), registerRequest("  A@X.com "))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"missing first name", func(r *RegisterRequest) { r.FirstName = " " }, "first_name"},
		{"missing last name", func(r *RegisterRequest) { r.LastName = "" }, "last_name"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"email without domain dot", func(r *RegisterRequest) { r.Email = "a@localhost" }, "email"},
		{"missing password", func(r *RegisterRequest) { r.Password = "" }, "password"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "password"},
		{"bad date", func(r *RegisterRequest) { r.DateOfBirth = "12/04/1995" }, "date_of_birth"},
		{"missing phone", func(r *RegisterRequest) { r.PhoneNumber = "" }, "phone_number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := registerRequest("v@x.com")
			tc.mutate(&req)

			_, _, err := e.Register(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestLoginRejectsWithoutEnumeration(t *testing.T) {
	e := newTestEngine(t)
	registerUser(t, e, "a@x.com")
	ctx := context.Background()

	if _, err := e.Login(ctx, "a@x.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := e.Login(ctx, "nobody@x.com", "whatever-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := e.Login(ctx, " A@x.COM", "correct-password-123"); err != nil {
		t.Fatalf("login with unnormalized email: %v", err)
	}
	if _, err := e.Login(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty login: expected ErrValidation, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Security.MaxLoginAttempts = 2
	}, nil)
	e := env.engine
	registerUser(t, e, "a@x.com")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := e.Login(ctx, "a@x.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := e.Login(ctx, "a@x.com", "correct-password-123"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := e.metrics.Value(MetricLoginRateLimited); got != 1 {
		t.Fatalf("expected one rate-limited login, got %d", got)
	}
}

func TestRegistrationThrottledPerIP(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Security.MaxRegistrationsPerIP = 1
	}, nil)
	e := env.engine
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, _, err := e.Register(ctx, registerRequest("a@x.com")); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, _, err := e.Register(ctx, registerRequest("b@x.com")); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	other := WithClientIP(context.Background(), "203.0.113.8")
	if _, _, err := e.Register(other, registerRequest("b@x.com")); err != nil {
		t.Fatalf("registration from another IP: %v", err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	weak := newTestEnv(t, nil, nil)
	registerUser(t, weak.engine, "a@x.com")

	cfg := testConfig()
	cfg.Password.Time = 2
	strong, err := New().WithConfig(cfg).WithRedis(weak.rdb).WithStore(weak.store).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer strong.Close()

	if _, err := strong.Login(context.Background(), "a@x.com", "correct-password-123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	u, err := weak.store.UserByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !strings.Contains(u.Password, ",t=2,") {
		t.Fatalf("expected upgraded hash, got %s", u.Password)
	}
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	e := newTestEngine(t)
	first, id := registerUser(t, e, "a@x.com")
	ctx := context.Background()

	second, err := e.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	refreshed, err := e.Authenticate(ctx, second.AccessToken)
	if err != nil {
		t.Fatalf("authenticate refreshed token: %v", err)
	}
	if refreshed.UserID != id.UserID || refreshed.SessionID != id.SessionID {
		t.Fatalf("refresh changed identity: %+v vs %+v", refreshed, id)
	}

	if _, err := e.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}
	if _, err := e.Refresh(ctx, second.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected session destroyed after reuse, got %v", err)
	}
	if got := e.metrics.Value(MetricRefreshReuseDetected); got != 1 {
		t.Fatalf("expected one reuse detection, got %d", got)
	}
}

func TestRefreshRejectsMalformedToken(t *testing.T) {
	e := newTestEngine(t)
	for _, tok := range []string{"", "garbage", "Bearer x"} {
		if _, err := e.Refresh(context.Background(), tok); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("token %q: expected ErrRefreshInvalid, got %v", tok, err)
		}
	}
}

func TestRefreshRateLimitedPerSession(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Security.MaxRefreshAttempts = 1
	}, nil)
	e := env.engine
	pair, _ := registerUser(t, e, "a@x.com")
	ctx := context.Background()

	next, err := e.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := e.Refresh(ctx, next.RefreshToken); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	e := newTestEngine(t)
	pair, _ := registerUser(t, e, "a@x.com")
	ctx := context.Background()

	sid, _, err := token.DecodeRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	forged := token.EncodeRefresh(sid, token.Secret{1, 2, 3})
	if err := e.Logout(ctx, forged); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected forged secret to be rejected, got %v", err)
	}

	if err := e.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := e.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout should be a no-op, got %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	e := newTestEngine(t)
	_, id := registerUser(t, e, "a@x.com")

	u, err := e.Profile(context.Background(), id)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if u.Email != "a@x.com" || u.DateOfBirth != "1995-04-12" {
		t.Fatalf("unexpected profile %+v", u)
	}
	if _, err := e.Profile(context.Background(), nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDeleteAccountReleasesSeatsAndSessions(t *testing.T) {
	e := newTestEngine(t)
	admin := seedAdmin(t, e)
	course, cs := createClass(t, e, admin, "Yoga", 2)
	pair, id := registerUser(t, e, "a@x.com")
	ctx := context.Background()

	if _, err := e.JoinClass(ctx, id, cs.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := classState(t, e, admin, course.ID, cs.ID).AvailableSpots; got != 1 {
		t.Fatalf("expected 1 spot after join, got %d", got)
	}

	if err := e.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if got := classState(t, e, admin, course.ID, cs.ID).AvailableSpots; got != 2 {
		t.Fatalf("expected seat released, got %d", got)
	}
	if _, err := e.Profile(ctx, id); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected sessions revoked, got %v", err)
	}
	if err := e.DeleteAccount(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete to be ErrNotFound, got %v", err)
	}
	if got := e.metrics.Value(MetricSeatsReleased); got != 1 {
		t.Fatalf("expected one released seat, got %d", got)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	req := registerRequest("admin@example.com")
	req.Password = "admin123"

	first, created, err := e.EnsureAdmin(ctx, req)
	if err != nil || !created {
		t.Fatalf("first ensure: created=%v err=%v", created, err)
	}
	if first.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", first.Role)
	}

	req.Password = "a-different-password"
	second, created, err := e.EnsureAdmin(ctx, req)
	if err != nil || created {
		t.Fatalf("second ensure: created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing admin %d, got %d", first.ID, second.ID)
	}
	if _, err := e.Login(ctx, "admin@example.com", "admin123"); err != nil {
		t.Fatalf("existing admin password should be unchanged: %v", err)
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a@x.com", "pw"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.JoinClass(context.Background(), &Identity{UserID: 1}, 1); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestRegisterKeepsAccountWhenTokenIssueFails(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	e := env.engine
	ctx := context.Background()

	env.mr.Close()
	_, _, err := e.Register(ctx, registerRequest("late@x.com"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence with redis down, got %v", err)
	}
	if _, err := env.store.UserByEmail(ctx, "late@x.com"); err != nil {
		t.Fatalf("expected the account to be committed, got %v", err)
	}

	if err := env.mr.Restart(); err != nil {
		t.Fatalf("restart redis: %v", err)
	}
	if _, _, err := e.Register(ctx, registerRequest("late@x.com")); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail on retry, got %v", err)
	}
	pair, err := e.Login(ctx, "late@x.com", registerRequest("late@x.com").Password)
	if err != nil {
		t.Fatalf("login after failed register: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", pair)
	}
}
