package goEnroll

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goEnroll/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte(testSigningKey)
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.EnableIPThrottle = false
	cfg.Security.MaxLoginAttempts = 0
	cfg.Security.MaxRegistrationsPerIP = 0
	cfg.Security.MaxRefreshAttempts = 0
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	s, err := storage.Open(storage.Config{
		Driver:   storage.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "engine.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type testEnv struct {
	engine *Engine
	store  *storage.Store
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T, mutate func(*Config), sink AuditSink) *testEnv {
	t.Helper()

	cfg := testConfig()
	if sink != nil {
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
	}
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	store := newTestStore(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(store).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: store, mr: mr, rdb: rdb}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEnv(t, nil, nil).engine
}

func registerRequest(email string) RegisterRequest {
	return RegisterRequest{
		FirstName:   "Test",
		LastName:    "User",
		Email:       email,
		Password:    "correct-password-123",
		DateOfBirth: "1995-04-12",
		PhoneNumber: "+49 151 0000000",
	}
}

// registerUser registers email and returns its token pair and identity.
func registerUser(t *testing.T, e *Engine, email string) (*TokenPair, *Identity) {
	t.Helper()

	pair, _, err := e.Register(context.Background(), registerRequest(email))
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	id, err := e.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return pair, id
}

func seedAdmin(t *testing.T, e *Engine) *Identity {
	t.Helper()

	ctx := context.Background()
	req := registerRequest("admin@example.com")
	req.Password = "admin123"
	if _, _, err := e.EnsureAdmin(ctx, req); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	pair, err := e.Login(ctx, req.Email, req.Password)
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	id, err := e.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("admin authenticate: %v", err)
	}
	return id
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func createClass(t *testing.T, e *Engine, admin *Identity, courseName string, spots int) (Course, ClassSession) {
	t.Helper()

	ctx := context.Background()
	course, err := e.CreateCourse(ctx, admin, CourseInput{Name: courseName, Description: courseName + " classes"})
	if err != nil {
		t.Fatalf("create course %s: %v", courseName, err)
	}
	cs, err := e.CreateClassSession(ctx, admin, course.ID, ClassSessionInput{
		DayOfWeek:      "Monday",
		Time:           "18:00",
		Location:       "Studio 1",
		Trainer:        "Kim",
		AvailableSpots: intPtr(spots),
	})
	if err != nil {
		t.Fatalf("create class for %s: %v", courseName, err)
	}
	return course, cs
}

// classState reloads a class session through the admin listing.
func classState(t *testing.T, e *Engine, admin *Identity, courseID, classID uint) ClassSession {
	t.Helper()

	sessions, err := e.ListClassSessions(context.Background(), admin, courseID)
	if err != nil {
		t.Fatalf("list class sessions: %v", err)
	}
	for _, cs := range sessions {
		if cs.ID == classID {
			return cs
		}
	}
	t.Fatalf("class %d not found under course %d", classID, courseID)
	return ClassSession{}
}
