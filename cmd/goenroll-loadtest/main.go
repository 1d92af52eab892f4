package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		users       = flag.Int("users", 200, "number of users to register")
		classes     = flag.Int("classes", 20, "number of class sessions to create")
		spots       = flag.Int("spots", 5, "seats per class session")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (join, churn)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		dbDriver    = flag.String("db-driver", storage.DriverSQLite, "storage driver")
		dbDSN       = flag.String("db-dsn", "", "storage dsn; if empty, a temporary sqlite file is used")
	)
	flag.Parse()

	if *users <= 0 || *classes <= 0 || *spots < 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, classes, concurrency, and ops must be > 0; spots must be >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	dsn := *dbDSN
	if dsn == "" {
		dir, err := os.MkdirTemp("", "goenroll-loadtest")
		if err != nil {
			fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		dsn = filepath.Join(dir, "loadtest.db")
	}
	store, err := storage.Open(storage.Config{Driver: *dbDriver, DSN: dsn, LogLevel: "silent"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cfg := goEnroll.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("goenroll-loadtest-signing-key-0000")
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.MaxRegistrationsPerIP = 0

	engine, err := goEnroll.New().WithConfig(cfg).WithRedis(client).WithStore(store).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	startSeed := time.Now()
	admin, identities, classIDs, err := seed(ctx, engine, *users, *classes, *spots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d users and %d classes in %s\n", *users, *classes, time.Since(startSeed).Round(time.Millisecond))

	joinStats := runPhase(identities, classIDs, *ops, *concurrency, func(r *rand.Rand, id *goEnroll.Identity, classID uint) error {
		_, err := engine.JoinClass(ctx, id, classID)
		return err
	})
	churnStats := runPhase(identities, classIDs, *ops, *concurrency, func(r *rand.Rand, id *goEnroll.Identity, classID uint) error {
		var err error
		if r.Intn(2) == 0 {
			_, err = engine.LeaveClass(ctx, id, classID)
		} else {
			_, err = engine.JoinClass(ctx, id, classID)
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("join", joinStats)
	printStats("churn", churnStats)

	if err := verify(ctx, engine, admin, classIDs); err != nil {
		fmt.Fprintf(os.Stderr, "invariant violated: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("seat invariant holds for every class")
}

func seed(ctx context.Context, engine *goEnroll.Engine, users, classes, spots int) (*goEnroll.Identity, []*goEnroll.Identity, []uint, error) {
	req := func(email string) goEnroll.RegisterRequest {
		return goEnroll.RegisterRequest{
			FirstName:   "Load",
			LastName:    "Test",
			Email:       email,
			Password:    "loadtest-password",
			DateOfBirth: "1990-01-01",
			PhoneNumber: "+49 151 0000000",
		}
	}

	adminUser, _, err := engine.EnsureAdmin(ctx, req("loadtest-admin@example.com"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ensure admin: %w", err)
	}
	admin := &goEnroll.Identity{UserID: adminUser.ID, Role: goEnroll.RoleAdmin}

	identities := make([]*goEnroll.Identity, 0, users)
	for i := 0; i < users; i++ {
		_, u, err := engine.Register(ctx, req(fmt.Sprintf("user-%d@example.com", i)))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("register user %d: %w", i, err)
		}
		identities = append(identities, &goEnroll.Identity{UserID: u.ID, Role: u.Role})
	}

	course, err := engine.CreateCourse(ctx, admin, goEnroll.CourseInput{Name: "Load Test", Description: "seat contention"})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create course: %w", err)
	}
	classIDs := make([]uint, 0, classes)
	for i := 0; i < classes; i++ {
		n := spots
		cs, err := engine.CreateClassSession(ctx, admin, course.ID, goEnroll.ClassSessionInput{
			DayOfWeek:      "Monday",
			Time:           fmt.Sprintf("%02d:00", i%24),
			Location:       fmt.Sprintf("Room %d", i),
			Trainer:        "Load",
			AvailableSpots: &n,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create class %d: %w", i, err)
		}
		classIDs = append(classIDs, cs.ID)
	}
	return admin, identities, classIDs, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	rejected int64
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(identities []*goEnroll.Identity, classIDs []uint, ops, concurrency int, op func(*rand.Rand, *goEnroll.Identity, uint) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		rejected  int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				id := identities[r.Intn(len(identities))]
				classID := classIDs[r.Intn(len(classIDs))]

				t0 := time.Now()
				err := op(r, id, classID)
				d := time.Since(t0)
				switch {
				case err == nil:
				case errors.Is(err, goEnroll.ErrConflict), errors.Is(err, goEnroll.ErrNoCapacity):
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	s := computeStats(total, latencies)
	s.rejected = rejected
	s.failures = failures
	return s
}

// verify checks that every class balances free seats against members.
func verify(ctx context.Context, engine *goEnroll.Engine, admin *goEnroll.Identity, classIDs []uint) error {
	for _, classID := range classIDs {
		members, err := engine.ListMembers(ctx, admin, classID)
		if err != nil {
			return fmt.Errorf("class %d members: %w", classID, err)
		}
		cs, err := classByID(ctx, engine, admin, classID)
		if err != nil {
			return err
		}
		if cs.AvailableSpots < 0 || cs.AvailableSpots > cs.TotalMaxSpots {
			return fmt.Errorf("class %d: available spots %d outside [0, %d]", classID, cs.AvailableSpots, cs.TotalMaxSpots)
		}
		if cs.AvailableSpots+len(members) != cs.TotalMaxSpots {
			return fmt.Errorf("class %d: %d free + %d members != %d total", classID, cs.AvailableSpots, len(members), cs.TotalMaxSpots)
		}
	}
	return nil
}

func classByID(ctx context.Context, engine *goEnroll.Engine, admin *goEnroll.Identity, classID uint) (goEnroll.ClassSession, error) {
	courses, err := engine.ListCourses(ctx)
	if err != nil {
		return goEnroll.ClassSession{}, err
	}
	for _, c := range courses {
		sessions, err := engine.ListClassSessions(ctx, admin, c.ID)
		if err != nil {
			return goEnroll.ClassSession{}, err
		}
		for _, cs := range sessions {
			if cs.ID == classID {
				return cs, nil
			}
		}
	}
	return goEnroll.ClassSession{}, fmt.Errorf("class %d not found", classID)
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d rejected=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.rejected,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
