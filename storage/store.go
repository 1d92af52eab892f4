package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config selects the database and tunes its connection pool.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SlowQuery is the threshold above which GORM logs a query. Zero keeps
	// the GORM default.
	SlowQuery time.Duration
	// LogLevel is one of silent, error, warn, info.
	LogLevel string
}

// Store persists enrollment state through GORM.
type Store struct {
	db     *gorm.DB
	driver string
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("storage dsn is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverSQLite:
		cfg.Driver = DriverSQLite
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(cfg),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// One writer at a time; sqlite has no row locks.
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", cfg.Driver, err)
	}

	s := &Store{db: db, driver: cfg.Driver}
	if err := s.Migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&User{}, &Course{}, &ClassSession{}, &Membership{})
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Driver reports which database the store talks to.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// sqliteParams are the connection settings the store relies on. Each entry
// lists the driver's aliases for the same key; a DSN that sets any alias keeps
// its own value.
var sqliteParams = []struct {
	keys  []string
	param string
}{
	{[]string{"_foreign_keys", "_fk"}, "_foreign_keys=on"},
	{[]string{"_busy_timeout", "_timeout"}, "_busy_timeout=5000"},
	{[]string{"_txlock"}, "_txlock=immediate"},
	{[]string{"_journal_mode", "_journal"}, "_journal_mode=WAL"},
}

// sqliteDSN appends whichever of sqliteParams the DSN does not set.
func sqliteDSN(dsn string) string {
	path, query, _ := strings.Cut(dsn, "?")
	present := make(map[string]bool)
	var parts []string
	for _, kv := range strings.Split(query, "&") {
		if kv == "" {
			continue
		}
		parts = append(parts, kv)
		key, _, _ := strings.Cut(kv, "=")
		present[key] = true
	}
	for _, p := range sqliteParams {
		set := false
		for _, k := range p.keys {
			set = set || present[k]
		}
		if !set {
			parts = append(parts, p.param)
		}
	}
	return path + "?" + strings.Join(parts, "&")
}

func newLogger(cfg Config) logger.Interface {
	level := logger.Warn
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	slow := cfg.SlowQuery
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return logger.New(log.New(os.Stderr, "goEnroll/storage: ", log.LstdFlags), logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// notFound converts gorm.ErrRecordNotFound into the given sentinel and wraps
// anything else.
func notFound(err error, sentinel error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
