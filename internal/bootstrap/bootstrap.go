// Package bootstrap wires process configuration into the storage, Redis and
// engine dependencies shared by the goenroll binaries.
package bootstrap

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal/config"
	"github.com/MrEthical07/goEnroll/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Deps is the set of opened dependencies behind an engine.
type Deps struct {
	Engine *goEnroll.Engine
	Store  *storage.Store
	Redis  redis.UniversalClient

	closers []func()
}

// Close releases everything in reverse opening order.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Open opens the store and Redis and builds an engine over them. auditOut
// receives JSON audit lines when cfg.AuditLog is set; nil disables audit.
func Open(ctx context.Context, cfg config.Server, auditOut io.Writer) (*Deps, error) {
	deps := &Deps{}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.Store = store
	deps.closers = append(deps.closers, func() { _ = store.Close() })

	rdb, closeRedis, err := OpenRedis(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = rdb
	deps.closers = append(deps.closers, closeRedis)

	engineCfg, err := EngineConfig(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}

	var sink goEnroll.AuditSink
	if cfg.AuditLog && auditOut != nil {
		engineCfg.Audit.Enabled = true
		sink = goEnroll.NewJSONWriterSink(auditOut)
	}
	builder := goEnroll.New().WithConfig(engineCfg).WithRedis(rdb).WithStore(store).WithAuditSink(sink)

	engine, err := builder.Build()
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	deps.Engine = engine
	deps.closers = append(deps.closers, engine.Close)

	return deps, nil
}

// OpenStore opens and pings the configured database.
func OpenStore(ctx context.Context, cfg config.Server) (*storage.Store, error) {
	store, err := storage.Open(storage.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        cfg.DBLogLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping %s: %w", store.Driver(), err)
	}
	return store, nil
}

// OpenRedis connects to cfg.RedisAddr, or starts an embedded in-memory Redis
// when it is empty. The returned func closes the client and any embedded
// server.
func OpenRedis(ctx context.Context, cfg config.Server) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr

	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		log.Printf("goenroll: GOENROLL_REDIS_ADDR not set, using embedded redis at %s; sessions are lost on restart", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	closeFn := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	if err := client.Ping(ctx).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, closeFn, nil
}

// EngineConfig maps process configuration onto the engine's Config. Without
// a JWT secret, tokens are signed with a throwaway ed25519 key and do not
// survive a restart.
func EngineConfig(cfg config.Server) (goEnroll.Config, error) {
	out := goEnroll.DefaultConfig()
	out.JWT.AccessTTL = cfg.AccessTTL
	out.JWT.RefreshTTL = cfg.RefreshTTL
	out.JWT.Issuer = cfg.Issuer

	if cfg.JWTSecret != "" {
		if len(cfg.JWTSecret) < 32 {
			return goEnroll.Config{}, errors.New("GOENROLL_JWT_SECRET must be at least 32 bytes")
		}
		out.JWT.SigningMethod = "hs256"
		out.JWT.PrivateKey = []byte(cfg.JWTSecret)
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return goEnroll.Config{}, fmt.Errorf("generate signing key: %w", err)
		}
		log.Printf("goenroll: GOENROLL_JWT_SECRET not set, signing with an ephemeral ed25519 key")
		out.JWT.SigningMethod = "ed25519"
		out.JWT.PrivateKey = priv
	}

	if err := out.Validate(); err != nil {
		return goEnroll.Config{}, err
	}
	return out, nil
}
