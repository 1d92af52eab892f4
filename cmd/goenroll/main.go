// Command goenroll serves the enrollment API over HTTP.
//
// Configuration comes from GOENROLL_* environment variables, optionally read
// from a .env file in the working directory. Without GOENROLL_REDIS_ADDR an
// embedded Redis is started; without GOENROLL_JWT_SECRET tokens are signed
// with a key generated at startup.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goEnroll/httpapi"
	"github.com/MrEthical07/goEnroll/internal/bootstrap"
	"github.com/MrEthical07/goEnroll/internal/config"
)

func main() {
	loaded, err := config.LoadDotEnv()
	if err != nil {
		log.Fatal(err)
	}
	if loaded {
		log.Print("goenroll: loaded .env")
	}

	var cfg config.Server
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Server) error {
	deps, err := bootstrap.Open(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer deps.Close()

	log.Printf("goenroll: security %s", deps.Engine.SecurityReport())

	if cfg.OTelExporter {
		stopReporter, err := startOTelReporter(deps.Engine, cfg.OTelReportInterval)
		if err != nil {
			return err
		}
		defer stopReporter()
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewHandler(deps.Engine, httpapi.Options{
			CORSOrigins:    cfg.CORSOrigins,
			ProtectMetrics: cfg.MetricsAdminOnly,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("goenroll: listening on %s (db=%s)", cfg.HTTPAddr, deps.Store.Driver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Print("goenroll: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
