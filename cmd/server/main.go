/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the document lifecycle server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Parse command-line flag overrides
  3. Open the document repositories (SQLite by default, PostgreSQL when
     DB_DRIVER=postgres and DATABASE_URL is set)
  4. Wire services, workflow notifier, and the HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH; ":memory:" works)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the stores, exit.

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/warp/document-engine/api"
	"github.com/warp/document-engine/config"
	"github.com/warp/document-engine/contract"
	"github.com/warp/document-engine/estimate"
	"github.com/warp/document-engine/lifecycle"
	"github.com/warp/document-engine/notify"
	"github.com/warp/document-engine/store/postgres"
	"github.com/warp/document-engine/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	flag.Parse()

	log := newLogger(cfg)

	planRepo, contractRepo, closeStores, err := openRepositories(cfg, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open repositories")
	}
	defer closeStores()

	plans := estimate.NewService(planRepo)
	contracts := contract.NewService(contractRepo, notify.NewLogEmitter(log))

	handler := api.NewHandler(plans, contracts, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", *port).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Log.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// openRepositories builds one repository per document kind on the
// configured backend.
func openRepositories(cfg config.Config, dbPath string) (
	lifecycle.Repository[estimate.FundPlan],
	lifecycle.Repository[contract.Payload],
	func(),
	error,
) {
	if cfg.Database.Driver == "postgres" {
		ctx := context.Background()
		planRepo, err := postgres.New[estimate.FundPlan](ctx, cfg.Database.URL, "fund_plan")
		if err != nil {
			return nil, nil, nil, err
		}
		contractRepo, err := postgres.NewWithPool[contract.Payload](ctx, planRepo.Pool(), "contract")
		if err != nil {
			planRepo.Close()
			return nil, nil, nil, err
		}
		return planRepo, contractRepo, planRepo.Close, nil
	}

	planRepo, err := sqlite.New[estimate.FundPlan](dbPath, "fund_plan")
	if err != nil {
		return nil, nil, nil, err
	}
	contractRepo, err := sqlite.New[contract.Payload](dbPath, "contract")
	if err != nil {
		planRepo.Close()
		return nil, nil, nil, err
	}
	return planRepo, contractRepo, func() {
		contractRepo.Close()
		planRepo.Close()
	}, nil
}
