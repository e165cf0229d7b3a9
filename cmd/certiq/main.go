package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/riandyrn/otelchi"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/certiq/internal/adapter/derive"
	"github.com/neomorfeo/certiq/internal/adapter/fsm"
	"github.com/neomorfeo/certiq/internal/adapter/otel"
	"github.com/neomorfeo/certiq/internal/adapter/prometheus"
	"github.com/neomorfeo/certiq/internal/adapter/river"
	"github.com/neomorfeo/certiq/internal/adapter/sqlite"
	"github.com/neomorfeo/certiq/internal/app"
	"github.com/neomorfeo/certiq/internal/domain"

	handler "github.com/neomorfeo/certiq/internal/adapter/http"
)

const (
	serviceName = "certiq"
	version     = "0.1.0"
	tokenIssuer = "certiq"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type config struct {
	port          string
	dbPath        string
	signingKey    string
	feeDecimals   uint8
	faucetEnabled bool
}

func loadConfig() (config, error) {
	decimals, err := strconv.ParseUint(envOrDefault("FEE_DECIMALS", "6"), 10, 8)
	if err != nil {
		return config{}, fmt.Errorf("parsing FEE_DECIMALS: %w", err)
	}
	faucet, err := strconv.ParseBool(envOrDefault("FAUCET_ENABLED", "false"))
	if err != nil {
		return config{}, fmt.Errorf("parsing FAUCET_ENABLED: %w", err)
	}
	return config{
		port:          envOrDefault("PORT", "8080"),
		dbPath:        envOrDefault("DATABASE_PATH", "certiq.db"),
		signingKey:    envOrDefault("JWT_SIGNING_KEY", "certiq-development-key"),
		feeDecimals:   uint8(decimals),
		faucetEnabled: faucet,
	}, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := prometheus.New(registry)

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	queue, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	deriver := derive.New("")
	payments := sqlite.NewPaymentLedger(store, deriver, cfg.feeDecimals)

	var publisher domain.EventPublisher = river.NewPublisher(queue)
	publisher = prometheus.NewCountingPublisher(otel.NewTracingPublisher(publisher), metrics)

	// --- Application ---
	svc := app.NewLedgerService(app.Ports{
		Protocol:  otel.NewTracingProtocolRepository(sqlite.NewProtocolRepository(store)),
		Tenants:   otel.NewTracingTenantRepository(sqlite.NewTenantRepository(store)),
		Tx:        store,
		Payments:  otel.NewTracingPaymentService(payments),
		Issuer:    otel.NewTracingIssuanceService(sqlite.NewAssetStore(store)),
		Deriver:   deriver,
		Publisher: publisher,
		Validator: fsm.New(),
	})

	// --- Adapters (in) ---
	tokens := handler.NewTokenService(cfg.signingKey, tokenIssuer)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(handler.Authenticate(tokens, slog.Default()))

	router.Handle("/metrics", prometheus.Handler(registry))

	api := humachi.New(router, huma.DefaultConfig(serviceName, version))
	handler.Register(api, svc)
	if cfg.faucetEnabled {
		handler.RegisterFaucet(api, payments)
		slog.Warn("development faucet enabled")
	}

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The queue is stopped explicitly below so in-flight notices drain.
		if err := queue.Start(context.WithoutCancel(gctx)); err != nil {
			return fmt.Errorf("starting river: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("certiq listening", "port", cfg.port, "docs", "http://localhost:"+cfg.port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := queue.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("river shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("stopped")
	return nil
}

// issueToken prints a bearer token for a caller address. It signs with the
// same JWT_SIGNING_KEY the server validates with.
func issueToken(args []string) error {
	if len(args) < 1 || args[0] == "" {
		return errors.New("usage: certiq token <address> [ttl]")
	}
	ttl := 24 * time.Hour
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("parsing ttl: %w", err)
		}
		ttl = d
	}

	key := envOrDefault("JWT_SIGNING_KEY", "certiq-development-key")
	token, err := handler.NewTokenService(key, tokenIssuer).Issue(domain.Address(args[0]), ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
