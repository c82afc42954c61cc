package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/ledger"
	"github.com/poolside/staking-engine/internal/metrics"
	"github.com/poolside/staking-engine/internal/params"
	"github.com/poolside/staking-engine/internal/registry"
	"github.com/poolside/staking-engine/internal/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	admin := envOr("ADMIN_ACCOUNT", "admin")
	pool := envOr("POOL_ACCOUNT", "pool")

	// --- Staking configuration ---
	cfg := params.NewStore(params.Params{
		RewardNumerator:   envDecimal("REWARD_NUMERATOR", "1"),
		RewardDenominator: envDecimal("REWARD_DENOMINATOR", "100"),
		RewardInterval:    envSeconds("REWARD_INTERVAL_SECONDS", 86400),
		MinStakingPeriod:  envSeconds("MIN_STAKING_PERIOD_SECONDS", 86400),
		MaxStakingPeriod:  envSeconds("MAX_STAKING_PERIOD_SECONDS", 30*86400),
		StakeUnit:         envOr("STAKE_UNIT", "STAKE"),
		RewardUnit:        envOr("REWARD_UNIT", "RWD"),
	})

	// --- Initialize registry ---
	var reg registry.Registry
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbpool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, dbpool.Close)
		reg = registry.NewPostgresRegistry(dbpool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			reg = registry.NewCachedRegistry(reg, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory registry (data will not persist)")
		reg = registry.NewMemoryRegistry()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Value-transfer collaborator ---
	// The in-memory bank stands in for the external custody mechanism.
	// Production deployments replace this with an adapter to the real one.
	bank := token.NewMemoryBank(pool)
	seedBank(bank, cfg.Snapshot(), pool)

	// --- WebSocket hub ---
	hub := ledger.NewHub()
	go hub.Run()

	// --- Ledger service ---
	svc := ledger.NewService(reg, bank, cfg, hub, admin, pool)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"staking-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time ledger events.
		r.Get("/ws", hub.HandleWS)

		// Ledger operations.
		r.Post("/stake", svc.HandleStake)
		r.Post("/claim", svc.HandleClaim)
		r.Post("/unstake", svc.HandleUnstake)

		// Queries.
		r.Get("/positions/{participant}", svc.HandlePositions)
		r.Get("/reward/{participant}", svc.HandleReward)
		r.Get("/events/{participant}", svc.HandleEvents)
		r.Get("/totals", svc.HandleTotals)

		// Administrative surface.
		r.Post("/admin/pause", svc.HandlePause)
		r.Post("/admin/unpause", svc.HandleUnpause)
		r.Post("/admin/withdraw", svc.HandleWithdraw)
		r.Post("/admin/config", svc.HandleConfig)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("staking-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down staking-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("staking-engine stopped")
}

// seedBank funds dev accounts and the pool reserve from the environment.
// SEED_ACCOUNTS is a comma-separated list of account=amount pairs; seeded
// accounts get an unlimited staking allowance so the dev loop needs no
// separate approve step.
func seedBank(bank *token.MemoryBank, cfg params.Params, pool string) {
	if reserve := envDecimal("POOL_RESERVE", "0"); reserve.IsPositive() {
		bank.Mint(cfg.RewardUnit, pool, reserve)
		bank.Mint(cfg.StakeUnit, pool, reserve)
		slog.Info("pool reserve seeded", "amount", reserve.String())
	}

	seeds := os.Getenv("SEED_ACCOUNTS")
	if seeds == "" {
		return
	}
	for _, pair := range strings.Split(seeds, ",") {
		account, amountStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			slog.Warn("skipping malformed SEED_ACCOUNTS entry", "entry", pair)
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil || !amount.IsPositive() {
			slog.Warn("skipping malformed SEED_ACCOUNTS amount", "entry", pair)
			continue
		}
		bank.Mint(cfg.StakeUnit, account, amount)
		bank.Approve(cfg.StakeUnit, account, amount)
		slog.Info("account seeded", "account", account, "amount", amount.String())
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	v := envOr(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		slog.Error("invalid decimal in environment", "key", key, "value", v)
		os.Exit(1)
	}
	return d
}

func envSeconds(key string, fallback int64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * time.Second
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil || sec <= 0 {
		slog.Error("invalid duration in environment", "key", key, "value", v)
		os.Exit(1)
	}
	return time.Duration(sec) * time.Second
}
