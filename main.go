package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"naval-battle-server/api"
	"naval-battle-server/auth"
	"naval-battle-server/config"
	"naval-battle-server/ephemeral"
	"naval-battle-server/loghandler"
	"naval-battle-server/match"
	"naval-battle-server/storage"
	"naval-battle-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables")
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()

	slog.Info("configuration loaded", "tag", "main",
		"playerLimit", cfg.JoinMatchPlayerLimit,
		"turnTimeoutMs", cfg.TurnTimeoutMS,
		"maxMissedTurns", cfg.MaxMissedTurns,
		"boardCap", cfg.MaxBoardSize,
		"wsPort", cfg.WSPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := openRepository(ctx, cfg)
	defer repo.Close()

	store := openEphemeralStore(ctx, cfg)

	var authenticator auth.Authenticator
	if cfg.AuthBaseURL == "" {
		slog.Warn("AUTH_BASE_URL is not set; websocket auth will reject clients", "tag", "main")
	} else {
		slog.Info("auth configured", "tag", "main", "baseUrl", cfg.AuthBaseURL)
		authenticator = auth.NewJWKSAuthenticator(cfg.AuthBaseURL)
	}

	manager := match.NewManager(cfg, repo, store)

	hub := ws.NewHub(cfg, manager, authenticator, repo)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	api.NewHandler(cfg, repo, authenticator).Register(mux)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("naval battle server listening", "tag", "main", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "tag", "main", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received", "tag", "main")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "tag", "main", "err", err)
	}
}

// openRepository connects to Postgres when DATABASE_URL is set, otherwise
// falls back to the in-memory repository.
func openRepository(ctx context.Context, cfg *config.Config) storage.Repository {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; match history will not survive restarts", "tag", "main")
		return storage.NewMemory()
	}
	repo, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("postgres connection failed", "tag", "main", "err", err)
		os.Exit(1)
	}
	return repo
}

// openEphemeralStore connects to Redis when REDIS_URL is set, otherwise
// falls back to the in-process store (single instance only).
func openEphemeralStore(ctx context.Context, cfg *config.Config) ephemeral.Store {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL is not set; per-turn state is process-local", "tag", "main")
		return ephemeral.NewMemoryStore()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "tag", "main", "err", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis connection failed", "tag", "main", "err", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis", "tag", "main")
	return ephemeral.NewRedisStore(rdb)
}
