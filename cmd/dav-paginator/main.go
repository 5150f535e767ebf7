package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/dav-paginator/internal/fsdav"
	"github.com/Sternrassler/dav-paginator/pkg/cache"
	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/metrics"
	"github.com/Sternrassler/dav-paginator/pkg/paginate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// config is the server configuration read from the environment.
type config struct {
	Port            string
	Root            string
	Backend         string
	SQLitePath      string
	RedisURL        string
	PageSize        int
	MaxPageSize     int
	CleanupInterval time.Duration
	LogLevel        string
	LogPretty       bool
}

func loadConfig() config {
	return config{
		Port:            getEnv("PORT", "8080"),
		Root:            getEnv("DAV_ROOT", "."),
		Backend:         getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:      getEnv("SQLITE_PATH", "dav-pages.db"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		PageSize:        getEnvInt("PAGE_SIZE", paginate.DefaultPageSize),
		MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 1000),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", false),
	}
}

// pinger is implemented by both cache backends.
type pinger interface {
	Ping(ctx context.Context) error
}

// storage is an opened cache backend.
type storage struct {
	cache cache.Cache
	ping  pinger
	close func() error
}

// openStorage connects the configured backend and prepares it for use.
func openStorage(ctx context.Context, cfg config) (*storage, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := cache.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		c := cache.NewSQLCache(db, cache.DefaultConfig())
		if err := c.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{cache: c, ping: c, close: db.Close}, nil

	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		c := cache.NewRedisCache(redisClient, cache.DefaultConfig())
		if err := c.Ping(ctx); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
		}
		return &storage{cache: c, ping: c, close: redisClient.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q (want sqlite or redis)", cfg.Backend)
	}
}

// newMux wires the DAV handler and the operational endpoints.
func newMux(davHandler http.Handler, ready pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", davHandler)
	return mux
}

func main() {
	cfg := loadConfig()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("server")

	if err := run(cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	logger.Info().Str(logging.FieldBackend, cfg.Backend).Msg("Page cache ready")

	lister, err := fsdav.New(cfg.Root)
	if err != nil {
		return err
	}
	defer lister.Close()

	plugin, err := paginate.New(store.cache, paginate.Config{
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
	})
	if err != nil {
		return err
	}

	davServer := dav.NewServer(lister, logging.NewLogger("dav"), plugin)

	go cache.RunCleanup(ctx, store.cache, cfg.CleanupInterval, logging.NewLogger("janitor"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newMux(davServer, store.ping),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("root", cfg.Root).
			Int("page_size", cfg.PageSize).
			Msg("Starting DAV server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			http.Error(w, fmt.Sprintf("page cache unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
