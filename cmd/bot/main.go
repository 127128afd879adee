package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Rainelz/booko/internal/common/config"
	"github.com/Rainelz/booko/internal/common/httpclient"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
	"github.com/Rainelz/booko/internal/geocode"
	"github.com/Rainelz/booko/internal/playtomic"
	"github.com/Rainelz/booko/internal/search"
	"github.com/Rainelz/booko/internal/session"
	"github.com/Rainelz/booko/internal/transport/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "booko: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLogger.Sync() }()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting booko", map[string]interface{}{
		"environment": cfg.App.Environment,
		"mode":        cfg.Telegram.Mode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opsServer := startOpsServer(cfg.Ops.ListenAddr, log)
	defer shutdownServer(opsServer, log)

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	machine, err := buildMachine(cfg, store, log)
	if err != nil {
		return err
	}

	tgClient := telegram.NewClient(cfg.Telegram.Token, httpclient.New(45*time.Second), log)
	bot := telegram.NewBot(tgClient, machine, log)

	switch cfg.Telegram.Mode {
	case "webhook":
		return runWebhook(ctx, cfg, tgClient, bot, log)
	default:
		poller := telegram.NewPoller(tgClient, bot, config.GetDuration(cfg.Telegram.PollPeriod), log)
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("shutting down", nil)
		return nil
	}
}

// buildMachine assembles the full pipeline behind the conversation: the
// geocoder, the directory client, the search engine and the formatter.
func buildMachine(cfg *config.Config, store session.Store, log logger.Logger) (*session.Machine, error) {
	geocoder := geocode.NewClient(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.UserAgent,
		httpclient.New(config.GetDuration(cfg.Geocoding.Timeout)),
		log,
	)

	directory := playtomic.NewClient(playtomic.Config{
		BaseURL:      cfg.Directory.BaseURL,
		SportID:      cfg.Directory.SportID,
		RadiusMeters: cfg.Directory.RadiusMeters,
		PageSize:     cfg.Directory.PageSize,
	}, httpclient.New(config.GetDuration(cfg.Directory.Timeout)), log)

	engine := search.NewEngine(
		search.NewDiscoverer(directory, log),
		directory,
		cfg.Search.Workers,
		config.GetDuration(cfg.Search.FetchTimeout),
		log,
	)

	displayZone, err := time.LoadLocation(cfg.Search.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", cfg.Search.DisplayTimezone, err)
	}

	defaults := session.Defaults{
		Address: cfg.Search.DefaultAddress,
		Origin:  geo.Coordinate{Lat: cfg.Search.DefaultLat, Lon: cfg.Search.DefaultLon},
	}

	return session.NewMachine(store, engine, geocoder, search.NewFormatter(displayZone), defaults, log), nil
}

func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (session.Store, func(), error) {
	ttl := time.Duration(cfg.Sessions.TTL) * time.Second

	if cfg.Sessions.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("using redis session store", map[string]interface{}{"address": cfg.Redis.Address})
		return session.NewRedisStore(client, ttl), func() { _ = client.Close() }, nil
	}

	store := session.NewMemoryStore(ttl)
	return store, store.Close, nil
}

// startOpsServer exposes metrics, health and pprof on a side listener,
// away from the webhook surface.
func startOpsServer(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	log.Info("ops server listening", map[string]interface{}{"address": addr})
	return server
}

func runWebhook(ctx context.Context, cfg *config.Config, tgClient *telegram.Client, bot *telegram.Bot, log logger.Logger) error {
	if err := tgClient.SetWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	router := telegram.NewWebhookRouter(bot, cfg.Telegram.Token, log)
	server := &http.Server{Addr: cfg.Telegram.ListenAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info("webhook server listening", map[string]interface{}{"address": cfg.Telegram.ListenAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownServer(server, log)
	return nil
}

func shutdownServer(server *http.Server, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
