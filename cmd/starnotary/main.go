package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/starnotary/adapters/events"
	"github.com/layer-3/starnotary/adapters/ledger"
	"github.com/layer-3/starnotary/adapters/metrics"
	"github.com/layer-3/starnotary/adapters/store"
	"github.com/layer-3/starnotary/adapters/tokenizer"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/internal/config"
	"github.com/layer-3/starnotary/ports"
	"github.com/layer-3/starnotary/service"
	transport "github.com/layer-3/starnotary/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file (default $"+config.EnvConfigFile+")")
	addr := pflag.String("addr", "", "listen address, overrides http.addr")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("starnotary stopped", "error", err)
		os.Exit(1)
	}
}

type backend struct {
	sessions ports.SessionStore
	grants   ports.GrantStore
	ledger   ports.Ledger
	events   message.Publisher
	close    func()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	signKey, err := loadSigningKey(cfg.Grant.KeyFile, logger)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewPrometheus(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	tok := tokenizer.NewJWTTokenizer(signKey)
	registry := service.NewSessionRegistry(b.sessions, m, cfg.Session.ValidationWindow, cfg.Session.Retention)
	authVerifier := service.NewAuthenticationVerifier(registry, verifier.NewEthVerifier(), tok, m)
	eventPub := events.NewWatermillPublisher(b.events, cfg.Events.Topic)
	stars := service.NewStarService(registry, tok, b.grants, b.ledger, eventPub, m, logger)

	gin.SetMode(gin.ReleaseMode)
	router := transport.SetupRouter(registry, authVerifier, stars, transport.Options{
		MaxStoryBytes:  cfg.Story.MaxBytes,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Gatherer:       reg,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr, "redis", cfg.Redis.URL != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openBackend wires Redis when configured, otherwise keeps all state in process
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.Redis.URL == "" {
		logger.Warn("no redis configured, state is kept in memory")
		memStore := store.NewMemoryStore()
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return &backend{
			sessions: memStore,
			grants:   memStore,
			ledger:   ledger.NewMemoryLedger(),
			events:   pubSub,
			close:    func() { _ = pubSub.Close() },
		}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to reach Redis: %w", err)
	}

	chain, err := ledger.NewRedisLedger(ctx, redisClient, cfg.Redis.Prefix)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	redisStore := store.NewRedisStore(redisClient, cfg.Redis.Prefix)
	return &backend{
		sessions: redisStore,
		grants:   redisStore,
		ledger:   chain,
		events:   publisher,
		close: func() {
			_ = publisher.Close()
			_ = redisClient.Close()
		},
	}, nil
}

// loadSigningKey reads the grant signing key, or generates one for this process
func loadSigningKey(path string, logger *slog.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("no grant key configured, generating an ephemeral one")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grant key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grant key: %w", err)
	}
	return key, nil
}
