package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/blog-api/internal/api/http"
	"github.com/spec-kit/blog-api/internal/api/http/handlers"
	"github.com/spec-kit/blog-api/internal/auth"
	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/config"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/lock"
	"github.com/spec-kit/blog-api/internal/observability"
	"github.com/spec-kit/blog-api/internal/persistence"
	"github.com/spec-kit/blog-api/internal/repository"
	"github.com/spec-kit/blog-api/internal/service"
	"github.com/spec-kit/blog-api/internal/worker"
)

const ephemeralKeyBits = 2048

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	keys, err := loadSigningKeys(cfg, logger)
	if err != nil {
		logger.Fatal("failed to load signing keys", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	clk := clock.New()
	tokens := auth.NewTokenCodec(keys, cfg.Auth.Issuer, clk)
	blacklist := auth.NewBlacklist(metrics)

	accounts, posts, comments := newRepositories(pg, logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Accounts:   accounts,
		Tokens:     tokens,
		Blacklist:  blacklist,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Locker:     newLocker(cfg, redis, logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	postService := service.NewPostService(posts, dispatcher, clk, logger)
	commentService := service.NewCommentService(comments, postService, dispatcher, clk, logger)
	gate := auth.NewGate(authService.TokenCodec(), authService.Blacklist(), accounts, metrics, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"redis": redis}
	if pg.PoolHandle() != nil {
		dependencies["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Users:    handlers.NewUsersHandler(authService),
		Posts:    handlers.NewPostsHandler(postService, commentService),
		Comments: handlers.NewCommentsHandler(commentService),
		Gate:     gate,
		Metrics:  metrics,
	})

	prunerDone := worker.StartBlacklistPruner(ctx, blacklist, clk, cfg.Auth.BlacklistPruneInterval(), logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	<-prunerDone
}

// loadSigningKeys prefers key files, then inline PEM. Outside production a
// throwaway key is generated so the service can start without setup.
func loadSigningKeys(cfg *config.Config, logger *zap.Logger) (*auth.KeyPair, error) {
	switch {
	case cfg.Auth.PrivateKeyPath != "":
		return auth.LoadKeyPairFromFiles(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath)
	case cfg.Auth.PrivateKeyPEM != "":
		return auth.LoadKeyPair([]byte(cfg.Auth.PrivateKeyPEM), []byte(cfg.Auth.PublicKeyPEM))
	}
	if cfg.App.IsProduction() {
		return nil, errors.New("AUTH_PRIVATE_KEY_PATH or AUTH_PRIVATE_KEY must be set in production")
	}
	logger.Warn("no signing keys configured; generating an ephemeral key pair, issued tokens will not survive a restart")
	return auth.GenerateKeyPair(ephemeralKeyBits)
}

func newRepositories(pg *persistence.Postgres, logger *zap.Logger) (repository.AccountRepository, repository.PostRepository, repository.CommentRepository) {
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Warn("no postgres pool available; using in-memory repositories")
		store := repository.NewMemoryStore()
		return store.Accounts(), store.Posts(), store.Comments()
	}
	return repository.NewAccountRepository(pool), repository.NewPostRepository(pool), repository.NewCommentRepository(pool)
}

func newLocker(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) lock.Locker {
	if cfg.Auth.LockBackend == config.LockBackendRedis {
		logger.Info("using redis account locks", zap.Duration("ttl", cfg.Auth.LockTTL()))
		return lock.NewRedisLocker(redis.Client, cfg.App.Name+":lock:", cfg.Auth.LockTTL(), logger.Named("lock"))
	}
	return lock.NewKeyedMutex()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
