// Package server wires the socialmaster server: database and migrations,
// upstream API clients, object storage, events, the batch guard, the
// auto-publish scheduler and the gRPC and ops HTTP servers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/cryptox"
	"github.com/dmitrijs2005/socialmaster/internal/imagegen"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/netx"
	"github.com/dmitrijs2005/socialmaster/internal/retryx"
	"github.com/dmitrijs2005/socialmaster/internal/server/config"
	"github.com/dmitrijs2005/socialmaster/internal/server/events"
	"github.com/dmitrijs2005/socialmaster/internal/server/generation"
	"github.com/dmitrijs2005/socialmaster/internal/server/httpapi"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialmaster/internal/server/scheduler"
	"github.com/dmitrijs2005/socialmaster/internal/server/services"
	"github.com/dmitrijs2005/socialmaster/internal/server/social"
	"github.com/dmitrijs2005/socialmaster/internal/server/storage"
	"github.com/dmitrijs2005/socialmaster/internal/textgen"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/socialmaster/internal/server/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// batchLockTTL bounds how long a crashed replica can hold an account's
// Redis batch lock.
const batchLockTTL = 2 * time.Hour

const socialTokenSalt = "socialmaster/social-tokens"

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	events    events.Publisher
	redis     *redis.Client
	scheduler *scheduler.Scheduler
	grpc      *gs.GRPCServer
	http      *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	httpClient := netx.NewClient(c.HTTPTimeout)
	retry := retryx.Policy{Attempts: uint64(c.RetryMaxAttempts), BaseDelay: c.RetryBaseDelay}

	text := textgen.New(textgen.Config{
		APIKey:     c.OpenAIAPIKey,
		BaseURL:    c.OpenAIBaseURL,
		Model:      c.OpenAIModel,
		HTTPClient: httpClient,
		Retry:      retry,
	})
	image := imagegen.New(imagegen.Config{
		APIKey:               c.IdeogramAPIKey,
		BaseURL:              c.IdeogramBaseURL,
		HTTPClient:           httpClient,
		Retry:                retry,
		StripDiacriticsLangs: c.DiacriticsLanguages,
	})

	assets, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		Endpoint:      c.S3BaseEndpoint,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		PublicBaseURL: c.S3PublicBaseURL,
	}, httpClient, retry)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokenKey := c.SocialTokenKey
	if tokenKey == "" {
		tokenKey = c.SecretKey
	}
	tokens, err := cryptox.NewSealer(cryptox.DeriveKey([]byte(tokenKey), []byte(socialTokenSalt)))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("token sealer init error: %w", err)
	}

	app.events = app.initEvents(ctx)
	guard := app.initGuard(ctx)

	orchestrator := generation.NewOrchestrator(text, image, assets, rm.Posts(db), logger)
	balances := services.NewBalanceStore(db, rm)

	posts := services.NewPostService(db, rm, orchestrator, social.NewGraphClient(c.GraphAPIBaseURL, httpClient), tokens, balances, app.events, logger)
	gen := services.NewGenerationService(db, rm, orchestrator, guard, balances, app.events, logger, c.MaxBatchDays)

	app.scheduler, err = scheduler.New(c.AutoPublishSchedule, posts, logger, 10*time.Minute)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Services{
		Generation: gen,
		Posts:      posts,
		Profiles:   services.NewProfileService(db, rm),
		Social:     services.NewSocialService(db, rm, tokens),
	}, c.SecretKey)
	app.http = httpapi.NewServer(c.EndpointAddrHTTP, httpapi.NewRouter(db, logger), logger)

	return app, nil
}

// initEvents connects to RabbitMQ, falling back to dropping events when it is
// not configured or not reachable.
func (app *App) initEvents(ctx context.Context) events.Publisher {
	if app.config.RabbitMQURL == "" {
		return events.NewEventProducerFallback(app.logger)
	}
	p, err := events.NewEventProducer(app.config.RabbitMQURL, events.DefaultExchange, app.logger)
	if err != nil {
		app.logger.Warn(ctx, "rabbitmq unavailable, events will be dropped", "error", err)
		return events.NewEventProducerFallback(app.logger)
	}
	return p
}

// initGuard uses Redis when configured so replicas share batch locks.
func (app *App) initGuard(ctx context.Context) generation.Guard {
	if app.config.RedisURL == "" {
		return generation.NewMemoryGuard()
	}
	opts, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		app.logger.Warn(ctx, "invalid redis url, using in-process batch guard", "error", err)
		return generation.NewMemoryGuard()
	}
	app.redis = redis.NewClient(opts)
	return generation.NewRedisGuard(app.redis, batchLockTTL)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal or a server failure.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.scheduler.Start()

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.scheduler.Stop(stopCtx)
	app.Close()

	app.logger.Info(stopCtx, "App stopped")
}

// Close releases the database, broker and cache connections.
func (app *App) Close() {
	if app.events != nil {
		app.events.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
