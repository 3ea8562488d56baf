package courseprogress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/course-progress/internal/cache"
	"github.com/magabrotheeeer/course-progress/internal/catalog"
	"github.com/magabrotheeeer/course-progress/internal/config"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/health"
	"github.com/magabrotheeeer/course-progress/internal/lib/jwt"
	"github.com/magabrotheeeer/course-progress/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/migrations"
	adminservice "github.com/magabrotheeeer/course-progress/internal/services/admin"
	progressservice "github.com/magabrotheeeer/course-progress/internal/services/progress"
	"github.com/magabrotheeeer/course-progress/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP-сервер со всеми зависимостями.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *storage.Storage
	cache     *cache.Cache
	amqpConn  *amqp.Connection
	publisher *rabbitmq.Publisher
}

// New подключает хранилище, применяет миграции, поднимает кеш и брокер
// и собирает маршруты. Недоступный брокер не мешает запуску: события
// о завершении курсов тогда не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "courseprogress.New"

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = storage.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var events progressservice.EventPublisher
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Warn("rabbitmq is unavailable, course completion events are disabled", sl.Err(err))
	} else {
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQExchange, rabbitmq.ProgressQueues())
		if err != nil {
			_ = conn.Close()
			logger.Warn("failed to set up rabbitmq channel, course completion events are disabled", sl.Err(err))
		} else {
			app.amqpConn = conn
			app.publisher = rabbitmq.NewPublisher(ch, cfg.RabbitMQExchange)
			events = app.publisher
		}
	}

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	progressService := progressservice.NewProgressService(db, cacheRedis, events, cat, tokens,
		progressservice.Options{
			MaxRetries:         cfg.Progress.MaxRetries,
			ExamCooldown:       cfg.ExamCooldown,
			UserCacheTTL:       cfg.UserCacheTTL,
			DefaultSeasonStart: cfg.DefaultStartDate,
		}, logger)
	adminService := adminservice.NewAdminService(db, cacheRedis, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Progress:       progressService,
		Admin:          adminService,
		Tokens:         tokens,
		AdminTokenHash: cfg.TokenHash,
		LoginRPS:       cfg.LoginRPS,
		LoginBurst:     cfg.LoginBurst,
		Health: map[string]health.Checker{
			"postgres": db.DB.PingContext,
			"redis":    func(ctx context.Context) error { return cacheRedis.Db.Ping(ctx).Err() },
		},
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
