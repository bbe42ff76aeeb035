package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whiteboard/internal/auth"
	"whiteboard/internal/config"
	"whiteboard/internal/handlers"
	"whiteboard/internal/logger"
	"whiteboard/internal/middleware"
	"whiteboard/internal/migrations"
	"whiteboard/internal/models/task"
	"whiteboard/internal/repository/inmemory"
	"whiteboard/internal/repository/postgres"
	"whiteboard/internal/service"
	"whiteboard/internal/worker"
)

// Store - полный набор репозиториев одного хранилища
type Store interface {
	service.BoardRepository
	service.UserRepository
	service.ActivityRepository
	Close()
}

var (
	_ Store = (*inmemory.Storage)(nil)
	_ Store = (*postgres.Storage)(nil)
)

type App struct {
	config    *config.Config
	server    *http.Server
	store     Store
	tokens    *auth.TokenManager
	board     *service.BoardService
	users     *service.UserService
	worker    *worker.AutoReturnWorker
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// OpenStore открывает хранилище по repository.type; для PostgreSQL
// сначала применяются миграции
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Repository.Type {
	case config.RepositoryInMemory:
		logger.Info("App: Хранилище в памяти")
		return inmemory.New(), nil
	case config.RepositoryPostgres:
		if err := migrations.Up(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		store, err := postgres.New(ctx, postgres.Options{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnIdleTime: cfg.Database.IdleTimeout,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.Repository.Type)
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: Завершение работы логгирования...")
		logger.Sync()
	})

	store, err := OpenStore(ctx, a.config)
	if err != nil {
		return fmt.Errorf("открытие хранилища: %w", err)
	}
	a.store = store
	a.shutdowns = append(a.shutdowns, store.Close)

	a.tokens = auth.NewTokenManager(a.config.Auth.JWTSecret, a.config.Auth.TokenTTL)
	a.board = service.NewBoardService(store, store)
	a.users = service.NewUserService(store, a.tokens, service.WithEmailDomain(a.config.Auth.EmailDomain))

	if a.config.Reconcile.OnBoot {
		result, err := a.board.Reconcile(ctx)
		if err != nil {
			// частичный результат сойдётся на следующем проходе
			logger.Error("App: Сверка групп при старте завершилась с ошибками", err)
		} else {
			logger.Info("App: Сверка групп при старте", zap.Int("writes", result.Writes()))
		}
	}

	interval := a.config.Scanner.Interval
	batch := a.config.Scanner.BatchSize
	a.worker = worker.NewAutoReturnWorker(a.board, &interval, &batch).
		OnReturned(func(ctx context.Context, returned []*task.Task) {
			logger.Info("App: System: Carers marked as returned.", zap.Int("count", len(returned)))
		})

	router := handlers.NewRouter(handlers.NewHandler(a.board, a.users), a.tokens, handlers.RouterOptions{
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimits: middleware.RateLimits{
			Writes: a.config.Server.RateLimit,
			Polls:  a.config.Server.PollRateLimit,
		},
		AllowedOrigins: a.config.Server.AllowedOrigins,
	})
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run блокируется до отмены ctx или ошибки сервера
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	})

	if a.config.Scanner.Enabled {
		g.Go(func() error {
			a.worker.Start(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("App: Остановка HTTP сервера")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown освобождает ресурсы в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

func (a *App) Board() *service.BoardService { return a.board }

func (a *App) Users() *service.UserService { return a.users }

func (a *App) Worker() *worker.AutoReturnWorker { return a.worker }

func (a *App) Handler() http.Handler { return a.server.Handler }
