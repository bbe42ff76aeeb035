package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"whiteboard/internal/app"
	"whiteboard/internal/auth"
	"whiteboard/internal/config"
	"whiteboard/internal/logger"
	"whiteboard/internal/migrations"
	"whiteboard/internal/service"
	"whiteboard/internal/worker"
)

// environment - конфигурация, логгер и хранилище для разовых команд
type environment struct {
	cfg   *config.Config
	store app.Store
	board *service.BoardService
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, store: store, board: service.NewBoardService(store, store)}, nil
}

func (e *environment) Close() {
	e.store.Close()
	logger.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить REST API и сканер возвратов",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("конфигурация: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg)
			defer a.Shutdown()
			if err := a.Init(ctx); err != nil {
				return fmt.Errorf("инициализация: %w", err)
			}
			return a.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPostgres()
			if err != nil {
				return err
			}
			return migrations.Up(cfg.Database.URL)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPostgres()
			if err != nil {
				return err
			}
			return migrations.Down(cfg.Database.URL, steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "сколько миграций откатить, 0 - все")

	cmd.AddCommand(up, down)
	return cmd
}

func loadPostgres() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}
	if cfg.Repository.Type != config.RepositoryPostgres {
		return nil, fmt.Errorf("миграции нужны только для repository.type=%s", config.RepositoryPostgres)
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	return cfg, nil
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Привести группы к таксономии доски",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.board.Reconcile(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "создано: %d, переименовано: %d, объединено: %d, перенесено задач: %d, удалено: %d\n",
				result.Created, result.Renamed, result.Merged, result.MovedTasks, result.Deleted)
			for _, card := range result.View.Cards {
				fmt.Fprintf(out, "  %-28s %d\n", card.Name, len(card.Tasks))
			}
			return err
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Один проход сканера возвратов",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			batch := env.cfg.Scanner.BatchSize
			returned, err := worker.NewAutoReturnWorker(env.board, nil, &batch).Check(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(returned) == 0 {
				fmt.Fprintln(out, "возвратов нет")
				return nil
			}
			fmt.Fprintln(out, "System: Carers marked as returned.")
			for _, t := range returned {
				fmt.Fprintf(out, "  #%d %s\n", t.ID, t.Title)
			}
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Учётные записи сотрудников",
	}

	var name, email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Создать пользователя",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			users := service.NewUserService(env.store, nil)
			u, err := users.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "создан пользователь #%d %s\n", u.ID, u.Email)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "отображаемое имя")
	add.Flags().StringVar(&email, "email", "", "e-mail для входа")
	add.Flags().StringVar(&password, "password", "", "пароль, не короче 8 символов")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func tokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для пользователя без пароля",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			users := service.NewUserService(env.store, auth.NewTokenManager(env.cfg.Auth.JWTSecret, env.cfg.Auth.TokenTTL))
			session, err := users.IssueToken(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "e-mail пользователя")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
