package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"whiteboard/internal/boardsync"
	"whiteboard/internal/client"
	"whiteboard/internal/config"
	"whiteboard/internal/logger"
	"whiteboard/internal/ui"
	"whiteboard/internal/worker"
)

// повторный вход чаще этого считается отказом сервера, а не истёкшей сессией
const minReauthInterval = time.Minute

func main() {
	configPath := flag.String("config", "config.yml", "путь к config.yml")
	logPath := flag.String("log", "board.log", "файл журнала клиента")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "конфигурация:", err)
		os.Exit(1)
	}
	if err := logger.InitTo(cfg.Logging.Development, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, "инициализация логгера:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("Board: Клиент остановлен с ошибкой", err)
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Client.Email == "" || cfg.Client.Password == "" {
		return errors.New("нужны client.email и client.password (или BOARD_CLIENT_EMAIL, BOARD_CLIENT_PASSWORD)")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock, err := cfg.CutoffClock()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout)
	session, err := api.Login(ctx, cfg.Client.Email, cfg.Client.Password)
	if err != nil {
		return fmt.Errorf("вход: %w", err)
	}
	logger.Info("Board: Вход выполнен", zap.Int64("user_id", session.User.ID), zap.String("base_url", cfg.Client.BaseURL))

	var scanner *worker.AutoReturnWorker
	if cfg.Sync.ScanOnClient {
		interval := cfg.Scanner.Interval
		batch := cfg.Scanner.BatchSize
		scanner = worker.NewAutoReturnWorker(api, &interval, &batch)
	}

	bridge := &ui.Bridge{}
	controller := boardsync.New(api, bridge, bridge, boardsync.Options{
		PollInterval: cfg.Sync.Interval,
		CutoffCheck:  cfg.Sync.CutoffCheck,
		Clock:        clock,
		Location:     loc,
		Scanner:      scanner,
	})
	controller.StartSession(time.Now())

	program := tea.NewProgram(ui.New(controller, api), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	syncErr := make(chan error, 1)
	go func() {
		err := keepInSync(ctx, controller, api, cfg, bridge)
		syncErr <- err
		if err != nil {
			program.Quit()
		}
	}()

	_, runErr := program.Run()
	stop()
	if err := <-syncErr; err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("интерфейс: %w", runErr)
	}
	return nil
}

// keepInSync крутит контроллер и после утренней отсечки входит заново
func keepInSync(ctx context.Context, controller *boardsync.Controller, api *client.Client, cfg *config.Config, notifier boardsync.Notifier) error {
	lastLogin := time.Now()
	for {
		err := controller.Run(ctx)
		if !errors.Is(err, boardsync.ErrReauthRequired) {
			return err
		}
		if time.Since(lastLogin) < minReauthInterval {
			return fmt.Errorf("сервер отклоняет новую сессию: %w", err)
		}

		notifier.Notify("Сессия истекла, выполняется повторный вход...")
		if _, err := api.Login(ctx, cfg.Client.Email, cfg.Client.Password); err != nil {
			return fmt.Errorf("повторный вход: %w", err)
		}
		lastLogin = time.Now()
		controller.StartSession(lastLogin)
		logger.Info("Board: Повторный вход выполнен")
	}
}
