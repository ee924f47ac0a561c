package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rocketscienceinc/mazechase-backend/internal/config"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
	"github.com/rocketscienceinc/mazechase-backend/internal/repository"
	"github.com/rocketscienceinc/mazechase-backend/internal/repository/storage"
	"github.com/rocketscienceinc/mazechase-backend/internal/service"
	"github.com/rocketscienceinc/mazechase-backend/internal/usecase"
	"github.com/rocketscienceinc/mazechase-backend/transport/rest"
	"github.com/rocketscienceinc/mazechase-backend/transport/tcp"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the maze server until the operator stops it or a signal arrives.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sessionRepo, closeRepo, err := newSessionRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeRepo(); err != nil {
			log.Error("could not close session storage", "error", err)
		}
	}()

	botService := service.NewBotService(nil)

	newSession := func(conn net.Conn) tcp.GameSession {
		return usecase.NewGameSession(logger, conn, entity.NewDefaultMaze(), botService, sessionRepo, conf.Server.RoundDuration())
	}

	tcpServer := tcp.NewServer(logger, newSession, playAgainDecision(conf.Server.PlayAgain, os.Stdin, os.Stdout), conf.Server.ReadBuffer)

	// a busy port is fatal, no retry
	if err = tcpServer.Listen(conf.Server.GetAddr()); err != nil {
		return err
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	if conf.HTTPPort != "" {
		go func() {
			log.Info("Starting HTTP server", "port", conf.HTTPPort)
			if httpErr := rest.Start(ctx, logger, conf.HTTPPort, sessionRepo); httpErr != nil {
				log.Error("HTTP server error", "error", httpErr)
				httpErrCh <- httpErr
			}
		}()
	}

	// run game server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting game server", "addr", conf.Server.GetAddr(), "round", conf.Server.RoundDuration())
		tcpErrCh <- tcpServer.Serve(ctx)
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-tcpErrCh:
		if err != nil {
			return fmt.Errorf("game server error: %w", err)
		}
		log.Info("Game server stopped")
		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func newSessionRepository(ctx context.Context, conf *config.Config) (repository.SessionRepository, func() error, error) {
	if !conf.Redis.Enabled {
		return repository.NewMemorySessionRepository(), func() error { return nil }, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return repository.NewSessionRepository(redisStorage), redisStorage.Close, nil
}

// playAgainDecision - builds the operator's "serve another client?" decision.
func playAgainDecision(mode string, in io.Reader, out io.Writer) tcp.ContinueFunc {
	switch mode {
	case config.PlayAgainAlways:
		return func() bool { return true }
	case config.PlayAgainNever:
		return func() bool { return false }
	}

	reader := bufio.NewReader(in)

	return func() bool {
		fmt.Fprint(out, "Play again? (y/n): ")

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}

		return strings.EqualFold(strings.TrimSpace(answer), "y")
	}
}
