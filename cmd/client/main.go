package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rocketscienceinc/mazechase-backend/internal/config"
	"github.com/rocketscienceinc/mazechase-backend/internal/ui"
	"github.com/rocketscienceinc/mazechase-backend/transport/tcp"
)

// main - is the entry point of the maze client.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()

	logFile, err := os.OpenFile(conf.Client.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		panic(fmt.Errorf("failed to open log file: %w", err))
	}
	defer logFile.Close()

	// the terminal belongs to the renderer, logs go to the file
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: config.ParseLevel(conf.LogLevel)}))

	if err = run(logger, conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logFile.Close()
		os.Exit(1)
	}
}

func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

func run(logger *slog.Logger, conf *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := tcp.NewClient(logger, conf.Client.GetAddr(), conf.Client.MaxRetries, conf.Client.RetryInterval())
	if err := client.Connect(ctx); err != nil {
		return err
	}

	defer func() {
		if err := client.Disconnect(); err != nil {
			logger.Error("failed to disconnect", "error", err)
		}
	}()

	sink := ui.NewSink()
	closed := make(chan error, 1)
	go func() {
		closed <- client.Receive(ctx, sink)
	}()

	program := tea.NewProgram(ui.NewModel(client, sink.Frames(), closed), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	sink.Close()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("client screen failed: %w", err)
	}

	return nil
}
