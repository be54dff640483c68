package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/sathiyaIbe/websurfx/internal/logs"
	"github.com/sathiyaIbe/websurfx/internal/server"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	logs.InitStdoutLogs(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := server.Run(ctx, os.Args[1:])
	if err == nil {
		slog.Info("Websurfx server stopped")
		return
	}

	var startupErr *server.StartupError
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.As(err, &startupErr) && startupErr.Stage == server.Configured:
		fmt.Fprintf(os.Stderr, "websurfx: %v\n", startupErr.Err)
		os.Exit(2)
	default:
		slog.Error("Websurfx server shutdown with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
