package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vk/modforge/internal/app"
	"github.com/vk/modforge/internal/cli"
)

// main is the entrypoint for the modforge application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Command output goes to outW, logs to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	return cli.Execute(ctx, args, outW, func(ctx context.Context, action cli.Action, cfg *app.Config) error {
		a := app.NewApp(logW, cfg)
		switch action {
		case cli.Plan:
			return a.PrintPlan(ctx, outW)
		case cli.Info:
			return a.Info(ctx, outW)
		default:
			return a.Run(ctx)
		}
	})
}
