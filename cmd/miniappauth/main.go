package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Initialize context that cancelled on SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:], os.Stdout); err != nil {
		slog.Error("miniappauth failed", "error", err.Error())
		cancel()
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	getenv func(string) string,
	getwd func() (string, error),
	args []string,
	stdout io.Writer,
) error {
	c := NewConfig()

	if err := c.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("error while loading .env. Err: %w", err)
	}
	if err := c.LoadEnv(getenv); err != nil {
		return err
	}
	cmd, err := c.ParseFlags(args)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	app, err := NewApp(ctx, c, stdout)
	if err != nil {
		return err
	}
	defer app.Close() // nolint:errcheck

	return app.Run(ctx, cmd)
}
