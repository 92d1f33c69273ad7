// Command fillwatch watches a Hyperliquid account for new fills and forwards
// them to Telegram. It loads and validates configuration, wires dependencies,
// installs signal handling and runs the configured mode.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/alanyoungcy/fillwatch/internal/app"
	"github.com/alanyoungcy/fillwatch/internal/config"
	"github.com/alanyoungcy/fillwatch/internal/crypto"
)

func main() {
	configPath := pflag.String("config", "config.toml", "path to configuration file")
	encryptOut := pflag.String("encrypt-secret", "", "read a bot token from stdin, encrypt it to this path and exit")
	password := pflag.String("password", "", "password for --encrypt-secret (default: $FILLWATCH_TOKEN_PASSWORD)")
	pflag.Parse()

	if *encryptOut != "" {
		if err := encryptSecret(*encryptOut, *password); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "encrypted secret written to %s\n", *encryptOut)
		return
	}

	logger := newLogger("info")
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redacted := config.RedactedConfig(cfg)
	logger.Info("fillwatch starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", redacted),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			application.Close()
			os.Exit(1)
		}
	}

	logger.Info("fillwatch stopped")
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

// encryptSecret reads one line from stdin and writes it encrypted to path.
func encryptSecret(path, password string) error {
	if password == "" {
		password = os.Getenv("FILLWATCH_TOKEN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required (--password or FILLWATCH_TOKEN_PASSWORD)")
	}

	fmt.Fprint(os.Stderr, "secret: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read secret: %w", err)
	}

	blob, err := crypto.EncryptSecret(line, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
