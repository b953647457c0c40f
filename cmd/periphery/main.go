package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcoraddatz/komodo/internal/agent"
	"gopkg.in/yaml.v3"
)

// Config is the periphery daemon's yaml configuration.
type Config struct {
	Addr    string `yaml:"addr"`
	Passkey string `yaml:"passkey"`
	RootDir string `yaml:"root_dir"`
}

func loadConfig() (Config, error) {
	cfg := Config{
		Addr:    ":9121",
		RootDir: ".komodo-periphery",
	}

	path := os.Getenv("PERIPHERY_CONFIG")
	if path == "" {
		path = "periphery.config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if value := os.Getenv("PERIPHERY_ADDR"); value != "" {
		cfg.Addr = value
	}
	if value := os.Getenv("PERIPHERY_PASSKEY"); value != "" {
		cfg.Passkey = value
	}
	if value := os.Getenv("PERIPHERY_ROOT_DIR"); value != "" {
		cfg.RootDir = value
	}
	return cfg, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Passkey == "" {
		logger.Warn("running without a passkey, any caller can control this agent")
	}
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		logger.Error("failed to create root dir", "dir", cfg.RootDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler := agent.NewServer(cfg.Passkey, cfg.RootDir, logger)
	server := &http.Server{Addr: cfg.Addr, Handler: handler.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("periphery listening", "addr", cfg.Addr, "version", agent.Version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("periphery stopped")
}
