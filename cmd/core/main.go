package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/auth"
	"github.com/marcoraddatz/komodo/internal/credentials"
	"github.com/marcoraddatz/komodo/internal/monitor"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/permissions"
	"github.com/marcoraddatz/komodo/internal/resolver"
	"github.com/marcoraddatz/komodo/internal/store"
	"github.com/marcoraddatz/komodo/internal/ws"
)

func openStore(ctx context.Context, database string) (store.Store, error) {
	if strings.HasPrefix(database, "postgres://") || strings.HasPrefix(database, "postgresql://") {
		return store.NewPostgresStore(ctx, database)
	}
	return store.NewSQLiteStore(database)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "database", cfg.Database, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	creds, err := credentials.NewServiceFromEnv(cfg.KeyFile)
	if err != nil {
		logger.Error("failed to initialize credential encryption", "error", err)
		os.Exit(1)
	}
	logger.Info("credential encryption ready", "key_source", creds.KeySource())

	jwtClient := auth.NewJwtClient([]byte(cfg.JwtSecret), cfg.TokenExpiry, st)
	authenticator := auth.NewAuthenticator(st, jwtClient)
	local := auth.NewLocalProvider(st, jwtClient)
	var oauthProvider *auth.OAuthProvider
	if cfg.OAuth != nil {
		oauthProvider = auth.NewOAuthProvider(st, jwtClient, *cfg.OAuth)
		logger.Info("oauth login enabled", "provider", cfg.OAuth.Provider)
	}

	client := periphery.NewClient(cfg.PeripheryPasskey, cfg.PeripheryTimeout)

	hub := ws.NewHub(
		authenticator.Authenticate,
		func(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id string) bool {
			rec, err := st.GetResource(ctx, kind, id)
			if err != nil {
				return false
			}
			return permissions.CanRead(user, rec)
		},
		logger,
	)
	go hub.Run(ctx)

	core := resolver.New(st, client, creds, hub, logger)
	gateway := &resolver.Gateway{
		Resolver: core,
		Auth:     authenticator,
		JWT:      jwtClient,
		Local:    local,
		OAuth:    oauthProvider,
		Hub:      hub,
		Logger:   logger,
	}

	monitorCfg, err := monitor.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load monitor config", "error", err)
		os.Exit(1)
	}
	go monitor.New(st, client, hub, logger, monitorCfg).Run(ctx)

	// Expired sessions pile up otherwise.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := st.DeleteExpiredSessions(ctx, time.Now().UTC()); err != nil {
					logger.Error("failed to prune expired sessions", "error", err)
				}
			}
		}
	}()

	server := &http.Server{Addr: cfg.Addr, Handler: gateway.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("core listening", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("core stopped")
}
