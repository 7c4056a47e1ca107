// Command kbsim serves a Kanboard-compatible JSON-RPC API backed by SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ldap2kanboard/internal/server"
	"ldap2kanboard/internal/storage/sqlite"
	"ldap2kanboard/internal/util"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("KBSIM_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("KBSIM_DB_PATH", "data/kbsim.db"), "Path to sqlite database file")
	userFlag := flag.String("user", util.EnvOrDefault("KBSIM_USER", "jsonrpc"), "Basic auth user")
	passwordFlag := flag.String("password", util.EnvOrDefault("KBSIM_PASSWORD", ""), "Basic auth password, empty disables auth")
	seedFlag := flag.String("seed", util.EnvOrDefault("KBSIM_SEED", ""), "YAML file with users and groups to create")
	shutdownFlag := flag.Duration("shutdown-timeout", util.EnvDuration("KBSIM_SHUTDOWN_TIMEOUT", 5*time.Second), "Grace period for open requests on shutdown")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if *seedFlag != "" {
		seed, err := sqlite.LoadSeed(*seedFlag)
		if err == nil {
			err = store.ApplySeed(context.Background(), seed)
		}
		if err != nil {
			logger.Error("unable to apply seed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var accounts gin.Accounts
	if *passwordFlag != "" {
		accounts = gin.Accounts{*userFlag: *passwordFlag}
	} else {
		logger.Warn("basic auth disabled")
	}

	srv := server.New(store, logger, accounts)

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", *dbFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), *shutdownFlag)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
