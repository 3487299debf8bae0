package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solatis/ducktest/internal/core/api"
	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/core/config"
	"github.com/solatis/ducktest/internal/core/db"
	"github.com/solatis/ducktest/internal/core/server"
	"github.com/solatis/ducktest/internal/core/tracing"
	"github.com/solatis/ducktest/internal/duck"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC runtime API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 12345, "gRPC server port")
	serveCmd.Flags().Bool("no-auth", false, "accept unauthenticated requests (local experiments only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}
	noAuth, _ := cmd.Flags().GetBool("no-auth")

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RequireCurrent(database); err != nil {
		return err
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	store, err := db.NewStore(queries)
	if err != nil {
		return err
	}

	var serverOpts []server.Option
	if !noAuth {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set DT_HMAC_SECRET environment variable or pass --no-auth)")
		}
		serverOpts = append(serverOpts, server.WithAuthenticator(auth.NewAuthenticator(secrets, queries, logger)))
	}

	provider, err := tracing.NewProvider(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()
	if provider.Enabled() {
		serverOpts = append(serverOpts, server.WithTracer(provider.Tracer()))
	}
	serverOpts = append(serverOpts, server.WithLogger(logger))

	module, err := duck.NewModule()
	if err != nil {
		return fmt.Errorf("failed to bind module: %w", err)
	}

	service, err := api.NewRuntimeService(module, store, cfg,
		api.WithLogger(logger),
		api.WithTracer(provider.Tracer()),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer service.Close()

	grpcServer, err := server.NewGRPCServer(cfg, service, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting ducktest runtime API",
		"version", Version,
		"host", cfg.Host,
		"port", cfg.Port,
		"auth", !noAuth,
		"tracing", cfg.Tracing.Exporter,
	)
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}
