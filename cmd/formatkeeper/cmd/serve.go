package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/formatkeeper/internal/check"
	"github.com/solatis/formatkeeper/internal/core/api"
	"github.com/solatis/formatkeeper/internal/core/auth"
	"github.com/solatis/formatkeeper/internal/core/config"
	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC check service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().StringP("rules", "r", "", "rule file (default check.rules_file)")
	serveCmd.Flags().Bool("no-auth", false, "serve without API key authentication")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("rules") {
		rulesFile, _ := cmd.Flags().GetString("rules")
		cfg.Check.RulesFile = rulesFile
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	noAuth, _ := cmd.Flags().GetBool("no-auth")

	repo, err := loadRepository(cfg.Check.RulesFile, cfg.Check.DefaultStyle)
	if err != nil {
		return err
	}
	checker := check.New(repo, check.Options{Tolerances: &cfg.Check.Tolerances, Logger: logger})

	var store *db.Store
	if cfg.DB.URL != "" {
		store, err = db.OpenStore(cfg.DB.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
	}

	var authenticator *auth.Authenticator
	if !noAuth {
		if store == nil {
			return fmt.Errorf("API keys need a database: set --db-url or pass --no-auth")
		}
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return auth.ErrNoSecrets
		}
		authenticator = auth.NewAuthenticator(secrets, store, logger)
	}

	// A nil *db.Store must not become a non-nil interface.
	var runs api.RunStore
	if store != nil {
		runs = store
	}
	service, err := api.NewCheckService(checker, runs, api.Options{
		MaxDocumentBytes: cfg.Server.MaxDocumentBytes(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting formatkeeper check service",
		"version", Version,
		"addr", cfg.Server.Addr(),
		"rules", cfg.Check.RulesFile,
		"history", store != nil,
		"auth", authenticator != nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}
