package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/classifier"
	"github.com/lewtec/triador/internal/config"
	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/registry"
	"github.com/lewtec/triador/internal/repository"
	"github.com/lewtec/triador/internal/server"
	"github.com/lewtec/triador/internal/session"
	"github.com/lewtec/triador/internal/stack"
	"github.com/lewtec/triador/internal/storage"
	"github.com/lewtec/triador/internal/triage"
)

// serveCmd runs the triage HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the triage server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		engine, arbiter, ledger, cleanup, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := server.New(arbiter, engine, ledger, logger)
		logger.Info("listening",
			zap.String("addr", cfg.Listen),
			zap.String("working_dir", cfg.WorkingDir))
		return http.ListenAndServe(cfg.Listen, srv.Handler())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfigAndLogger(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// buildEngine assembles the triage engine from configuration. The returned
// cleanup closes the ledger database.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*triage.Controller, *session.Arbiter, domain.LedgerRepository, func(), error) {
	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cleanup := func() { db.Close() }

	store := storage.NewOS(cfg.WorkingDir, cfg.Extensions)
	if err := store.EnsureLayout(); err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	actions := stack.New()
	folders := registry.New(store, actions, logger)
	ledger := repository.NewLedgerRepository(db)

	var model domain.Classifier
	if cfg.Classifier.Endpoint != "" {
		model = classifier.NewRemote(cfg.Classifier.Endpoint, logger)
	} else {
		logger.Warn("no classifier endpoint configured, using stand-in scorer")
		model = classifier.NewUniform(func(ctx context.Context) ([]string, error) {
			return folders.Names()
		}, time.Now().UnixNano(), logger)
	}

	arbiter := session.NewArbiter(cfg.HeartbeatTimeout.Std(), logger)
	engine := triage.NewController(store, actions, folders, ledger, model, logger)
	return engine, arbiter, ledger, cleanup, nil
}
