package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/analytics"
	"adaptive-view-backend/internal/api"
	"adaptive-view-backend/internal/auth"
	"adaptive-view-backend/internal/db"
	"adaptive-view-backend/internal/prediction"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serve(cmd.Context())
		},
	}
}

// serve loads the registry, then opens the optional audit log, then
// listens until SIGINT or SIGTERM.
func (a *App) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.Config, a.Logger

	registry, err := a.registry()
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}

	var predOpts []prediction.Option
	var srvOpts []api.ServerOption

	if cfg.AuditDriver != "" {
		store, err := db.Connect(cfg.AuditDriver, cfg.AuditDSN())
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer store.Close()
		logger.Info("Audit log enabled", zap.String("driver", cfg.AuditDriver))

		rc := analytics.NewRecorder(store, logger)
		defer rc.Close()
		predOpts = append(predOpts, prediction.WithRecorder(rc))
		srvOpts = append(srvOpts, api.WithStats(rc))

		if cfg.RetentionDays > 0 {
			pruner, err := analytics.NewPruner(rc, cfg.Retention(), cfg.PruneSchedule, logger)
			if err != nil {
				return err
			}
			pruner.Start()
			defer pruner.Stop()
		} else {
			logger.Info("Audit log pruning disabled")
		}
	}

	if cfg.JWTSecret != "" {
		srvOpts = append(srvOpts, api.WithAuth(auth.New([]byte(cfg.JWTSecret), logger)))
		logger.Info("Bearer tokens required on /predict")
	}

	p := prediction.New(registry, logger, predOpts...)
	srv := api.NewServer(p, registry, logger, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}, srvOpts...)

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
