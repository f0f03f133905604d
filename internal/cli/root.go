package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/config"
	"adaptive-view-backend/internal/model"
)

// App carries what the commands share. Config and Logger are filled in by
// the root command before any subcommand runs, unless a caller set them.
type App struct {
	ConfigPath string
	LogLevel   string

	Config *config.Config
	Logger *zap.Logger

	// IsTerminal reports whether stdout is a terminal.
	IsTerminal func() bool
}

func NewApp() *App {
	return &App{
		IsTerminal: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}
}

// NewRootCmd creates the top-level command. Without a subcommand it serves.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "adaptive-view",
		Short:         "Predicts dashboard view and filters from project statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "config file (default $ADAPTIVE_CONFIG)")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(app),
		newPredictCmd(app),
		newEngineerCmd(app),
		newEvaluateCmd(app),
		newTokenCmd(app),
	)
	return root
}

func (a *App) setup() error {
	if a.Config == nil {
		path := a.ConfigPath
		if path == "" {
			path = config.Path()
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.LogLevel != "" {
		a.Config.LogLevel = a.LogLevel
	}

	if a.Logger == nil {
		logger, err := newLogger(a.Config.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}

// registry builds the classifiers for the configured backend.
func (a *App) registry() (*model.Registry, error) {
	if a.Config.Backend == config.BackendRules {
		a.Logger.Info("Using rule-based classifiers")
		return model.Rules(), nil
	}
	return model.Load(a.Config.ModelDir, a.Logger)
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}
