package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers/local"
	"github.com/agentx/chatwidget/internal/render"
	"github.com/agentx/chatwidget/internal/repository"
	"github.com/agentx/chatwidget/internal/services"
	"github.com/agentx/chatwidget/internal/storage"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries the global flags and what PersistentPreRunE opened
type app struct {
	configPath string
	userID     string
	appID      string
	modelID    string
	verbose    bool

	cfg    *config.Config
	logger *logrus.Logger
	store  *storage.Store
}

// NewRootCommand builds the chatctl command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "chatctl",
		Short: "Chat with configured models from the terminal",
		Long: `chatctl drives the chat widget engine from a terminal: it streams replies,
edits transcripts and manages the stored sessions of a user.

Configuration is read from config.json (or --config) exactly like the server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if skipStore(cmd) {
				return nil
			}
			return a.openStore()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./config.json)")
	rootCmd.PersistentFlags().StringVarP(&a.userID, "user", "u", "", "user id (default from config)")
	rootCmd.PersistentFlags().StringVarP(&a.appID, "app", "a", "", "app id")
	rootCmd.PersistentFlags().StringVarP(&a.modelID, "model", "m", "", "model id (default: first configured model)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newSessionsCmd(a),
		newShowCmd(a),
		newSendCmd(a),
		newRegenerateCmd(a),
		newDeleteMessageCmd(a),
		newDeleteSessionCmd(a),
		newRenameCmd(a),
		newCopyCmd(a),
		newMigrateCmd(a),
	)
	return rootCmd
}

// Execute runs chatctl with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// run wraps a command body so the store is closed even when it fails.
// PersistentPostRun only runs after a successful RunE.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a.store == nil {
				return
			}
			if err := a.store.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close store: %v\n", err)
			}
			a.store = nil
		}()
		return fn(cmd, args)
	}
}

// skipStore reports whether cmd works without the session store.
func skipStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "migrate":
			return true
		}
	}
	return false
}

func (a *app) loadConfig(stderr io.Writer) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logCfg := a.cfg.Log
	if a.verbose {
		logCfg.Level = "debug"
	} else if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	a.logger = logging.NewWithOutput(logCfg, stderr)

	if a.userID == "" {
		a.userID = a.cfg.DefaultUser
	}
	if a.appID != "" {
		if _, ok := a.cfg.App(a.appID); !ok {
			return fmt.Errorf("%w: %s", models.ErrUnknownApp, a.appID)
		}
	}
	if a.modelID != "" {
		if _, ok := a.cfg.Model(a.modelID); !ok {
			return fmt.Errorf("%w: %s", models.ErrUnknownModel, a.modelID)
		}
	}
	return nil
}

func (a *app) openStore() error {
	store, err := storage.Open(a.cfg.Database, repository.Defaults{
		UserID: a.cfg.DefaultUser,
		Model:  a.cfg.DefaultModel().ID,
	}, logging.Component(a.logger, "store"))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.store = store
	return nil
}

// controller builds and initialises a controller for one command. Events
// go to term; destructive actions ask confirm.
func (a *app) controller(ctx context.Context, term *terminal, confirm services.Confirmer) (*services.Controller, error) {
	client := local.NewOpenAICompatibleClient(render.Plain{}, local.Options{
		ImagePrompt: a.cfg.Stream.ImagePrompt,
		Timeout:     a.cfg.Stream.Timeout,
	}, logging.Component(a.logger, "completion"))

	ctrl, err := services.NewController(services.ControllerConfig{
		InstanceID: "chatctl",
		UserID:     a.userID,
		AppID:      a.appID,
		ModelID:    a.modelID,
		Apps:       services.AppsFromConfig(a.cfg.Apps),
	}, services.Dependencies{
		Store:     a.store,
		Client:    client,
		Models:    services.NewModelRegistry(a.cfg.Models),
		Renderer:  render.Plain{},
		Confirmer: confirm,
		Events:    term,
		Logger:    logging.Component(a.logger, "controller"),
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Init(ctx); err != nil {
		ctrl.Teardown()
		return nil, err
	}
	return ctrl, nil
}

// sessionController is controller with sessionID selected.
func (a *app) sessionController(ctx context.Context, term *terminal, confirm services.Confirmer, sessionID string) (*services.Controller, error) {
	ctrl, err := a.controller(ctx, term, confirm)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SelectSession(sessionID); err != nil {
		ctrl.Teardown()
		return nil, err
	}
	return ctrl, nil
}
