package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spinonoir/PlantOS/internal/config"
	"github.com/spinonoir/PlantOS/internal/logging"
	"github.com/spinonoir/PlantOS/internal/remote"
	"github.com/spinonoir/PlantOS/internal/scheduler"
	"github.com/spinonoir/PlantOS/internal/state"
	"github.com/spinonoir/PlantOS/internal/storage"
	"github.com/spinonoir/PlantOS/internal/syncer"
	"github.com/spinonoir/PlantOS/internal/update"
)

// env carries what every subcommand needs once flags and config are
// resolved.
type env struct {
	cfg    config.RuntimeConfig
	logger *slog.Logger
	closer io.Closer
}

func (r *env) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "plantos failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	root := &cobra.Command{
		Use:           "plantos",
		Short:         "Local-first plant care tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			rt, err := loadRuntime(v, configPath, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runTUI(rt)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./plantos.yaml or ~/.config/plantos/plantos.yaml)")
	flags.String("api-url", "", "plant service base URL")
	flags.String("db", "", "local SQLite database path")
	flags.String("log-file", "", "log file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	bindFlag(v, config.KeyAPIURL, flags.Lookup("api-url"))
	bindFlag(v, config.KeyDBPath, flags.Lookup("db"))
	bindFlag(v, config.KeyLogFile, flags.Lookup("log-file"))
	bindFlag(v, config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newSyncCmd(v, &configPath),
		newPlantsCmd(v, &configPath),
		newMigrateCmd(v, &configPath),
		newDevServerCmd(v, &configPath),
	)
	return root
}

func loadRuntime(v *viper.Viper, configPath string, logToStderr bool) (*env, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	opts := logging.Options{File: cfg.LogFile, Level: cfg.LogLevel}
	if logToStderr {
		opts.File = ""
	}
	logger, closer := logging.New(opts)
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

func openRemote(rt *env) *remote.Client {
	return remote.NewClient(rt.cfg.APIURL,
		remote.WithTimeout(rt.cfg.RequestTimeout),
		remote.WithLogger(rt.logger.With("component", "remote")))
}

func runTUI(rt *env) error {
	repo, err := storage.OpenSQLite(rt.cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	client := openRemote(rt)
	engine := scheduler.NewEngine(rt.cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	coord, err := state.New(state.Deps{
		Store:       repo,
		Remote:      client,
		Syncer:      syncer.New(client, repo, rt.logger),
		Reminder:    engine,
		Logger:      rt.logger,
		HorizonDays: rt.cfg.HorizonDays,
	})
	if err != nil {
		return err
	}

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if rt.cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}
	rt.logger.Info("starting", "api_url", client.BaseURL(), "db_path", rt.cfg.DBPath)

	m := update.NewModel(update.Options{
		Coordinator:      coord,
		Reminders:        engine.C(),
		Notifier:         notifier,
		DesktopEnabled:   rt.cfg.DesktopNotifications,
		DueWindowMinutes: rt.cfg.DueWindowMinutes,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
