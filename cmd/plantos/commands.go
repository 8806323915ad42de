package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/remote/fakeremote"
	"github.com/spinonoir/PlantOS/internal/storage"
	"github.com/spinonoir/PlantOS/internal/syncer"
)

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

func newSyncCmd(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull plants and tasks from the service into the local store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(v, *configPath, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			repo, err := storage.OpenSQLite(rt.cfg.DBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			report := syncer.New(openRemote(rt), repo, rt.logger).Pull(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plants: %d\ntasks: %d\n", report.Plants, report.Tasks)
			for _, f := range report.Failures {
				fmt.Fprintf(out, "failure: %s\n", f)
			}
			if !report.OK() {
				return fmt.Errorf("sync finished with %d failure(s)", len(report.Failures))
			}
			return nil
		},
	}
}

func newPlantsCmd(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plants",
		Short: "List plants cached in the local store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(v, *configPath, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			repo, err := storage.OpenSQLite(rt.cfg.DBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			plants, err := repo.ListPlants(cmd.Context())
			if err != nil {
				return err
			}
			if len(plants) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no cached plants; run 'plantos sync'")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSPECIES\tLIGHT\tWATER\tFEED\tTAGS")
			for _, p := range plants {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dd\t%dd\t%s\n",
					p.ID, p.Name, p.Species, p.LightLevel, p.WateringIntervalDays, p.FeedingIntervalDays, strings.Join(p.Tags, ","))
			}
			return tw.Flush()
		},
	}
}

func newMigrateCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local database schema",
	}
	run := func(apply func(*sql.DB) error, verb string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(v, *configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			db, err := storage.OpenDB(rt.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := apply(db); err != nil {
				return fmt.Errorf("migrate %s: %w", verb, err)
			}
			version, err := storage.SchemaVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", RunE: run(storage.MigrateUp, "up")},
		&cobra.Command{Use: "down", Short: "Revert all migrations", RunE: run(storage.MigrateDown, "down")},
	)
	return cmd
}

func newDevServerCmd(v *viper.Viper, configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Serve an in-memory plant service for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(v, *configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := fakeremote.New(fakeremote.WithLogger(rt.logger))
			if seed {
				seedDemo(srv, time.Now().UTC())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpSrv := &http.Server{Addr: rt.cfg.DevAddr, Handler: srv, ReadHeaderTimeout: 5 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			rt.logger.Info("dev server listening", "addr", rt.cfg.DevAddr)
			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", rt.cfg.DevAddr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "start with demo plants")
	return cmd
}

func seedDemo(srv *fakeremote.Server, now time.Time) {
	fig := model.Plant{
		ID: "plant_demofig1", Name: "Fig", Species: "Ficus lyrata", LightLevel: model.LightHigh,
		WateringIntervalDays: 7, FeedingIntervalDays: 30, RemindersEnabled: true,
		Notes: "Rotate weekly. Keep away from drafts.", Tags: []string{"living-room"},
		CreatedAt: now, UpdatedAt: now,
	}
	pothos := model.Plant{
		ID: "plant_demopth1", Name: "Pothos", LightLevel: model.LightLow,
		WateringIntervalDays: 10, FeedingIntervalDays: 45, RemindersEnabled: true,
		Tags: []string{}, CreatedAt: now, UpdatedAt: now,
	}
	for _, p := range []model.Plant{fig, pothos} {
		srv.Seed(p,
			demoTask(p, model.SignalWatering, p.WateringIntervalDays, now),
			demoTask(p, model.SignalFeeding, p.FeedingIntervalDays, now),
		)
	}
}

func demoTask(p model.Plant, signal string, cadence int, now time.Time) model.CareTask {
	return model.CareTask{
		ID:          "task_" + strings.TrimPrefix(p.ID, "plant_") + "_" + signal[:4],
		PlantID:     p.ID,
		Signal:      signal,
		CadenceDays: cadence,
		NextDueAt:   now.Add(time.Duration(cadence) * 24 * time.Hour),
		Priority:    model.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
