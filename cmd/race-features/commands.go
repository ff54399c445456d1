package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-features/internal/classifier"
	"github.com/yourusername/race-features/internal/entitystore"
	"github.com/yourusername/race-features/internal/export"
	"github.com/yourusername/race-features/internal/health"
	"github.com/yourusername/race-features/internal/metrics"
	"github.com/yourusername/race-features/internal/scheduler"
	"github.com/yourusername/race-features/internal/training"
	"github.com/yourusername/race-features/internal/transform"
)

var (
	buildOut      string
	buildDescribe bool
	buildForce    bool

	trainGrid  bool
	trainForce bool

	resultsModel  string
	resultsMetric string
	resultsTop    int

	scheduleGrid       bool
	scheduleHealthAddr string
)

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Write the feature table to a .csv or .xlsx file")
	buildCmd.Flags().BoolVar(&buildDescribe, "describe", false, "Print summary statistics of the numeric features")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Recompute feature columns that already exist")

	trainCmd.Flags().BoolVar(&trainGrid, "grid", false, "Train every combination of model.grid over model.params")
	trainCmd.Flags().BoolVar(&trainForce, "force", false, "Retrain parameter sets already in the results log")

	resultsCmd.Flags().StringVarP(&resultsModel, "model", "m", "", "Classifier type (defaults to model.type)")
	resultsCmd.Flags().StringVar(&resultsMetric, "metric", classifier.ROCAUC, "Test score to rank by")
	resultsCmd.Flags().IntVarP(&resultsTop, "top", "n", 10, "Number of results to show, 0 for all")

	scheduleCmd.Flags().BoolVar(&scheduleGrid, "grid", false, "Train the full grid on every run")
	scheduleCmd.Flags().StringVar(&scheduleHealthAddr, "health-addr", ":8080", "Address to serve /health, /ready and /metrics on, empty to disable")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the feature table",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, closeDB, err := newRunner(cmd.Context())
		if err != nil {
			return finish("build", err)
		}
		defer closeDB()

		table, err := runner.Build(cmd.Context(), buildForce)
		if err != nil {
			return finish("build", err)
		}
		appLog.WithFields(logrus.Fields{
			"rows":    table.NumRows(),
			"columns": table.NumColumns(),
		}).Info("Feature table built")

		if buildDescribe {
			summaries := transform.Describe(table, cfg.Transform.ExcludedColumns...)
			if err := export.WriteCSV(os.Stdout, export.SummaryTable(summaries)); err != nil {
				return finish("build", err)
			}
		}
		if buildOut != "" {
			if err := export.WriteFile(buildOut, table); err != nil {
				return finish("build", err)
			}
			appLog.Infof("Features written to %s", buildOut)
		}
		return finish("build", nil)
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build features, then train and score the configured classifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, closeDB, err := newRunner(cmd.Context())
		if err != nil {
			return finish("train", err)
		}
		defer closeDB()

		outcomes, err := runner.Run(cmd.Context(), training.RunOptions{Grid: trainGrid, Force: trainForce})
		if err != nil {
			return finish("train", err)
		}
		printOutcomes(outcomes)
		return finish("train", nil)
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List logged classifier results, best first",
	RunE: func(cmd *cobra.Command, args []string) error {
		model := resultsModel
		if model == "" {
			model = cfg.Model.Type
		}
		results, err := classifier.LoadResults(cfg.Model.ResultsDir, model)
		if err != nil {
			return err
		}
		ranked := classifier.Rank(results, resultsMetric)
		if len(ranked) == 0 {
			fmt.Printf("No %s results with %s in %s\n", model, resultsMetric, classifier.ResultsPath(cfg.Model.ResultsDir, model))
			return nil
		}
		if resultsTop > 0 && len(ranked) > resultsTop {
			ranked = ranked[:resultsTop]
		}

		fmt.Printf("%-12s  %-10s  %-10s  %s\n", "HASH", "TEST", "TRAIN", "PARAMS")
		for _, r := range ranked {
			fmt.Printf("%-12s  %-10.4f  %-10.4f  %v\n",
				shortHash(r.Hash), r.ScoresTest[resultsMetric], r.ScoresTrain[resultsMetric], r.Params)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Retrain on the schedule.retrain cron expression until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Schedule.Retrain == "" {
			return fmt.Errorf("schedule.retrain is not configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, db, err := openStore(ctx)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		runner := training.NewRunner(cfg, store, pipeLog)

		s := scheduler.NewScheduler(appLog, 4*time.Hour)
		err = s.Schedule("retrain", cfg.Schedule.Retrain, func(jobCtx context.Context) error {
			// every run reads fresh tables
			if cached, ok := store.(*entitystore.CachedStore); ok {
				cached.Invalidate()
			}
			outcomes, err := runner.Run(jobCtx, training.RunOptions{Grid: scheduleGrid})
			if err == nil {
				printOutcomes(outcomes)
			}
			pushMetrics()
			return err
		})
		if err != nil {
			return err
		}
		if err := s.Start(); err != nil {
			return err
		}

		var server *health.Server
		if scheduleHealthAddr != "" {
			server = health.NewServer(health.Config{
				ServiceName: "race-features",
				Version:     Version,
				Addr:        scheduleHealthAddr,
				Logger:      appLog,
				Metrics:     metrics.Handler(),
			})
			if db != nil {
				server.AddCheck("database", db.Ping)
			}
			server.AddCheck("scheduler", func(context.Context) error {
				if !s.IsRunning() {
					return fmt.Errorf("scheduler stopped")
				}
				return nil
			})
			server.Start()
		}

		appLog.WithField("next_run", s.NextRun()).Info("Retraining scheduled")
		<-ctx.Done()
		appLog.Info("Shutdown signal received")

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				appLog.WithError(err).Warn("Health server shutdown failed")
			}
		}
		return s.Stop()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("race-features %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func printOutcomes(outcomes []training.Outcome) {
	for _, o := range outcomes {
		if o.Skipped {
			fmt.Printf("%s  skipped (already in results log)  %v\n", shortHash(o.Hash), o.Params)
			continue
		}
		fmt.Printf("%s  %s=%.4f  %s=%.4f  %v\n", shortHash(o.Hash),
			classifier.ROCAUC, o.ScoresTest[classifier.ROCAUC],
			classifier.LogLoss, o.ScoresTest[classifier.LogLoss], o.Params)
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
