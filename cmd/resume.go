package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bosko/config"
	"bosko/core/events"
	"bosko/logger"

	"github.com/spf13/cobra"
)

var (
	resumeUser  int64
	resumeLimit int
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Drive unfinished tracks through the remaining publication stages",
	Long: `Run every track that has both assets linked but no video yet through the pipeline.
Stages that already succeeded are skipped, so the command is safe to repeat.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		initLogger(cfg)
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to initialise", logger.ErrorField(err))
		}
		defer a.close()

		orch, err := a.orchestrator(ctx, events.Nop{})
		if err != nil {
			logger.Fatal("failed to build publication pipeline", logger.ErrorField(err))
		}
		report, err := orch.Resume(ctx, a.tracks, resumeUser, resumeLimit, cfg.WorkerPoolSize)
		if err != nil {
			logger.Error("resume interrupted", logger.ErrorField(err))
		}
		if report != nil {
			fmt.Printf("tracks: %d  completed: %d  failed: %d\n", report.Total, report.Completed, report.Failed)
		}
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().Int64VarP(&resumeUser, "user", "u", 0, "only tracks of this user id (0 for all)")
	resumeCmd.Flags().IntVarP(&resumeLimit, "limit", "n", 50, "maximum number of tracks")
}
