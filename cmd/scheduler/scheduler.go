// Package scheduler implements cron-driven recurring scrape runs.
package scheduler

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	cmdcommon "github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/common"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/pipeline"
)

// Cmd represents the scheduler command.
var Cmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled scrapes of the configured seed URLs",
	Long: `Starts a cron scheduler that runs the full pipeline for every
configured seed URL on the configured schedule. Runs until interrupted.`,
	RunE: runScheduler,
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := cmdcommon.NewDeps(ctx)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	cfg := deps.Config.Scheduler
	if len(cfg.SeedURLs) == 0 {
		return fmt.Errorf("no scheduler seed URLs configured")
	}

	c := cron.New()

	_, err = c.AddFunc(cfg.Spec, func() {
		runAll(ctx, deps)
	})
	if err != nil {
		return fmt.Errorf("register cron schedule %q: %w", cfg.Spec, err)
	}

	deps.Logger.Info("scheduler started",
		logger.String("spec", cfg.Spec),
		logger.Int("seed_urls", len(cfg.SeedURLs)),
	)

	c.Start()
	<-ctx.Done()

	deps.Logger.Info("shutdown signal received")

	// Let an in-flight tick finish before exiting.
	<-c.Stop().Done()

	deps.Logger.Info("scheduler stopped")

	return nil
}

// runAll runs the pipeline for every configured seed URL sequentially. Each
// run is bounded by the configured pipeline timeout; a failing seed does not
// stop the remaining ones.
func runAll(ctx context.Context, deps *cmdcommon.Deps) {
	cfg := deps.Config.Scheduler

	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = deps.Config.Crawler.MaxDepth
	}

	for _, seedURL := range cfg.SeedURLs {
		if ctx.Err() != nil {
			return
		}

		runCtx, cancel := context.WithTimeout(ctx, cfg.PipelineTimeout)

		result := deps.Pipeline.Run(runCtx, seedURL, pipeline.Options{
			MaxDepth: depth,
			Category: domain.CategoryAutoDetect,
		})

		cancel()

		deps.Logger.Info("scheduled run finished",
			logger.String("run_id", result.RunID),
			logger.String("seed_url", seedURL),
			logger.Bool("success", result.Success),
			logger.Int("errors", len(result.Errors)),
		)
	}
}
