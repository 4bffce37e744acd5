package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/watchwherelive/internal/curation"
	"github.com/pfrederiksen/watchwherelive/internal/ingest"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr        string
	flagCron        string
	flagScrapeFirst bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the curation API and run scheduled scrapes",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides api.addr)")
	cmd.Flags().StringVar(&flagCron, "cron", "", "Scrape schedule in cron syntax (overrides schedule.cron)")
	cmd.Flags().BoolVar(&flagScrapeFirst, "scrape-on-start", false, "Scrape every enabled league once at startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.API.Addr
	if flagAddr != "" {
		addr = flagAddr
	}
	expr := a.cfg.Schedule.Cron
	if flagCron != "" {
		expr = flagCron
	}

	svc := curation.NewService(a.store, a.cfg, curation.WithMetrics(a.metrics), curation.WithLogger(a.log))
	handler := curation.NewHandler(svc, a.metrics, a.log)

	scrape := func() {
		jobs, err := ingest.Jobs(a.cfg, nil)
		if err != nil {
			a.log.Error("Failed to build scrape jobs", nil, err)
			return
		}
		runner := ingest.FromConfig(a.store, a.cfg, ingest.WithMetrics(a.metrics), ingest.WithLogger(a.log))
		runner.RunAll(ctx, jobs)

		// new games pick up the curator's saved rules
		if _, err := svc.ApplyRules(ctx, ""); err != nil {
			a.log.Error("Failed to apply DMA rules", nil, err)
		}
	}

	// one job instance for cron ticks and the startup run, so runs never overlap
	job := scrapeJob(scrape, a.log)

	if expr != "" {
		c, err := newScheduler(a.cfg.Schedule.Timezone, expr, job, a.log)
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		a.log.Info("Scrape scheduler started", logger.Fields{"cron": expr, "timezone": a.cfg.Schedule.Timezone})
	}
	if flagScrapeFirst {
		go job.Run()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(a.cfg.API),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Curation API listening", logger.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving API: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scrapeJob wraps fn so a start while a previous run is still going is skipped
func scrapeJob(fn func(), log *logger.Logger) cron.Job {
	return cron.NewChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Logrus()))).Then(cron.FuncJob(fn))
}

// newScheduler builds a cron scheduler running job on expr in the named timezone.
// An unknown timezone falls back to UTC.
func newScheduler(timezone, expr string, job cron.Job, log *logger.Logger) (*cron.Cron, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn("Unknown timezone, scheduling in UTC", logger.Fields{"timezone": timezone})
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddJob(expr, job); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return c, nil
}
