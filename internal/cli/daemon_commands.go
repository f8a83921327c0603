package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/ingest"
	"catalog-ingest/internal/pipeline"
	"catalog-ingest/internal/server"
)

const shutdownTimeout = 10 * time.Second

// WatchCommand creates the watch command
func WatchCommand() *cobra.Command {
	var (
		dir       string
		interval  time.Duration
		dbConnStr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process export files as they arrive in a directory",
		Long: `Poll a directory for *.json export documents and process each one as a batch.
A file is read once its size and mtime stop changing; dot-files are ignored.
Committed files move to processed/, undecodable ones to failed/. A file whose
batch fails stays in place and is retried on the next poll, until
WATCH_MAX_ATTEMPTS faults move it to failed/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, dbConnStr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if dir == "" {
				dir = rt.cfg.WatchDir
			}
			if interval == 0 {
				interval = rt.cfg.PollInterval
			}

			p := pipeline.New(rt.cfg.AllowList(), rt.logger)
			process := func(ctx context.Context, records []catalog.RawRecord) (*pipeline.Summary, error) {
				return p.Process(ctx, rt.store, records)
			}

			rt.logger.WithFields(logrus.Fields{
				"dir":        dir,
				"interval":   interval.String(),
				"categories": rt.cfg.AllowList().IDs(),
			}).Info("Watching for batch files")
			return ingest.NewWatcher(dir, interval, process, rt.logger).
				WithMaxAttempts(rt.cfg.WatchMaxAttempts).
				Run(ctx)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to watch (overrides WATCH_DIR)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (overrides WATCH_INTERVAL)")
	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	return cmd
}

// ServeCommand creates the serve command
func ServeCommand() *cobra.Command {
	var (
		addr      string
		dbConnStr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept export documents over HTTP",
		Long: `Start an HTTP server. POST /api/batches takes one export document and
processes it as a batch; GET /health reports liveness.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, dbConnStr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr == "" {
				addr = rt.cfg.HTTPAddr
			}

			p := pipeline.New(rt.cfg.AllowList(), rt.logger)
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(p, rt.store, rt.logger, rt.cfg.MaxBodyBytes),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				rt.logger.WithFields(logrus.Fields{
					"addr":       addr,
					"categories": rt.cfg.AllowList().IDs(),
				}).Info("Starting HTTP server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			rt.logger.Info("Shutting down HTTP server")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	return cmd
}

// RunWatch is the CLI wrapper function for watch command
func RunWatch(ctx context.Context, args []string) error {
	cmd := WatchCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// RunServe is the CLI wrapper function for serve command
func RunServe(ctx context.Context, args []string) error {
	cmd := ServeCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
