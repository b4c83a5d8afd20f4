package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxury-yacht/driftcheck/backend/api"
	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/internal/parallel"
)

const serveLogSource = "Serve"

type serveOpts struct {
	*rootOpts
	addr    string
	workers int

	// ready receives the bound address once the listener is up. Used by tests.
	ready chan<- string
}

func newServeCommand(parent *rootOpts) *serveOpts {
	return &serveOpts{rootOpts: parent}
}

func (opts *serveOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison job API",
		Args:  cobra.NoArgs,
		RunE:  opts.RunE,
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().IntVar(&opts.workers, "workers", 2, "Jobs processed at once")
	return cmd
}

func (opts *serveOpts) RunE(cmd *cobra.Command, _ []string) error {
	matcher, err := opts.matcher()
	if err != nil {
		return err
	}
	logger := opts.logger()
	store := ignore.NewStore(matcher)
	if opts.ignoreConfig != "" {
		watcher, err := ignore.WatchFile(opts.ignoreConfig, store, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := batch.NewManager(batch.ManagerDependencies{
		Runner: batch.NewRunner(batch.RunnerDependencies{
			Resolver: batch.NewSourceResolver(batch.ResolverDependencies{Kubeconfig: opts.kubeconfig, Logger: logger}),
			Ignore:   store,
			Logger:   logger,
		}),
		Logger:  logger,
		Workers: opts.workers,
	})
	if err := manager.Start(ctx); err != nil {
		return err
	}

	server, err := api.NewServer(api.Dependencies{Queue: manager.Queue(), Ignore: store, Logger: logger, Logs: logger})
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.addr, err)
	}
	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: config.ServerReadHeaderTimeout}

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()
	logger.Info(fmt.Sprintf("Listening on %s", listener.Addr()), serveLogSource)
	if opts.ready != nil {
		opts.ready <- listener.Addr().String()
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = manager.Shutdown(context.Background())
			return err
		}
	}

	logger.Info("Shutting down", serveLogSource)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return parallel.RunLimited(shutdownCtx, 0,
		func(ctx context.Context) error {
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn(fmt.Sprintf("HTTP shutdown: %v", err), serveLogSource)
			}
			return nil
		},
		manager.Shutdown,
	)
}
