package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/server"
	"github.com/goliatone/go-sections/pkg/schema"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve the template API and the HTML editor",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("watch", false, "reload section schemas when files change")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	gw, closeStore, err := a.localGateway(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeStore()
	}()

	logger := logging.Component(a.logger, "server")
	srv, err := server.New(gw,
		server.WithLogger(logger),
		server.WithTheme(a.themeConfig()),
		server.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
		server.WithSessionTTL(a.cfg.Server.SessionTTL),
		server.WithEditorOptions(a.editorOptions()...),
	)
	if err != nil {
		return err
	}

	if a.cfg.Schemas.Watch {
		watcher := schema.NewWatcher(a.cfg.Schemas.Dir, srv.Registry(), 0, logging.Component(a.logger, "watcher"), srv.SchemasReloaded)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("schema watcher stopped", "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}
