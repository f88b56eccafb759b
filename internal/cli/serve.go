package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"launcher/internal/ipc"
	"launcher/internal/notify"
)

var serveListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the app manager to a UI over a websocket",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default ipc.listen from the config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	addr := e.cfg.IPC.Listen
	if serveListen != "" {
		addr = serveListen
	}

	d := ipc.NewDispatcher()
	server := ipc.NewServer(d, e.logger)
	ipc.RegisterMethods(d, e.service, server)
	e.service.Notifier = notify.Multi{server, notify.NewWriter(cmd.ErrOrStderr())}

	if _, err := migrateAll(e); err != nil {
		e.logf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on ws://%s\n", addr)
	e.logf("serving %d methods on %s", len(d.Methods()), addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})
	g.Go(func() error {
		return server.WatchLocalApps(ctx, e.layout.LocalAppsDir)
	})
	return g.Wait()
}
