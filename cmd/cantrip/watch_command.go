package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cantrip/internal/connectivity"
	"cantrip/internal/notifications"
	"cantrip/internal/queue"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch connectivity and sync the queue automatically",
		Long: "Watch probes the service until interrupted. Whenever the connection " +
			"comes back after an outage, queued uploads are replayed automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newUploadClient()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				notifier := notifications.NewService(cfg)

				syncFn := func(ctx context.Context) (int, error) {
					synced, err := store.Drain(ctx, client, logger)
					if errors.Is(err, queue.ErrDrainInProgress) {
						return 0, nil
					}
					if synced > 0 {
						fmt.Fprintf(out, "Synced %d queued uploads\n", synced)
						notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
						_ = notifier.NotifySyncCompleted(notifyCtx, synced)
						cancel()
					}
					return synced, err
				}

				monitor := connectivity.New(client, syncFn, connectivity.OptionsFromConfig(cfg), logger)
				monitor.OnChange(func(online bool) {
					if online {
						fmt.Fprintln(out, "Connection restored")
						return
					}
					pending, countErr := store.Count(context.Background())
					if countErr != nil {
						fmt.Fprintln(out, "Connection lost; waiting to retry")
						return
					}
					fmt.Fprintf(out, "Connection lost; %d uploads queued, waiting to retry\n", pending)
				})

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				fmt.Fprintln(out, "Watching connectivity (press Ctrl-C to stop)")
				err := monitor.Run(runCtx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
