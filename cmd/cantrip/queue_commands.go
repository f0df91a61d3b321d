package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cantrip/internal/notifications"
	"cantrip/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline upload queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueSyncCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				var totalBytes int64
				for _, entry := range entries {
					totalBytes += int64(len(entry.Data))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Pending uploads: %d\n", count)
				fmt.Fprintf(out, "Spooled payload: %s\n", humanize.Bytes(uint64(totalBytes)))
				fmt.Fprintf(out, "Oldest entry: %s\n", humanize.Time(entries[0].CreatedAt))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Title", "Size", "Queued", "Retries"},
					buildQueueListRows(entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func buildQueueListRows(entries []*queue.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			shortID(entry.ID),
			entry.FileName,
			entry.Title,
			humanize.Bytes(uint64(len(entry.Data))),
			humanize.Time(entry.CreatedAt),
			fmt.Sprintf("%d", entry.RetryCount),
		})
	}
	return rows
}

// shortID trims a UUID to its first group for display; full IDs remain
// accepted by `queue remove`.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entryID...>",
		Short: "Remove queued uploads by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					id, err := resolveEntryID(cmd.Context(), store, arg)
					if err != nil {
						return err
					}
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed %s\n", shortID(id))
					} else {
						fmt.Fprintf(out, "Entry %s not found\n", arg)
					}
				}
				return nil
			})
		},
	}
}

// resolveEntryID accepts either a full entry id or the shortened prefix shown
// by `queue list`. Ambiguous prefixes are rejected.
func resolveEntryID(ctx context.Context, store *queue.Store, arg string) (string, error) {
	entries, err := store.List(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, entry := range entries {
		if entry.ID == arg {
			return arg, nil
		}
		if len(arg) >= 4 && len(arg) < len(entry.ID) && entry.ID[:len(arg)] == arg {
			if match != "" {
				return "", fmt.Errorf("entry id %q is ambiguous", arg)
			}
			match = entry.ID
		}
	}
	if match == "" {
		return arg, nil
	}
	return match, nil
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all queued uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("queue clear discards pending uploads; pass --force to confirm")
			}
			return ctx.withStore(func(store *queue.Store) error {
				cleared, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queued uploads\n", cleared)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm discarding all queued uploads")
	return cmd
}

func newQueueSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued uploads now",
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
				count, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				if count == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				synced, drainErr := store.Drain(cmd.Context(), client, logger)
				if synced > 0 {
					fmt.Fprintf(out, "Synced %d queued uploads\n", synced)
					notifier := notifications.NewService(cfg)
					notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 15*time.Second)
					defer cancel()
					_ = notifier.NotifySyncCompleted(notifyCtx, synced)
				}
				if drainErr != nil {
					if errors.Is(drainErr, queue.ErrDrainInProgress) {
						return errors.New("another sync is already running")
					}
					return fmt.Errorf("sync interrupted: %w", drainErr)
				}

				remaining, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				if remaining > 0 {
					fmt.Fprintf(out, "%d uploads remain queued (rejected by the server; see `cantrip queue list`)\n", remaining)
				}
				return nil
			})
		},
	}
}
