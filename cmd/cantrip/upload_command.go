package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cantrip/internal/ingest"
	"cantrip/internal/notifications"
	"cantrip/internal/queue"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var collectionID string
	var title string
	var description string
	var retryFailed bool
	var noQueue bool

	cmd := &cobra.Command{
		Use:   "upload --collection <id> <file...>",
		Short: "Upload images to a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != "" && len(args) > 1 {
				return errors.New("--title applies to a single file; omit it to derive titles from file names")
			}

			files, err := gatherFiles(args, title, description)
			if err != nil {
				return err
			}

			compressor, err := ctx.newCompressor()
			if err != nil {
				return err
			}
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

			run := func(spool ingest.Spool, files []ingest.File) *ingest.Report {
				scheduler := ingest.New(cfg, compressor, client, spool, logger)
				onProgress, finish := newProgressRenderer(len(files))
				report := scheduler.Run(cmd.Context(), collectionID, files, onProgress)
				finish()
				return report
			}

			runBatch := func(files []ingest.File) (*ingest.Report, error) {
				if noQueue {
					return run(nil, files), nil
				}
				var report *ingest.Report
				err := ctx.withStore(func(store *queue.Store) error {
					report = run(store, files)
					return nil
				})
				return report, err
			}

			started := time.Now()
			report, err := runBatch(files)
			if err != nil {
				return err
			}

			if retryFailed {
				if retry := report.FailedFiles(files); len(retry) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d failed uploads\n", len(retry))
					retryReport, err := runBatch(retry)
					if err != nil {
						return err
					}
					report = mergeRetryReport(report, retryReport)
				}
			}
			duration := time.Since(started)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Status", "Detail"},
				buildUploadRows(report.Tasks),
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Uploaded %d of %d images in %s\n",
				report.Succeeded, len(report.Tasks), duration.Round(time.Second))
			if report.Duplicates > 0 {
				fmt.Fprintf(out, "%d already existed on the server\n", report.Duplicates)
			}
			if report.Queued > 0 {
				fmt.Fprintf(out, "%d queued for sync; run `cantrip queue sync` once back online, or `cantrip watch` to sync automatically\n", report.Queued)
			}

			notifier := notifications.NewService(cfg)
			notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 15*time.Second)
			defer cancel()
			_ = notifier.NotifyBatchCompleted(notifyCtx, report.Succeeded, report.Failed, report.Queued, duration)
			if report.Queued > 0 {
				_ = notifier.NotifyUploadsQueued(notifyCtx, report.Queued)
			}

			if report.Failed > 0 {
				return fmt.Errorf("%d uploads failed", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collectionID, "collection", "C", "", "Target collection identifier")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for a single uploaded image")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description applied to uploaded images")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Retry failed uploads once before reporting")
	cmd.Flags().BoolVar(&noQueue, "no-queue", false, "Fail immediately on network errors instead of queueing")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

// newProgressRenderer returns a progress callback plus a finish func. On a
// terminal it drives an aggregate progress bar; otherwise it stays silent and
// leaves reporting to the structured log.
func newProgressRenderer(fileCount int) (ingest.ProgressFunc, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) || fileCount == 0 {
		return nil, func() {}
	}

	bar := progressbar.NewOptions(fileCount*100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	onProgress := func(tasks []ingest.Task) {
		total := 0
		for _, task := range tasks {
			if task.Status.IsTerminal() {
				total += 100
				continue
			}
			total += task.Progress
		}
		_ = bar.Set(total)
	}
	return onProgress, func() { _ = bar.Finish() }
}

// mergeRetryReport folds a retry pass into the original report: a task that
// failed in the first pass takes the outcome of its retry. Retry inputs come
// from FailedFiles, so the nth retry task corresponds to the nth failed task.
func mergeRetryReport(first, retry *ingest.Report) *ingest.Report {
	merged := make([]ingest.Task, len(first.Tasks))
	copy(merged, first.Tasks)

	retryIdx := 0
	for i, task := range merged {
		if task.Status != ingest.StatusError || task.Duplicate {
			continue
		}
		if retryIdx >= len(retry.Tasks) {
			break
		}
		retried := retry.Tasks[retryIdx]
		retryIdx++
		retried.FileID = task.FileID
		merged[i] = retried
	}
	return ingest.NewReport(merged)
}
