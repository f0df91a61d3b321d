package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cantrip/internal/logging"
	"cantrip/internal/upload"
)

// ErrDrainInProgress means another process currently holds the drain lock.
var ErrDrainInProgress = errors.New("queue drain already in progress")

// Drain replays spooled entries oldest-first through the uploader. Entries
// confirmed by the server (created or duplicate) are removed and counted as
// synced; server rejections bump the retry counter and leave the entry in
// place. A network-level failure halts the pass immediately on the
// assumption that the remaining entries would fail the same way; the synced
// count up to that point is still returned alongside the error.
func (s *Store) Drain(ctx context.Context, uploader upload.Uploader, logger *slog.Logger) (int, error) {
	logger = logging.NewComponentLogger(logger, "queue")

	locked, err := s.lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire drain lock: %w", err)
	}
	if !locked {
		return 0, ErrDrainInProgress
	}
	defer func() { _ = s.lock.Unlock() }()

	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		resp, err := uploader.Upload(ctx, upload.Request{
			Data:         entry.Data,
			FileName:     entry.FileName,
			MediaType:    entry.MediaType,
			CollectionID: entry.CollectionID,
			Title:        entry.Title,
			Description:  entry.Description,
			OriginalSize: entry.OriginalSize,
		})
		if err != nil {
			logger.Warn("replay halted by network failure",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.String(logging.FieldEventType, "drain_halted"),
				logging.Error(err),
			)
			return synced, fmt.Errorf("replay entry %s: %w", entry.ID, err)
		}

		if resp.Delivered() {
			if _, err := s.Remove(ctx, entry.ID); err != nil {
				return synced, err
			}
			synced++
			logger.Info("queued upload synced",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.String(logging.FieldFileName, entry.FileName),
				logging.String("outcome", resp.Outcome.String()),
			)
			continue
		}

		if err := s.IncrementRetry(ctx, entry.ID); err != nil {
			return synced, err
		}
		logger.Warn("queued upload rejected, will retry later",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.String(logging.FieldFileName, entry.FileName),
			logging.String("reason", resp.Reason),
			logging.Int("retry_count", entry.RetryCount+1),
		)
	}

	return synced, nil
}
