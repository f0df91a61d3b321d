package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cantrip/internal/compress"
	"cantrip/internal/config"
	"cantrip/internal/logging"
	"cantrip/internal/queue"
	"cantrip/internal/upload"
	"cantrip/internal/validate"
)

// Spool receives uploads that failed at the network level. Typically backed
// by the offline queue store; nil disables the offline path.
type Spool interface {
	Enqueue(ctx context.Context, entry *queue.Entry) (string, error)
}

// Scheduler drives batches of files through validate → compress → upload
// with a bounded concurrency window.
type Scheduler struct {
	compressor  *compress.Compressor
	uploader    upload.Uploader
	spool       Spool
	logger      *slog.Logger
	concurrency int
	maxRawSize  int64
}

// New constructs a Scheduler from application config.
func New(cfg *config.Config, compressor *compress.Compressor, uploader upload.Uploader, spool Spool, logger *slog.Logger) *Scheduler {
	concurrency := cfg.Upload.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		compressor:  compressor,
		uploader:    uploader,
		spool:       spool,
		logger:      logging.NewComponentLogger(logger, "ingest"),
		concurrency: concurrency,
		maxRawSize:  cfg.MaxRawSizeBytes(),
	}
}

type batchState struct {
	mu         sync.Mutex
	order      []string
	tasks      map[string]*Task
	onProgress ProgressFunc
}

func (b *batchState) snapshotLocked() []Task {
	out := make([]Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.tasks[id])
	}
	return out
}

func (b *batchState) emit() {
	if b.onProgress == nil {
		return
	}
	b.mu.Lock()
	snapshot := b.snapshotLocked()
	b.mu.Unlock()
	b.onProgress(snapshot)
}

// update applies a mutation to one task and pushes a fresh snapshot. Terminal
// states are sticky: once a task is terminal no further mutation applies, so
// each file reports a terminal status at most once.
func (b *batchState) update(id string, fn func(*Task)) {
	b.mu.Lock()
	task := b.tasks[id]
	if task == nil || task.Status.IsTerminal() {
		b.mu.Unlock()
		return
	}
	fn(task)
	b.mu.Unlock()
	b.emit()
}

// Run processes a batch and blocks until every file has reached a terminal
// state. A single file's failure never aborts its siblings; the returned
// report covers all files. Files are started in submission order with at
// most the configured number of compress+upload pipelines in flight.
func (s *Scheduler) Run(ctx context.Context, collectionID string, files []File, onProgress ProgressFunc) *Report {
	batchID := uuid.NewString()
	logger := s.logger.With(logging.String(logging.FieldBatchID, batchID))

	state := &batchState{
		tasks:      make(map[string]*Task, len(files)),
		onProgress: onProgress,
	}

	// Metadata and payloads are keyed by the per-file task identifier, so
	// batches containing duplicate file names stay unambiguous.
	payloads := make(map[string]File, len(files))
	for _, file := range files {
		id := uuid.NewString()
		state.order = append(state.order, id)
		payloads[id] = file

		task := &Task{FileID: id, FileName: file.Name, Status: StatusPending}
		if reason := s.validateFile(file); reason != nil {
			task.Status = StatusError
			task.Error = reason.Error()
		}
		state.tasks[id] = task
	}
	state.emit()

	logger.Info("batch started",
		logging.Int("files", len(files)),
		logging.String("collection_id", collectionID),
	)

	var wg sync.WaitGroup
	slots := make(chan struct{}, s.concurrency)
	for _, id := range state.order {
		state.mu.Lock()
		terminal := state.tasks[id].Status.IsTerminal()
		state.mu.Unlock()
		if terminal {
			continue
		}

		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			state.update(id, func(t *Task) {
				t.Status = StatusError
				t.Error = "upload canceled"
			})
			continue
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-slots }()
			s.processFile(ctx, logger, state, collectionID, id, payloads[id])
		}(id)
	}
	wg.Wait()

	report := NewReport(state.snapshot())
	logger.Info("batch completed",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("queued", report.Queued),
		logging.Int("duplicates", report.Duplicates),
	)
	return report
}

func (b *batchState) snapshot() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (s *Scheduler) validateFile(file File) error {
	mediaType, _ := validate.Sniff(file.Data)
	return validate.File(file.Name, mediaType, int64(len(file.Data)), s.maxRawSize)
}

func (s *Scheduler) processFile(ctx context.Context, logger *slog.Logger, state *batchState, collectionID, id string, file File) {
	taskLogger := logger.With(
		logging.String(logging.FieldTaskID, id),
		logging.String(logging.FieldFileName, file.Name),
	)

	state.update(id, func(t *Task) {
		t.Status = StatusCompressing
		t.Progress = progressCompressing
	})

	compressed, err := s.compressor.Compress(ctx, file.Data)
	if err != nil {
		taskLogger.Warn("compression failed",
			logging.String(logging.FieldEventType, "compress_failed"),
			logging.Error(err),
		)
		state.update(id, func(t *Task) {
			t.Status = StatusError
			t.Error = err.Error()
		})
		return
	}

	state.update(id, func(t *Task) {
		t.Status = StatusUploading
		t.Progress = progressUploading
	})

	req := upload.Request{
		Data:         compressed.Data,
		FileName:     file.Name,
		MediaType:    compressed.MediaType,
		CollectionID: collectionID,
		Title:        titleFor(file),
		Description:  file.Description,
		OriginalSize: int64(len(file.Data)),
	}

	resp, err := s.uploader.Upload(ctx, req)
	if err != nil {
		s.handleNetworkFailure(ctx, taskLogger, state, id, req)
		return
	}

	switch resp.Outcome {
	case upload.OutcomeCreated:
		state.update(id, func(t *Task) {
			t.Status = StatusSuccess
			t.Progress = progressDone
			t.ImageID = resp.ImageID
		})
	case upload.OutcomeDuplicate:
		taskLogger.Info("duplicate content already on server",
			logging.String("existing_id", resp.ExistingID),
		)
		state.update(id, func(t *Task) {
			t.Status = StatusError
			t.Error = resp.Reason
			t.ImageID = resp.ExistingID
			t.Duplicate = true
		})
	default:
		taskLogger.Warn("upload rejected",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.Int("status_code", resp.StatusCode),
			logging.String("reason", resp.Reason),
		)
		state.update(id, func(t *Task) {
			t.Status = StatusError
			t.Error = resp.Reason
		})
	}
}

// handleNetworkFailure spools the already-compressed payload for later
// replay instead of surfacing a terminal error; intent is eventual delivery.
func (s *Scheduler) handleNetworkFailure(ctx context.Context, taskLogger *slog.Logger, state *batchState, id string, req upload.Request) {
	if s.spool == nil {
		state.update(id, func(t *Task) {
			t.Status = StatusError
			t.Error = "network unavailable"
		})
		return
	}

	// Spool with a fresh context: the batch context may already be canceled
	// by the same disruption that killed the request.
	entry := &queue.Entry{
		Data:         req.Data,
		FileName:     req.FileName,
		MediaType:    req.MediaType,
		CollectionID: req.CollectionID,
		Title:        req.Title,
		Description:  req.Description,
		OriginalSize: req.OriginalSize,
	}
	entryID, err := s.spool.Enqueue(context.WithoutCancel(ctx), entry)
	if err != nil {
		taskLogger.Error("failed to spool upload for offline replay",
			logging.String(logging.FieldEventType, "spool_failed"),
			logging.Error(err),
		)
		state.update(id, func(t *Task) {
			t.Status = StatusError
			t.Error = "network unavailable and offline queue failed: " + err.Error()
		})
		return
	}

	taskLogger.Info("upload spooled for background sync",
		logging.String(logging.FieldEntryID, entryID),
	)
	state.update(id, func(t *Task) {
		t.Status = StatusQueued
	})
}

func titleFor(file File) string {
	if title := strings.TrimSpace(file.Title); title != "" {
		return title
	}
	base := filepath.Base(file.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
