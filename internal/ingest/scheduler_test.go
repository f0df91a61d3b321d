package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cantrip/internal/compress"
	"cantrip/internal/config"
	"cantrip/internal/ingest"
	"cantrip/internal/testsupport"
	"cantrip/internal/upload"
)

type fakeUploader struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	calls       []upload.Request
	delay       time.Duration
	respond     func(req upload.Request) (*upload.Response, error)
}

func (u *fakeUploader) Upload(ctx context.Context, req upload.Request) (*upload.Response, error) {
	u.mu.Lock()
	u.inFlight++
	if u.inFlight > u.maxInFlight {
		u.maxInFlight = u.inFlight
	}
	u.calls = append(u.calls, req)
	u.mu.Unlock()

	if u.delay > 0 {
		time.Sleep(u.delay)
	}

	u.mu.Lock()
	u.inFlight--
	u.mu.Unlock()

	if u.respond != nil {
		return u.respond(req)
	}
	return &upload.Response{Outcome: upload.OutcomeCreated, ImageID: "img-" + req.FileName, StatusCode: 200}, nil
}

func (u *fakeUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func newScheduler(t *testing.T, cfg *config.Config, uploader upload.Uploader, spool ingest.Spool) *ingest.Scheduler {
	t.Helper()
	compressor := compress.New(compress.Options{
		MaxOutputBytes: cfg.MaxOutputBytes(),
		MaxDimension:   cfg.Compression.MaxDimension,
		Quality:        cfg.Compression.Quality,
	}, nil)
	return ingest.New(cfg, compressor, uploader, spool, nil)
}

func TestRunMixedOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{respond: func(req upload.Request) (*upload.Response, error) {
		switch req.FileName {
		case "dup.png":
			return &upload.Response{
				Outcome:       upload.OutcomeDuplicate,
				ExistingID:    "img-existing",
				ExistingTitle: "dup",
				Reason:        "Duplicate image",
				StatusCode:    409,
			}, nil
		case "quota.png":
			return &upload.Response{Outcome: upload.OutcomeRejected, Reason: "Storage quota exceeded", StatusCode: 507}, nil
		default:
			return &upload.Response{Outcome: upload.OutcomeCreated, ImageID: "img-" + req.FileName, StatusCode: 200}, nil
		}
	}}
	scheduler := newScheduler(t, cfg, uploader, nil)

	files := []ingest.File{
		{Name: "ok.png", Data: testsupport.PNGImageSeeded(t, 64, 64, 1)},
		{Name: "dup.png", Data: testsupport.PNGImageSeeded(t, 64, 64, 2)},
		{Name: "quota.png", Data: testsupport.PNGImageSeeded(t, 64, 64, 3)},
		{Name: "notes.txt", Data: []byte("not an image")},
	}

	report := scheduler.Run(context.Background(), "col-1", files, nil)

	if len(report.Tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(report.Tasks))
	}
	for i, task := range report.Tasks {
		if task.FileName != files[i].Name {
			t.Fatalf("task %d out of submission order: got %s want %s", i, task.FileName, files[i].Name)
		}
		if !task.Status.IsTerminal() {
			t.Fatalf("task %s not terminal: %s", task.FileName, task.Status)
		}
	}

	if report.Succeeded != 1 || report.Duplicates != 1 || report.Failed != 2 || report.Queued != 0 {
		t.Fatalf("unexpected tallies: %+v", report)
	}

	ok := report.Tasks[0]
	if ok.Status != ingest.StatusSuccess || ok.ImageID != "img-ok.png" || ok.Progress != 100 {
		t.Fatalf("unexpected success task: %+v", ok)
	}
	dup := report.Tasks[1]
	if dup.Status != ingest.StatusError || !dup.Duplicate || dup.ImageID != "img-existing" {
		t.Fatalf("unexpected duplicate task: %+v", dup)
	}
	quota := report.Tasks[2]
	if quota.Status != ingest.StatusError || quota.Error != "Storage quota exceeded" {
		t.Fatalf("unexpected quota task: %+v", quota)
	}
	invalid := report.Tasks[3]
	if invalid.Status != ingest.StatusError || invalid.Error == "" {
		t.Fatalf("unexpected invalid-file task: %+v", invalid)
	}

	// The rejected text file must never reach the network.
	if uploader.callCount() != 3 {
		t.Fatalf("expected 3 uploads, got %d", uploader.callCount())
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Upload.Concurrency = 3
	uploader := &fakeUploader{delay: 20 * time.Millisecond}
	scheduler := newScheduler(t, cfg, uploader, nil)

	var files []ingest.File
	for i := 0; i < 8; i++ {
		files = append(files, ingest.File{
			Name: "cat.png",
			Data: testsupport.PNGImageSeeded(t, 32, 32, int64(i)),
		})
	}

	report := scheduler.Run(context.Background(), "col-1", files, nil)

	if report.Succeeded != 8 {
		t.Fatalf("expected 8 successes, got %+v", report)
	}
	if uploader.maxInFlight > 3 {
		t.Fatalf("concurrency window exceeded: %d uploads in flight", uploader.maxInFlight)
	}
}

func TestRunAssignsDistinctTaskIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{}
	scheduler := newScheduler(t, cfg, uploader, nil)

	// Same file name twice; per-task identity keeps results unambiguous.
	files := []ingest.File{
		{Name: "cat.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 1)},
		{Name: "cat.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 2)},
	}

	report := scheduler.Run(context.Background(), "col-1", files, nil)

	if len(report.Tasks) != 2 || report.Succeeded != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Tasks[0].FileID == report.Tasks[1].FileID {
		t.Fatalf("expected distinct task ids, got %s twice", report.Tasks[0].FileID)
	}
}

func TestRunSpoolsOnNetworkFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	uploader := &fakeUploader{respond: func(req upload.Request) (*upload.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	scheduler := newScheduler(t, cfg, uploader, store)

	files := []ingest.File{
		{Name: "cat.png", Data: testsupport.PNGImageSeeded(t, 64, 64, 1), Title: "A cat"},
	}

	report := scheduler.Run(context.Background(), "col-1", files, nil)

	if report.Queued != 1 || report.Failed != 0 {
		t.Fatalf("expected queued task, got %+v", report)
	}
	if report.Tasks[0].Status != ingest.StatusQueued {
		t.Fatalf("unexpected status: %s", report.Tasks[0].Status)
	}

	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 spooled entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.FileName != "cat.png" || entry.CollectionID != "col-1" || entry.Title != "A cat" {
		t.Fatalf("unexpected spooled entry: %+v", entry)
	}
	// The spooled payload is the compressed form, not the raw input.
	if entry.MediaType != "image/jpeg" {
		t.Fatalf("expected compressed payload, got %s", entry.MediaType)
	}
	if entry.OriginalSize != int64(len(files[0].Data)) {
		t.Fatalf("unexpected original size: %d", entry.OriginalSize)
	}
}

func TestRunWithoutSpoolFailsOnNetworkError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{respond: func(req upload.Request) (*upload.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	scheduler := newScheduler(t, cfg, uploader, nil)

	files := []ingest.File{{Name: "cat.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 1)}}
	report := scheduler.Run(context.Background(), "col-1", files, nil)

	if report.Failed != 1 || report.Queued != 0 {
		t.Fatalf("expected hard failure without spool, got %+v", report)
	}
}

func TestRunEmitsOrderedSnapshots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{}
	scheduler := newScheduler(t, cfg, uploader, nil)

	files := []ingest.File{
		{Name: "a.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 1)},
		{Name: "b.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 2)},
		{Name: "c.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 3)},
	}

	var mu sync.Mutex
	var snapshots [][]ingest.Task
	report := scheduler.Run(context.Background(), "col-1", files, func(tasks []ingest.Task) {
		mu.Lock()
		snapshots = append(snapshots, tasks)
		mu.Unlock()
	})

	if report.Succeeded != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(snapshots) == 0 {
		t.Fatal("expected progress snapshots")
	}
	for _, snapshot := range snapshots {
		if len(snapshot) != 3 {
			t.Fatalf("snapshot missing tasks: %d", len(snapshot))
		}
		for i, task := range snapshot {
			if task.FileName != files[i].Name {
				t.Fatalf("snapshot out of submission order: got %s at %d", task.FileName, i)
			}
		}
	}
}

func TestReportFailedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{respond: func(req upload.Request) (*upload.Response, error) {
		switch req.FileName {
		case "bad.png":
			return &upload.Response{Outcome: upload.OutcomeRejected, Reason: "Rate limit exceeded", StatusCode: 429}, nil
		case "dup.png":
			return &upload.Response{Outcome: upload.OutcomeDuplicate, ExistingID: "img-0", StatusCode: 409}, nil
		default:
			return &upload.Response{Outcome: upload.OutcomeCreated, ImageID: "img-1", StatusCode: 200}, nil
		}
	}}
	scheduler := newScheduler(t, cfg, uploader, nil)

	files := []ingest.File{
		{Name: "ok.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 1)},
		{Name: "bad.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 2)},
		{Name: "dup.png", Data: testsupport.PNGImageSeeded(t, 32, 32, 3)},
	}
	report := scheduler.Run(context.Background(), "col-1", files, nil)

	retry := report.FailedFiles(files)
	if len(retry) != 1 || retry[0].Name != "bad.png" {
		t.Fatalf("unexpected retry set: %+v", retry)
	}
	if report.Delivered() {
		t.Fatal("expected report with a failure to not be delivered")
	}
}
