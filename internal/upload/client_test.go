package upload_test

import (
	"context"
	"net/http"
	"testing"

	"cantrip/internal/testsupport"
	"cantrip/internal/upload"
)

func newClient(t *testing.T, srv *testsupport.UploadServer, token string) *upload.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(srv.URL),
		testsupport.WithAPIToken(token),
	)
	return upload.NewClient(cfg, nil)
}

func pngRequest(t *testing.T, seed int64) upload.Request {
	t.Helper()
	data := testsupport.PNGImageSeeded(t, 64, 64, seed)
	return upload.Request{
		Data:         data,
		FileName:     "cat.png",
		MediaType:    "image/png",
		CollectionID: "col-1",
		Title:        "A cat",
		Description:  "sleeping",
		OriginalSize: int64(len(data)) * 3,
	}
}

func TestUploadCreated(t *testing.T) {
	srv := testsupport.NewUploadServer(t)
	client := newClient(t, srv, "")

	resp, err := client.Upload(context.Background(), pngRequest(t, 1))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Outcome != upload.OutcomeCreated {
		t.Fatalf("expected created, got %s (%d: %s)", resp.Outcome, resp.StatusCode, resp.Reason)
	}
	if resp.ImageID == "" {
		t.Fatal("expected image id in response")
	}
	if !resp.Delivered() {
		t.Fatal("expected created response to count as delivered")
	}

	records := srv.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.CollectionID != "col-1" || rec.Title != "A cat" || rec.Description != "sleeping" {
		t.Fatalf("metadata not forwarded: %+v", rec)
	}
}

func TestUploadDuplicate(t *testing.T) {
	srv := testsupport.NewUploadServer(t)
	client := newClient(t, srv, "")
	ctx := context.Background()

	first, err := client.Upload(ctx, pngRequest(t, 1))
	if err != nil || first.Outcome != upload.OutcomeCreated {
		t.Fatalf("first upload: %v / %+v", err, first)
	}

	// Same bytes under a different name still collide on content hash.
	req := pngRequest(t, 1)
	req.FileName = "same-cat-renamed.png"
	second, err := client.Upload(ctx, req)
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if second.Outcome != upload.OutcomeDuplicate || second.StatusCode != http.StatusConflict {
		t.Fatalf("expected duplicate, got %+v", second)
	}
	if second.ExistingID != first.ImageID {
		t.Fatalf("expected existing id %s, got %s", first.ImageID, second.ExistingID)
	}
	if !second.Delivered() {
		t.Fatal("expected duplicate to count as delivered")
	}
	if srv.UploadCount() != 1 {
		t.Fatalf("expected server to store one copy, got %d", srv.UploadCount())
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		message    string
		wantReason string
	}{
		{"rate limited", http.StatusTooManyRequests, "Daily upload limit reached", "Daily upload limit reached"},
		{"quota exceeded", http.StatusInsufficientStorage, "Storage quota exceeded", "Storage quota exceeded"},
		{"server error", http.StatusInternalServerError, "", "upload rejected with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testsupport.NewUploadServer(t)
			client := newClient(t, srv, "")
			srv.FailNext(tt.status, tt.message)

			resp, err := client.Upload(context.Background(), pngRequest(t, 1))
			if err != nil {
				t.Fatalf("expected completed exchange, got transport error: %v", err)
			}
			if resp.Outcome != upload.OutcomeRejected || resp.StatusCode != tt.status {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if resp.Reason != tt.wantReason {
				t.Fatalf("expected reason %q, got %q", tt.wantReason, resp.Reason)
			}
			if resp.Delivered() {
				t.Fatal("rejection must not count as delivered")
			}
		})
	}
}

func TestUploadSendsBearerToken(t *testing.T) {
	srv := testsupport.NewUploadServer(t, testsupport.WithToken("secret-token"))

	unauthed := newClient(t, srv, "")
	resp, err := unauthed.Upload(context.Background(), pngRequest(t, 1))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Outcome != upload.OutcomeRejected || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 rejection, got %+v", resp)
	}

	authed := newClient(t, srv, "secret-token")
	resp, err = authed.Upload(context.Background(), pngRequest(t, 2))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Outcome != upload.OutcomeCreated {
		t.Fatalf("expected created with token, got %+v", resp)
	}
}

func TestUploadTransportFailure(t *testing.T) {
	srv := testsupport.NewUploadServer(t)
	client := newClient(t, srv, "")
	srv.Close()

	if _, err := client.Upload(context.Background(), pngRequest(t, 1)); err == nil {
		t.Fatal("expected transport error against closed server")
	}
}

func TestCheckHealth(t *testing.T) {
	srv := testsupport.NewUploadServer(t)
	client := newClient(t, srv, "")

	if err := client.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}

	srv.Close()
	if err := client.CheckHealth(context.Background()); err == nil {
		t.Fatal("expected health probe to fail against closed server")
	}
}
