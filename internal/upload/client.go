package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"cantrip/internal/config"
	"cantrip/internal/logging"
)

const userAgent = "Cantrip-CLI/0.1.0"

// Uploader is the single-file upload surface consumed by the scheduler and
// the offline queue drain.
type Uploader interface {
	Upload(ctx context.Context, req Request) (*Response, error)
}

// Request carries one compressed file plus its metadata.
type Request struct {
	Data         []byte
	FileName     string
	MediaType    string
	CollectionID string
	Title        string
	Description  string
	OriginalSize int64
}

// Client talks to the Cantrip upload endpoint.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient builds a Client from application config.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Service.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.Service.BaseURL,
		token:   cfg.Service.APIToken,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, "upload"),
	}
}

// Upload performs a single multipart request. A non-nil error means the
// request never completed (dial failure, timeout, connection reset); every
// completed exchange, including server-side rejection, is reported through
// the Response outcome instead.
func (c *Client) Upload(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/images/upload", body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send upload request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	parsed := parseResponse(resp.StatusCode, payload)
	c.logger.Debug("upload exchange completed",
		logging.String(logging.FieldFileName, req.FileName),
		logging.Int("status_code", resp.StatusCode),
		logging.String("outcome", parsed.Outcome.String()),
	)
	return parsed, nil
}

// CheckHealth probes the service health endpoint. A nil error means the
// service answered, regardless of payload.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe health endpoint: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func encodeMultipart(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file field: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart file field: %w", err)
	}

	fields := map[string]string{
		"collectionId": req.CollectionID,
		"title":        req.Title,
		"description":  req.Description,
		"originalSize": strconv.FormatInt(req.OriginalSize, 10),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func parseResponse(statusCode int, payload []byte) *Response {
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Image   struct {
			ID string `json:"id"`
		} `json:"image"`
		ExistingImage struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"existingImage"`
	}
	// A malformed body falls through to the status-code defaults below.
	_ = json.Unmarshal(payload, &envelope)

	switch {
	case statusCode >= 200 && statusCode < 300:
		return &Response{
			Outcome:    OutcomeCreated,
			ImageID:    envelope.Image.ID,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusConflict:
		reason := envelope.Error
		if reason == "" {
			reason = "duplicate image already exists"
		}
		return &Response{
			Outcome:       OutcomeDuplicate,
			ExistingID:    envelope.ExistingImage.ID,
			ExistingTitle: envelope.ExistingImage.Title,
			Reason:        reason,
			StatusCode:    statusCode,
		}
	default:
		reason := envelope.Error
		if reason == "" {
			reason = fmt.Sprintf("upload rejected with status %d", statusCode)
		}
		return &Response{
			Outcome:    OutcomeRejected,
			Reason:     reason,
			StatusCode: statusCode,
		}
	}
}
