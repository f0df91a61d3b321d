package testsupport

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"cantrip/internal/validate"
)

const maxUploadBytes = 2 << 20

// ImageRecord is a stored upload on the test server.
type ImageRecord struct {
	ID           string
	CollectionID string
	Title        string
	Description  string
	Hash         string
	Size         int64
	OriginalSize string
}

// UploadServer is an in-process stand-in for the Cantrip upload endpoint. It
// mirrors the production contract: bearer auth, post-compression size
// ceiling, magic-byte type sniffing, content-hash duplicate detection, quota,
// and rate limiting.
type UploadServer struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	quotaBytes  int64
	rateLimit   int
	usedBytes   int64
	uploadCount int
	byHash      map[string]*ImageRecord
	records     []*ImageRecord
	failNext    int
	failMessage string
}

// ServerOption customizes the test server.
type ServerOption func(*UploadServer)

// WithToken requires a bearer token on uploads.
func WithToken(token string) ServerOption {
	return func(s *UploadServer) { s.token = token }
}

// WithQuota caps the total stored bytes before uploads return 507.
func WithQuota(bytes int64) ServerOption {
	return func(s *UploadServer) { s.quotaBytes = bytes }
}

// WithRateLimit caps the number of accepted uploads before returning 429.
func WithRateLimit(count int) ServerOption {
	return func(s *UploadServer) { s.rateLimit = count }
}

// NewUploadServer starts the reference endpoint and registers cleanup.
func NewUploadServer(t testing.TB, opts ...ServerOption) *UploadServer {
	t.Helper()

	srv := &UploadServer{
		byHash: make(map[string]*ImageRecord),
	}
	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/images/upload", srv.handleUpload)

	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// FailNext makes the next upload fail with the given status and message.
func (s *UploadServer) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = status
	s.failMessage = message
}

// UploadCount returns the number of accepted uploads.
func (s *UploadServer) UploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadCount
}

// Records returns a copy of the stored upload records in acceptance order.
func (s *UploadServer) Records() []ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ImageRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

func (s *UploadServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	if s.failNext != 0 {
		status, msg := s.failNext, s.failMessage
		s.failNext, s.failMessage = 0, ""
		s.mu.Unlock()
		writeError(w, status, msg)
		return
	}
	token := s.token
	s.mu.Unlock()

	if token != "" {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	if err := r.ParseMultipartForm(maxUploadBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File and collectionId are required")
		return
	}
	defer file.Close()

	collectionID := r.FormValue("collectionId")
	if collectionID == "" {
		writeError(w, http.StatusBadRequest, "File and collectionId are required")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read upload")
		return
	}
	if int64(len(data)) > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "File exceeds 2MB limit")
		return
	}

	// Magic-byte validation; the declared Content-Type is ignored.
	if _, ok := validate.Sniff(data); !ok {
		writeError(w, http.StatusBadRequest, "Invalid file type. Allowed: JPEG, PNG, GIF, WebP")
		return
	}

	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byHash[hash]; ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "Duplicate image: \"" + existing.Title + "\" already exists",
			"existingImage": map[string]string{
				"id":    existing.ID,
				"title": existing.Title,
			},
		})
		return
	}

	if s.rateLimit > 0 && s.uploadCount >= s.rateLimit {
		writeError(w, http.StatusTooManyRequests, "Daily upload limit reached")
		return
	}
	if s.quotaBytes > 0 && s.usedBytes+int64(len(data)) > s.quotaBytes {
		writeError(w, http.StatusInsufficientStorage, "Storage quota exceeded")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, pathExt(header.Filename))
	}

	rec := &ImageRecord{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		Title:        title,
		Description:  strings.TrimSpace(r.FormValue("description")),
		Hash:         hash,
		Size:         int64(len(data)),
		OriginalSize: r.FormValue("originalSize"),
	}
	s.byHash[hash] = rec
	s.records = append(s.records, rec)
	s.usedBytes += rec.Size
	s.uploadCount++

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"image":   map[string]string{"id": rec.ID, "title": rec.Title},
	})
}

func pathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
