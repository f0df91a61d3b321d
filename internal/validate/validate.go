package validate

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// allowedTypes is the supported upload set. The server enforces the same set
// by magic-byte sniffing; the client-side check only saves wasted work.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Reason describes why a file was rejected before any processing began.
type Reason struct {
	FileName string
	Message  string
}

func (r *Reason) Error() string {
	if r.FileName == "" {
		return r.Message
	}
	return fmt.Sprintf("%s: %s", r.FileName, r.Message)
}

// File checks a candidate's declared media type and raw size against the
// ingestion limits. It returns nil when the file is accepted.
func File(name, declaredType string, size int64, maxRawSize int64) error {
	if _, ok := allowedTypes[declaredType]; !ok {
		return &Reason{FileName: name, Message: "invalid file type, allowed: JPEG, PNG, GIF, WebP"}
	}
	if size > maxRawSize {
		return &Reason{FileName: name, Message: fmt.Sprintf("file exceeds %s limit", humanize.IBytes(uint64(maxRawSize)))}
	}
	return nil
}

// Sniff determines the media type from magic bytes and reports whether it is
// in the supported set. The declared type is never trusted on its own.
func Sniff(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for allowed := range allowedTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return detected.String(), false
}

// Allowed reports whether a media type is in the supported upload set.
func Allowed(mediaType string) bool {
	_, ok := allowedTypes[mediaType]
	return ok
}
