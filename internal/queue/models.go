package queue

import "time"

// Entry is a spooled upload persisted in SQLite. An entry exists if and only
// if the server has not yet confirmed the upload (created or duplicate).
type Entry struct {
	ID           string
	Data         []byte
	FileName     string
	MediaType    string
	CollectionID string
	Title        string
	Description  string
	OriginalSize int64
	CreatedAt    time.Time
	RetryCount   int
}
