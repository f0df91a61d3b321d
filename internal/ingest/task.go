package ingest

// Status represents the lifecycle of one file within a batch.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCompressing Status = "compressing"
	StatusUploading   Status = "uploading"
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
	// StatusQueued is entered only when a network failure hands the file to
	// the offline queue; it is terminal for the batch but not for delivery.
	StatusQueued Status = "queued"
)

// IsTerminal reports whether a task in this status will not transition again
// within the current batch invocation.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusQueued:
		return true
	default:
		return false
	}
}

// File is one batch member submitted by the caller. Title and Description
// are optional; an empty Title falls back to the file name without its
// extension, matching the server's own defaulting.
type File struct {
	Name        string
	Data        []byte
	Title       string
	Description string
}

// Task is a point-in-time snapshot of one file's pipeline state. Snapshots
// are value copies; callers can hold them across later updates.
type Task struct {
	FileID    string
	FileName  string
	Status    Status
	Progress  int
	Error     string
	ImageID   string
	Duplicate bool
}

// ProgressFunc receives the complete per-batch task list after every state
// change, in submission order. Implementations must not retain the slice.
type ProgressFunc func(tasks []Task)

// Progress checkpoints for the coarse per-stage updates.
const (
	progressCompressing = 10
	progressUploading   = 50
	progressDone        = 100
)
