package ingest

// Report summarizes a finished batch. Tasks are in submission order and all
// carry terminal statuses.
type Report struct {
	Tasks      []Task
	Succeeded  int
	Failed     int
	Queued     int
	Duplicates int
}

// NewReport tallies a finished task list into a Report.
func NewReport(tasks []Task) *Report {
	report := &Report{Tasks: tasks}
	for _, task := range tasks {
		switch {
		case task.Status == StatusSuccess:
			report.Succeeded++
		case task.Status == StatusQueued:
			report.Queued++
		case task.Duplicate:
			report.Duplicates++
		default:
			report.Failed++
		}
	}
	return report
}

// Delivered reports whether every file either reached the server or was
// handed to the offline queue. Duplicates count as delivered since the
// content already exists remotely.
func (r *Report) Delivered() bool {
	return r.Failed == 0
}

// FailedFiles returns the original inputs for tasks that failed outright,
// preserving submission order. Duplicates and queued files are excluded;
// retrying them would not change the outcome. The files slice must be the
// one passed to Run for this report.
func (r *Report) FailedFiles(files []File) []File {
	var out []File
	for i, task := range r.Tasks {
		if i >= len(files) {
			break
		}
		if task.Status == StatusError && !task.Duplicate {
			out = append(out, files[i])
		}
	}
	return out
}
