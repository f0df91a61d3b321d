package upload

// Outcome classifies a completed upload exchange.
type Outcome int

const (
	// OutcomeCreated means the server stored the image and created a record.
	OutcomeCreated Outcome = iota
	// OutcomeDuplicate means identical content already exists for this user.
	// Treated the same as OutcomeCreated for queue-removal purposes.
	OutcomeDuplicate
	// OutcomeRejected covers validation, ownership, quota, and rate-limit
	// rejections plus server-side failures.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Response is the interpreted result of one upload exchange.
type Response struct {
	Outcome       Outcome
	ImageID       string
	ExistingID    string
	ExistingTitle string
	Reason        string
	StatusCode    int
}

// Delivered reports whether the server has confirmed it holds this content,
// either as a new record or as a pre-existing duplicate.
func (r *Response) Delivered() bool {
	return r.Outcome == OutcomeCreated || r.Outcome == OutcomeDuplicate
}
