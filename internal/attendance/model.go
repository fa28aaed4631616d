package attendance

import "time"

// Status is the closed set of attendance marks.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Record is one attendance mark. (StudentID, ClassID, SessionDate) is
// unique; TopicID and Photo are optional.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassID     string    `json:"class_id"`
	TopicID     *string   `json:"topic_id,omitempty"`
	Photo       *string   `json:"photo,omitempty"`
	Status      Status    `json:"status"`
	SessionDate time.Time `json:"session_date"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is the caller-supplied input for recording attendance.
type Entry struct {
	StudentID   string
	ClassID     string
	TopicID     *string
	Photo       *string
	Status      Status
	SessionDate time.Time
}

// Correction replaces an existing record's mutable fields wholesale.
type Correction struct {
	Status  Status
	TopicID *string
	Photo   *string
}

// Filter narrows listing and aggregation. Zero values mean "no
// restriction"; ClassIDs is the guard's pre-filter for teachers and
// wins only when ClassID is unset.
type Filter struct {
	ClassID   string
	ClassIDs  []string
	StudentID string
	TopicID   string
	Status    Status
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
