package lecture

import (
	"fmt"
	"io"
	"time"

	"github.com/volatiletech/null/v8"
)

// TaskFetchVideoDetails is the scheduler task name for the metadata backfill.
const TaskFetchVideoDetails = "lecture:fetch-video-details"

type Lecture struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"course_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	RemoteVideoID string    `json:"remote_video_id"`
	VideoDuration null.Int  `json:"video_duration"` // seconds; null until the backfill runs
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// Submission is one pending lecture in a batch. The video arrives either as
// an already-staged local path or as a raw reader that gets copied to a
// temp file before upload. Submissions are transient; nothing is persisted
// until the upload for that item succeeds.
type Submission struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"required,min=1"`

	FilePath string    `json:"-"`
	File     io.Reader `json:"-"`
}

// BatchResult is the aggregate outcome of one batch: per-item failures are
// collected here instead of aborting sibling items.
type BatchResult struct {
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Message renders the user-facing summary: a success line with counts, or
// the first error plus a count of the remaining failures.
func (r BatchResult) Message() string {
	if r.Uploaded > 0 {
		msg := fmt.Sprintf("Successfully uploaded %d lecture(s)!", r.Uploaded)
		if r.Failed > 0 {
			msg += fmt.Sprintf(" %d lecture(s) failed to upload.", r.Failed)
		}
		return msg + " Video details will update soon."
	}
	if len(r.Errors) > 0 {
		msg := r.Errors[0]
		if len(r.Errors) > 1 {
			msg += fmt.Sprintf(" (+%d more failure(s))", len(r.Errors)-1)
		}
		return msg
	}
	return fmt.Sprintf("Failed to upload all %d lecture(s).", r.Failed)
}

// BackfillTask is the payload of one metadata backfill unit of work.
// Delivery is at-least-once; the handler is idempotent.
type BackfillTask struct {
	LectureID     string `json:"lecture_id"`
	RemoteVideoID string `json:"remote_video_id"`
}
