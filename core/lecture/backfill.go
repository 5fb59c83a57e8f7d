package lecture

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
)

// FetchVideoDetails is the metadata backfill unit of work. It fills in a
// lecture's video duration once the host has finished transcoding.
// Idempotent: re-running against an already-filled row overwrites the
// duration with the host's (same or refreshed) value. While the asset is
// still processing, or on a transport failure, a retryable error is
// returned so the scheduler re-dispatches within its bounded attempts;
// exhausting them leaves the duration permanently null.
func (svc *Service) FetchVideoDetails(ctx context.Context, task BackfillTask) error {
	details, err := svc.host.VideoDetails(ctx, task.RemoteVideoID)
	if err != nil {
		if herr, ok := core.IsHostRequestError(err); ok {
			// the host rejected the read outright; retrying won't help
			return errors.Wrapf(herr, "fetching video details for lecture %s", task.LectureID)
		}
		return core.NewRetryableError(errors.Wrapf(err, "fetching video details for lecture %s", task.LectureID))
	}
	if !details.Ready {
		return core.NewRetryableError(errors.Errorf("video %s still processing", task.RemoteVideoID))
	}

	if err = svc.repo.SetLectureDuration(ctx, task.LectureID, details.Duration); err != nil {
		return errors.Wrapf(err, "updating duration for lecture %s", task.LectureID)
	}
	svc.logger.Info("video duration backfilled", map[string]interface{}{
		"lecture_id":       task.LectureID,
		"remote_video_id":  task.RemoteVideoID,
		"duration_seconds": details.Duration,
	})
	return nil
}
