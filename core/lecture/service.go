package lecture

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("lecture not found")
	ErrOrderTaken     = errors.New("this order is already taken for the course")
	errDuplicateOrder = errors.New("lecture order must be unique within the same course")
	errCourseNotFound = errors.New("course not found")

	// appMismatchHint is appended to host rejections that match the known
	// wrong-scope/wrong-app phrasings.
	appMismatchHint = " | SOLUTION: the access token must have the upload scope AND must be issued " +
		"for the SAME host application as the client id/secret."
)

type (
	Repository interface {
		// CreateLecture returns ErrOrderTaken when (course, order) is already used.
		CreateLecture(ctx context.Context, lec Lecture) (Lecture, error)
		GetLectureByID(ctx context.Context, id string) (Lecture, error)
		QueryLecturesByCourse(ctx context.Context, courseID string) ([]Lecture, error)
		// SetLectureDuration updates exactly the duration field of one row.
		SetLectureDuration(ctx context.Context, id string, seconds int) error
		UsedOrders(ctx context.Context, courseID string) ([]int, error)
	}

	// CourseStore is the course collaborator consumed by the orchestrator.
	CourseStore interface {
		Exists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo     Repository
		courses  CourseStore
		host     core.VideoHostService
		sched    core.TaskScheduler
		logger   core.Logger
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	courses CourseStore,
	host core.VideoHostService,
	sched core.TaskScheduler,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		host:     host,
		sched:    sched,
		logger:   logger,
		validate: validate,
		conf:     conf,
	}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lecture, error) {
	return svc.repo.GetLectureByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Lecture, error) {
	return svc.repo.QueryLecturesByCourse(ctx, courseID)
}

func (svc *Service) UsedOrders(ctx context.Context, courseID string) ([]int, error) {
	return svc.repo.UsedOrders(ctx, courseID)
}

// SubmitBatch uploads a batch of lecture submissions for one course,
// sequentially and in input order. Whole-batch preconditions (submission
// validity, pairwise-distinct orders, course existence, configured
// credentials) are checked before any network call; after that every
// failure is per-item and the remaining items proceed. One Lecture row is
// created per successful upload, with a null duration and a scheduled
// backfill task.
func (svc *Service) SubmitBatch(ctx context.Context, courseID string, subs []Submission) (BatchResult, error) {
	var res BatchResult

	if len(subs) == 0 {
		return res, core.NewValidationError(errors.New("no lectures submitted"))
	}
	for i := range subs {
		subs[i].Title = core.CleanString(subs[i].Title)
		if err := svc.validate.Struct(&subs[i]); err != nil {
			return res, err
		}
	}
	if err := checkDistinctOrders(subs); err != nil {
		return res, err
	}

	exists, err := svc.courses.Exists(ctx, courseID)
	if err != nil {
		return res, errors.Wrap(err, "checking course")
	}
	if !exists {
		return res, core.NewValidationError(errCourseNotFound, core.FieldError{Field: "course_id", Error: errCourseNotFound.Error()})
	}

	if err = svc.checkCredentials(); err != nil {
		return res, err
	}

	for i := range subs {
		if err := svc.processSubmission(ctx, courseID, &subs[i], &res); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err.Error())
			svc.logger.Error("lecture upload failed", err, map[string]interface{}{
				"lecture_title": subs[i].Title,
				"order":         subs[i].Order,
			})
		}
	}
	return res, nil
}

func checkDistinctOrders(subs []Submission) error {
	seen := make(map[int]struct{}, len(subs))
	for _, sub := range subs {
		if _, dup := seen[sub.Order]; dup {
			return core.NewValidationError(errDuplicateOrder, core.FieldError{Field: "order", Error: errDuplicateOrder.Error()})
		}
		seen[sub.Order] = struct{}{}
	}
	return nil
}

// checkCredentials is the static gate: presence and non-placeholder values
// only. Cross-app token mismatches surface later on the live identity probe.
func (svc *Service) checkCredentials() error {
	vh := svc.conf.VideoHost
	if err := vh.Validate(); err != nil {
		svc.logger.Error("video host credentials missing or invalid", map[string]interface{}{
			"client_id_set":     vh.ClientID != "" && vh.ClientID != core.PlaceholderClientID,
			"client_secret_set": vh.ClientSecret != "" && vh.ClientSecret != core.PlaceholderClientSecret,
			"access_token_set":  vh.AccessToken != "",
		})
		return err
	}
	// lengths and prefixes only; full secret values never hit the logs
	svc.logger.Info("video host credentials verified", map[string]interface{}{
		"client_id_length":     len(vh.ClientID),
		"client_secret_length": len(vh.ClientSecret),
		"access_token_length":  len(vh.AccessToken),
		"client_id_prefix":     core.SecretPrefix(vh.ClientID, 10),
		"access_token_prefix":  core.SecretPrefix(vh.AccessToken, 15),
	})
	return nil
}

// processSubmission handles one item; a returned error is that item's
// failure and never aborts the batch.
func (svc *Service) processSubmission(ctx context.Context, courseID string, sub *Submission, res *BatchResult) error {
	path, cleanup, err := svc.resolveFile(sub)
	if err != nil {
		return errors.Wrapf(err, "video file is not accessible for lecture %q", sub.Title)
	}
	defer cleanup()

	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "video file is not accessible for lecture %q", sub.Title)
	}
	if fi.Size() > svc.conf.MaxUploadSize {
		return errors.Errorf("video file for %q is too large (%s); maximum size is %s",
			sub.Title, core.FormatBytes(fi.Size()), core.FormatBytes(svc.conf.MaxUploadSize))
	}

	meta := core.UploadMeta{
		Name:        core.TruncateString(sub.Title, core.HostVideoNameMaxLen),
		Description: core.TruncateString(sub.Description, core.HostVideoDescriptionMaxLen),
	}

	// connectivity probe: a static credential check cannot detect a token
	// issued for a different host application, a live read can
	identity, err := svc.host.Identity(ctx)
	if err != nil {
		return errors.Wrapf(err, "video host connection test failed for lecture %q", sub.Title)
	}
	if identity.UploadQuota == nil {
		svc.logger.Warn("video host account may not have upload capability", map[string]interface{}{
			"account": identity.Name,
		})
	}

	svc.logger.Info("attempting video upload", map[string]interface{}{
		"file_path":     path,
		"file_size":     fi.Size(),
		"lecture_title": sub.Title,
	})

	remoteID, err := svc.host.Upload(ctx, path, meta)
	if err != nil {
		return svc.uploadError(sub.Title, err)
	}

	lec, err := svc.repo.CreateLecture(ctx, Lecture{
		CourseID:      courseID,
		Title:         sub.Title,
		Description:   sub.Description,
		RemoteVideoID: remoteID,
		Order:         sub.Order,
	})
	if err != nil {
		return errors.Wrapf(err, "saving lecture %q", sub.Title)
	}

	if err = svc.sched.Schedule(TaskFetchVideoDetails, BackfillTask{
		LectureID:     lec.ID,
		RemoteVideoID: remoteID,
	}); err != nil {
		// the lecture exists; only the duration backfill is lost
		svc.logger.Error("scheduling video details backfill", err, map[string]interface{}{
			"lecture_id": lec.ID,
		})
	}

	res.Uploaded++
	return nil
}

// resolveFile returns a readable local path for the submission's video,
// staging the reader into a temp file when no usable path was provided.
// cleanup removes the temp copy, if any.
func (svc *Service) resolveFile(sub *Submission) (path string, cleanup func(), err error) {
	cleanup = func() {}

	if sub.FilePath != "" {
		if fi, statErr := os.Stat(sub.FilePath); statErr == nil && fi.Mode().IsRegular() {
			return sub.FilePath, cleanup, nil
		}
	}
	if sub.File == nil {
		return "", cleanup, errors.New("no readable video file")
	}

	tmp, err := os.CreateTemp("", "lecture_*.video")
	if err != nil {
		return "", cleanup, errors.Wrap(err, "staging temp copy")
	}
	cleanup = func() { _ = os.Remove(tmp.Name()) }
	if _, err = io.Copy(tmp, sub.File); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", func() {}, errors.Wrap(err, "staging temp copy")
	}
	if err = tmp.Close(); err != nil {
		cleanup()
		return "", func() {}, errors.Wrap(err, "staging temp copy")
	}
	return tmp.Name(), cleanup, nil
}

// uploadError shapes a host upload failure into the per-item message,
// appending the app-mismatch hint for the known rejection phrasings.
func (svc *Service) uploadError(title string, err error) error {
	if herr, ok := core.IsHostRequestError(err); ok {
		msg := fmt.Sprintf("video host error for %q: %v", title, herr)
		lower := strings.ToLower(herr.Error())
		if strings.Contains(lower, "can't upload") || strings.Contains(lower, "get in touch with the app's creator") {
			msg += appMismatchHint
		}
		return errors.New(msg)
	}
	return errors.Wrapf(err, "upload error for %q", title)
}
