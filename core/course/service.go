package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("course not found")
	ErrTitleExists = errors.New("a course with this title already exists")
)

type (
	Repository interface {
		CheckCourseTitleUniqueness(ctx context.Context, title string) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		CourseExists(ctx context.Context, id string) (bool, error)
		// QueryCoursesByType returns courses of the given type; published
		// filters to published, non-draft courses when true.
		QueryCoursesByType(ctx context.Context, courseType string, publishedOnly bool) ([]Course, error)
		// QueryCoursesByTutor returns courses owned by or tutored by the user,
		// regardless of publication status.
		QueryCoursesByTutor(ctx context.Context, userID, courseType string) ([]Course, error)
		AttachTutors(ctx context.Context, courseID string, userIDs ...string) error
	}

	Service struct {
		repo   Repository
		usrSvc user.ServiceInterface
	}
)

func NewService(repo Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

func (svc *Service) CheckTitleUniqueness(ctx context.Context, title string) error {
	if err := svc.repo.CheckCourseTitleUniqueness(ctx, title); err != nil {
		if err == ErrTitleExists {
			return core.NewValidationError(err, core.FieldError{Field: "title", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ownerID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		OwnerID:     ownerID,
		Title:       nc.Title,
		Description: nc.Description,
		CourseType:  nc.CourseType,
		IsPublished: nc.IsPublished,
		IsDrafted:   nc.IsDrafted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	if len(nc.TutorIDs) > 0 {
		if err = svc.AttachTutors(ctx, crs.ID, nc.TutorIDs...); err != nil {
			return Course{}, err
		}
		crs.TutorIDs = nc.TutorIDs
	}
	return crs, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Exists(ctx context.Context, id string) (bool, error) {
	return svc.repo.CourseExists(ctx, id)
}

// RecordedCoursesFor returns the recorded courses visible to a user:
// admins see all published, non-draft courses; instructors see every
// course they own or tutor regardless of status; students see none.
func (svc *Service) RecordedCoursesFor(ctx context.Context, usr user.User) ([]Course, error) {
	switch {
	case usr.IsAdmin():
		return svc.repo.QueryCoursesByType(ctx, TypeRecorded, true /* publishedOnly */)
	case usr.IsInstructor():
		return svc.repo.QueryCoursesByTutor(ctx, usr.ID, TypeRecorded)
	}
	return nil, nil
}

// AttachTutors links instructor users to a course. Every referenced user
// must exist and hold the instructor role.
func (svc *Service) AttachTutors(ctx context.Context, courseID string, userIDs ...string) error {
	exists, err := svc.repo.CourseExists(ctx, courseID)
	if err != nil {
		return err
	}
	if !exists {
		return core.NewValidationError(ErrNotFound, core.FieldError{Field: "course_id", Error: ErrNotFound.Error()})
	}
	for _, id := range userIDs {
		usr, err := svc.usrSvc.GetByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "tutor_ids", Error: "tutor not found: " + id})
			}
			return errors.Wrap(err, "finding tutor")
		}
		if !usr.IsInstructor() {
			return core.NewValidationError(
				errors.New("tutor is not an instructor"),
				core.FieldError{Field: "tutor_ids", Error: "user is not an instructor: " + id},
			)
		}
	}
	return svc.repo.AttachTutors(ctx, courseID, userIDs...)
}
