package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasalabs/darasa/core"
)

// Course types
const (
	TypeRecorded = "recorded"
	TypeLive     = "live"
)

type Course struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CourseType  string    `json:"course_type"`
	IsPublished bool      `json:"is_published"`
	IsDrafted   bool      `json:"is_drafted"`
	TutorIDs    []string  `json:"tutor_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required,max=35"`
	Description string   `json:"description" validate:"required"`
	CourseType  string   `json:"course_type" validate:"required,oneof=recorded live"`
	IsPublished bool     `json:"is_published"`
	IsDrafted   bool     `json:"is_drafted"`
	TutorIDs    []string `json:"tutor_ids"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckTitleUniqueness(ctx, nc.Title)
}
