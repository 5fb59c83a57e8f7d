package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CourseType  string    `db:"course_type"`
	IsPublished bool      `db:"is_published"`
	IsDrafted   bool      `db:"is_drafted"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description,
		CourseType:  row.CourseType,
		IsPublished: row.IsPublished,
		IsDrafted:   row.IsDrafted,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo courseRepository) CheckCourseTitleUniqueness(ctx context.Context, title string) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE lower(title) = lower($1))`
	if err := repo.db.GetContext(ctx, &exists, query, title); err != nil {
		return errors.Wrap(err, "checking course title")
	}
	if exists {
		return course.ErrTitleExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if crs.CreatedAt.IsZero() {
		crs.CreatedAt = now
	}
	if crs.UpdatedAt.IsZero() {
		crs.UpdatedAt = now
	}

	query := `INSERT INTO courses (id, owner_id, title, description, course_type, is_published, is_drafted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		crs.ID, crs.OwnerID, crs.Title, crs.Description, crs.CourseType,
		crs.IsPublished, crs.IsDrafted, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok &&
			string(pqErr.Code) == uniqueViolation && pqErr.Constraint == "courses_title_key" {
			return course.Course{}, course.ErrTitleExists
		}
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	crs := row.toCourse()

	tutorIDs, err := repo.tutorIDs(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	crs.TutorIDs = tutorIDs
	return crs, nil
}

func (repo courseRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, errors.Wrap(err, "checking course")
	}
	return exists, nil
}

func (repo courseRepository) QueryCoursesByType(ctx context.Context, courseType string, publishedOnly bool) ([]course.Course, error) {
	query := `SELECT * FROM courses WHERE course_type = $1`
	if publishedOnly {
		query += ` AND is_published AND NOT is_drafted`
	}
	query += ` ORDER BY created_at DESC`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, courseType); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.toCourses(rows), nil
}

func (repo courseRepository) QueryCoursesByTutor(ctx context.Context, userID, courseType string) ([]course.Course, error) {
	query := `SELECT * FROM courses
WHERE course_type = $1
  AND (owner_id = $2 OR id IN (SELECT course_id FROM course_tutors WHERE user_id = $2))
ORDER BY created_at DESC`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, courseType, userID); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.toCourses(rows), nil
}

func (repo courseRepository) AttachTutors(ctx context.Context, courseID string, userIDs ...string) error {
	query := `INSERT INTO course_tutors (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, userID := range userIDs {
		if _, err := repo.db.ExecContext(ctx, query, courseID, userID); err != nil {
			return errors.Wrap(err, "attaching tutor")
		}
	}
	return nil
}

func (repo courseRepository) tutorIDs(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	query := `SELECT user_id FROM course_tutors WHERE course_id = $1`
	if err := repo.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, errors.Wrap(err, "getting course tutors")
	}
	return ids, nil
}

func (repo courseRepository) toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses
}
