package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasalabs/darasa/core/lecture"
)

type lectureRepository struct {
	db *sqlx.DB
}

var _ lecture.Repository = (*lectureRepository)(nil)

func NewLectureRepository(db *sqlx.DB) *lectureRepository {
	return &lectureRepository{db: db}
}

type lectureRow struct {
	ID            string    `db:"id"`
	CourseID      string    `db:"course_id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	RemoteVideoID string    `db:"remote_video_id"`
	VideoDuration null.Int  `db:"video_duration"`
	Order         int       `db:"order"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row lectureRow) toLecture() lecture.Lecture {
	return lecture.Lecture{
		ID:            row.ID,
		CourseID:      row.CourseID,
		Title:         row.Title,
		Description:   row.Description,
		RemoteVideoID: row.RemoteVideoID,
		VideoDuration: row.VideoDuration,
		Order:         row.Order,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo lectureRepository) CreateLecture(ctx context.Context, lec lecture.Lecture) (lecture.Lecture, error) {
	if lec.ID == "" {
		lec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lec.CreatedAt.IsZero() {
		lec.CreatedAt = now
	}
	if lec.UpdatedAt.IsZero() {
		lec.UpdatedAt = now
	}

	query := `INSERT INTO lectures (id, course_id, title, description, remote_video_id, video_duration, "order", created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		lec.ID, lec.CourseID, lec.Title, lec.Description, lec.RemoteVideoID,
		lec.VideoDuration, lec.Order, lec.CreatedAt, lec.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok &&
			string(pqErr.Code) == uniqueViolation && pqErr.Constraint == "lectures_course_order_key" {
			return lecture.Lecture{}, lecture.ErrOrderTaken
		}
		return lecture.Lecture{}, errors.Wrap(err, "creating lecture")
	}
	return lec, nil
}

func (repo lectureRepository) GetLectureByID(ctx context.Context, id string) (lecture.Lecture, error) {
	var row lectureRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lectures WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return lecture.Lecture{}, lecture.ErrNotFound
		}
		return lecture.Lecture{}, errors.Wrap(err, "getting lecture")
	}
	return row.toLecture(), nil
}

func (repo lectureRepository) QueryLecturesByCourse(ctx context.Context, courseID string) ([]lecture.Lecture, error) {
	var rows []lectureRow
	query := `SELECT * FROM lectures WHERE course_id = $1 ORDER BY "order"`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	lectures := make([]lecture.Lecture, 0, len(rows))
	for _, row := range rows {
		lectures = append(lectures, row.toLecture())
	}
	return lectures, nil
}

func (repo lectureRepository) SetLectureDuration(ctx context.Context, id string, seconds int) error {
	query := `UPDATE lectures SET video_duration = $1, updated_at = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, seconds, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting lecture duration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lecture.ErrNotFound
	}
	return nil
}

func (repo lectureRepository) UsedOrders(ctx context.Context, courseID string) ([]int, error) {
	var orders []int
	query := `SELECT "order" FROM lectures WHERE course_id = $1 ORDER BY "order"`
	if err := repo.db.SelectContext(ctx, &orders, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying used orders")
	}
	return orders, nil
}
