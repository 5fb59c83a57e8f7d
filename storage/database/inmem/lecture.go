package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/darasalabs/darasa/core/lecture"
)

type LectureRepository struct {
	mu       sync.RWMutex
	lectures map[string]lecture.Lecture
}

var _ lecture.Repository = (*LectureRepository)(nil)

func NewLectureRepository() *LectureRepository {
	return &LectureRepository{lectures: make(map[string]lecture.Lecture)}
}

func (repo *LectureRepository) CreateLecture(ctx context.Context, lec lecture.Lecture) (lecture.Lecture, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, existing := range repo.lectures {
		if existing.CourseID == lec.CourseID && existing.Order == lec.Order {
			return lecture.Lecture{}, lecture.ErrOrderTaken
		}
	}

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
	repo.lectures[lec.ID] = lec
	return lec, nil
}

func (repo *LectureRepository) GetLectureByID(ctx context.Context, id string) (lecture.Lecture, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	lec, ok := repo.lectures[id]
	if !ok {
		return lecture.Lecture{}, lecture.ErrNotFound
	}
	return lec, nil
}

func (repo *LectureRepository) QueryLecturesByCourse(ctx context.Context, courseID string) ([]lecture.Lecture, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var lectures []lecture.Lecture
	for _, lec := range repo.lectures {
		if lec.CourseID == courseID {
			lectures = append(lectures, lec)
		}
	}
	sort.Slice(lectures, func(i, j int) bool { return lectures[i].Order < lectures[j].Order })
	return lectures, nil
}

func (repo *LectureRepository) SetLectureDuration(ctx context.Context, id string, seconds int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	lec, ok := repo.lectures[id]
	if !ok {
		return lecture.ErrNotFound
	}
	lec.VideoDuration = null.IntFrom(seconds)
	lec.UpdatedAt = time.Now().UTC()
	repo.lectures[id] = lec
	return nil
}

func (repo *LectureRepository) UsedOrders(ctx context.Context, courseID string) ([]int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var orders []int
	for _, lec := range repo.lectures {
		if lec.CourseID == courseID {
			orders = append(orders, lec.Order)
		}
	}
	sort.Ints(orders)
	return orders, nil
}
