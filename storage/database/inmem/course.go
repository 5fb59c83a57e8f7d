package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darasalabs/darasa/core/course"
)

type CourseRepository struct {
	mu      sync.RWMutex
	courses map[string]course.Course
	tutors  map[string][]string // course ID -> tutor user IDs
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository() *CourseRepository {
	return &CourseRepository{
		courses: make(map[string]course.Course),
		tutors:  make(map[string][]string),
	}
}

func (repo *CourseRepository) CheckCourseTitleUniqueness(ctx context.Context, title string) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, crs := range repo.courses {
		if strings.EqualFold(crs.Title, title) {
			return course.ErrTitleExists
		}
	}
	return nil
}

func (repo *CourseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, existing := range repo.courses {
		if strings.EqualFold(existing.Title, crs.Title) {
			return course.Course{}, course.ErrTitleExists
		}
	}

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
	repo.courses[crs.ID] = crs
	return crs, nil
}

func (repo *CourseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	crs, ok := repo.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.TutorIDs = repo.tutors[id]
	return crs, nil
}

func (repo *CourseRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	_, ok := repo.courses[id]
	return ok, nil
}

func (repo *CourseRepository) QueryCoursesByType(ctx context.Context, courseType string, publishedOnly bool) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var courses []course.Course
	for _, crs := range repo.courses {
		if crs.CourseType != courseType {
			continue
		}
		if publishedOnly && (!crs.IsPublished || crs.IsDrafted) {
			continue
		}
		courses = append(courses, crs)
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *CourseRepository) QueryCoursesByTutor(ctx context.Context, userID, courseType string) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var courses []course.Course
	for _, crs := range repo.courses {
		if crs.CourseType != courseType {
			continue
		}
		if crs.OwnerID == userID || repo.isTutor(crs.ID, userID) {
			courses = append(courses, crs)
		}
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *CourseRepository) AttachTutors(ctx context.Context, courseID string, userIDs ...string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.courses[courseID]; !ok {
		return course.ErrNotFound
	}
	for _, userID := range userIDs {
		if !repo.isTutor(courseID, userID) {
			repo.tutors[courseID] = append(repo.tutors[courseID], userID)
		}
	}
	return nil
}

func (repo *CourseRepository) isTutor(courseID, userID string) bool {
	for _, id := range repo.tutors[courseID] {
		if id == userID {
			return true
		}
	}
	return false
}

func sortCourses(courses []course.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
}
