package lecture_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/lecture"
	logsvc "github.com/darasalabs/darasa/services/logger"
	"github.com/darasalabs/darasa/storage/database/inmem"
)

func seedLecture(t *testing.T, repo *inmem.LectureRepository) lecture.Lecture {
	t.Helper()
	lec, err := repo.CreateLecture(context.Background(), lecture.Lecture{
		CourseID:      "course-1",
		Title:         "Intro",
		RemoteVideoID: "/videos/123",
		Order:         1,
	})
	if err != nil {
		t.Fatalf("seeding lecture: %v", err)
	}
	return lec
}

func Test_FetchVideoDetails_setsDuration(t *testing.T) {
	ctx := context.Background()
	repo := inmem.NewLectureRepository()
	lec := seedLecture(t, repo)

	host := &fakeHost{details: core.VideoDetails{URI: "/videos/123", Duration: 754, Ready: true}}
	svc := lecture.NewService(repo, courseStoreStub{exists: true}, host, &fakeScheduler{},
		logsvc.NewNopLogger(), validator.New(), testConfig())

	task := lecture.BackfillTask{LectureID: lec.ID, RemoteVideoID: lec.RemoteVideoID}
	if err := svc.FetchVideoDetails(ctx, task); err != nil {
		t.Fatalf("FetchVideoDetails() error = %v", err)
	}

	got, _ := repo.GetLectureByID(ctx, lec.ID)
	if !got.VideoDuration.Valid || got.VideoDuration.Int != 754 {
		t.Errorf("got duration %+v, want 754", got.VideoDuration)
	}

	// re-delivery is harmless
	if err := svc.FetchVideoDetails(ctx, task); err != nil {
		t.Fatalf("FetchVideoDetails() on redelivery error = %v", err)
	}
	got, _ = repo.GetLectureByID(ctx, lec.ID)
	if !got.VideoDuration.Valid || got.VideoDuration.Int != 754 {
		t.Errorf("redelivery changed duration to %+v", got.VideoDuration)
	}
}

func Test_FetchVideoDetails_stillProcessing(t *testing.T) {
	ctx := context.Background()
	repo := inmem.NewLectureRepository()
	lec := seedLecture(t, repo)

	host := &fakeHost{details: core.VideoDetails{URI: "/videos/123", Duration: 0, Ready: false}}
	svc := lecture.NewService(repo, courseStoreStub{exists: true}, host, &fakeScheduler{},
		logsvc.NewNopLogger(), validator.New(), testConfig())

	err := svc.FetchVideoDetails(ctx, lecture.BackfillTask{LectureID: lec.ID, RemoteVideoID: lec.RemoteVideoID})
	if !core.IsRetryable(err) {
		t.Fatalf("got %v, want retryable error while transcoding", err)
	}

	got, _ := repo.GetLectureByID(ctx, lec.ID)
	if got.VideoDuration.Valid {
		t.Error("duration must stay null while the video is processing")
	}
}

func Test_FetchVideoDetails_transportFailureIsRetryable(t *testing.T) {
	repo := inmem.NewLectureRepository()
	lec := seedLecture(t, repo)

	host := &fakeHost{detailsErr: errors.New("dial tcp: i/o timeout")}
	svc := lecture.NewService(repo, courseStoreStub{exists: true}, host, &fakeScheduler{},
		logsvc.NewNopLogger(), validator.New(), testConfig())

	err := svc.FetchVideoDetails(context.Background(), lecture.BackfillTask{LectureID: lec.ID, RemoteVideoID: lec.RemoteVideoID})
	if !core.IsRetryable(err) {
		t.Errorf("got %v, want retryable error", err)
	}
}

func Test_FetchVideoDetails_hostRejectionIsPermanent(t *testing.T) {
	ctx := context.Background()
	repo := inmem.NewLectureRepository()
	lec := seedLecture(t, repo)

	host := &fakeHost{detailsErr: &core.HostRequestError{StatusCode: 404, ErrCode: "not found"}}
	svc := lecture.NewService(repo, courseStoreStub{exists: true}, host, &fakeScheduler{},
		logsvc.NewNopLogger(), validator.New(), testConfig())

	err := svc.FetchVideoDetails(ctx, lecture.BackfillTask{LectureID: lec.ID, RemoteVideoID: lec.RemoteVideoID})
	if err == nil || core.IsRetryable(err) {
		t.Fatalf("got %v, want permanent error on host rejection", err)
	}

	got, _ := repo.GetLectureByID(ctx, lec.ID)
	if got.VideoDuration.Valid {
		t.Error("duration must stay null after a permanent failure")
	}
}
