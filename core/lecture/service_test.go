package lecture_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/lecture"
	logsvc "github.com/darasalabs/darasa/services/logger"
	"github.com/darasalabs/darasa/storage/database/inmem"
)

type fakeHost struct {
	identity      core.HostIdentity
	identityErr   error
	identityCalls int

	uploadErr    error
	uploadCalls  int
	uploadMetas  []core.UploadMeta
	uploadPaths  []string
	failOnUpload int // 1-based index of the upload call that fails; 0 = honor uploadErr on all

	details    core.VideoDetails
	detailsErr error
}

func (h *fakeHost) Identity(ctx context.Context) (core.HostIdentity, error) {
	h.identityCalls++
	if h.identityErr != nil {
		return core.HostIdentity{}, h.identityErr
	}
	return h.identity, nil
}

func (h *fakeHost) Upload(ctx context.Context, filePath string, meta core.UploadMeta) (string, error) {
	h.uploadCalls++
	if h.failOnUpload == h.uploadCalls || (h.failOnUpload == 0 && h.uploadErr != nil) {
		return "", h.uploadErr
	}
	h.uploadMetas = append(h.uploadMetas, meta)
	h.uploadPaths = append(h.uploadPaths, filePath)
	return "/videos/123", nil
}

func (h *fakeHost) VideoDetails(ctx context.Context, remoteID string) (core.VideoDetails, error) {
	if h.detailsErr != nil {
		return core.VideoDetails{}, h.detailsErr
	}
	return h.details, nil
}

type fakeScheduler struct {
	tasks []interface{}
	err   error
}

func (s *fakeScheduler) Schedule(task string, payload interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, payload)
	return nil
}

type courseStoreStub struct {
	exists bool
}

func (c courseStoreStub) Exists(ctx context.Context, id string) (bool, error) {
	return c.exists, nil
}

func testConfig() *core.Config {
	return &core.Config{
		MaxUploadSize: 200 << 30,
		VideoHost: core.VideoHostConfig{
			ClientID:     "real-client-id",
			ClientSecret: "real-client-secret",
			AccessToken:  "real-token",
		},
	}
}

func videoFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("writing video file: %v", err)
	}
	return path
}

func newTestService(t *testing.T, conf *core.Config, host *fakeHost, sched *fakeScheduler) (*lecture.Service, *inmem.LectureRepository) {
	t.Helper()
	repo := inmem.NewLectureRepository()
	svc := lecture.NewService(
		repo, courseStoreStub{exists: true}, host, sched,
		logsvc.NewNopLogger(), validator.New(), conf,
	)
	return svc, repo
}

func Test_SubmitBatch_success(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{identity: core.HostIdentity{Name: "acct", UploadQuota: &core.UploadQuota{SpaceFree: 1 << 40}}}
	sched := &fakeScheduler{}
	svc, repo := newTestService(t, testConfig(), host, sched)

	subs := []lecture.Submission{
		{Title: "Intro", Order: 1, FilePath: videoFile(t, 64)},
		{Title: "Basics", Description: "part two", Order: 2, FilePath: videoFile(t, 64)},
	}
	res, err := svc.SubmitBatch(ctx, "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Uploaded != 2 || res.Failed != 0 {
		t.Errorf("got uploaded=%d failed=%d, want 2/0", res.Uploaded, res.Failed)
	}

	lectures, _ := repo.QueryLecturesByCourse(ctx, "course-1")
	if len(lectures) != 2 {
		t.Fatalf("got %d rows, want 2", len(lectures))
	}
	for _, lec := range lectures {
		if lec.VideoDuration.Valid {
			t.Errorf("lecture %q: duration should be null right after upload", lec.Title)
		}
		if lec.RemoteVideoID == "" {
			t.Errorf("lecture %q: missing remote video id", lec.Title)
		}
	}
	if len(sched.tasks) != 2 {
		t.Errorf("got %d scheduled tasks, want 2", len(sched.tasks))
	}
	if !strings.Contains(res.Message(), "Successfully uploaded 2 lecture(s)!") {
		t.Errorf("unexpected message %q", res.Message())
	}
}

func Test_SubmitBatch_emptyBatch(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), &fakeHost{}, &fakeScheduler{})
	_, err := svc.SubmitBatch(context.Background(), "course-1", nil)
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Errorf("got %v, want validation error", err)
	}
}

func Test_SubmitBatch_duplicateOrders(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{identity: core.HostIdentity{Name: "acct"}}
	svc, repo := newTestService(t, testConfig(), host, &fakeScheduler{})

	subs := []lecture.Submission{
		{Title: "A", Order: 3, FilePath: videoFile(t, 8)},
		{Title: "B", Order: 3, FilePath: videoFile(t, 8)},
	}
	_, err := svc.SubmitBatch(ctx, "course-1", subs)
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Fatalf("got %v, want validation error", err)
	}
	if host.identityCalls != 0 || len(host.uploadMetas) != 0 {
		t.Error("no host call may happen when the batch is rejected up front")
	}
	if lectures, _ := repo.QueryLecturesByCourse(ctx, "course-1"); len(lectures) != 0 {
		t.Errorf("got %d rows, want 0", len(lectures))
	}
}

func Test_SubmitBatch_placeholderCredentials(t *testing.T) {
	conf := testConfig()
	conf.VideoHost.ClientID = core.PlaceholderClientID
	host := &fakeHost{}
	svc, _ := newTestService(t, conf, host, &fakeScheduler{})

	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	_, err := svc.SubmitBatch(context.Background(), "course-1", subs)
	if errors.Cause(err) != core.ErrHostCredentialsNotConfigured {
		t.Errorf("got %v, want ErrHostCredentialsNotConfigured", err)
	}
	if host.identityCalls != 0 {
		t.Error("placeholder credentials must fail before any host call")
	}
}

func Test_SubmitBatch_courseNotFound(t *testing.T) {
	host := &fakeHost{}
	svc := lecture.NewService(
		inmem.NewLectureRepository(), courseStoreStub{exists: false}, host, &fakeScheduler{},
		logsvc.NewNopLogger(), validator.New(), testConfig(),
	)
	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	_, err := svc.SubmitBatch(context.Background(), "nope", subs)
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Errorf("got %v, want validation error", err)
	}
	if host.identityCalls != 0 {
		t.Error("unknown course must fail before any host call")
	}
}

func Test_SubmitBatch_partialFailure(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{
		identity:     core.HostIdentity{Name: "acct"},
		uploadErr:    errors.New("connection reset"),
		failOnUpload: 2,
	}
	sched := &fakeScheduler{}
	svc, repo := newTestService(t, testConfig(), host, sched)

	subs := []lecture.Submission{
		{Title: "A", Order: 1, FilePath: videoFile(t, 8)},
		{Title: "B", Order: 2, FilePath: videoFile(t, 8)},
		{Title: "C", Order: 3, FilePath: videoFile(t, 8)},
	}
	res, err := svc.SubmitBatch(ctx, "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Uploaded != 2 || res.Failed != 1 || len(res.Errors) != 1 {
		t.Errorf("got uploaded=%d failed=%d errors=%d, want 2/1/1", res.Uploaded, res.Failed, len(res.Errors))
	}
	if lectures, _ := repo.QueryLecturesByCourse(ctx, "course-1"); len(lectures) != 2 {
		t.Errorf("got %d rows, want 2: one per successful upload only", len(lectures))
	}
	if len(sched.tasks) != 2 {
		t.Errorf("got %d scheduled tasks, want 2", len(sched.tasks))
	}
}

func Test_SubmitBatch_fileTooLarge(t *testing.T) {
	conf := testConfig()
	conf.MaxUploadSize = 16
	host := &fakeHost{identity: core.HostIdentity{Name: "acct"}}
	svc, _ := newTestService(t, conf, host, &fakeScheduler{})

	subs := []lecture.Submission{{Title: "Huge", Order: 1, FilePath: videoFile(t, 64)}}
	res, err := svc.SubmitBatch(context.Background(), "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Failed != 1 || res.Uploaded != 0 {
		t.Fatalf("got uploaded=%d failed=%d, want 0/1", res.Uploaded, res.Failed)
	}
	if !strings.Contains(res.Errors[0], "too large") {
		t.Errorf("error %q should mention the size limit", res.Errors[0])
	}
	if len(host.uploadMetas) != 0 {
		t.Error("oversized file must not be uploaded")
	}
}

func Test_SubmitBatch_metadataTruncation(t *testing.T) {
	host := &fakeHost{identity: core.HostIdentity{Name: "acct"}}
	svc, _ := newTestService(t, testConfig(), host, &fakeScheduler{})

	subs := []lecture.Submission{{
		Title:       strings.Repeat("t", 200),
		Description: strings.Repeat("d", 6000),
		Order:       1,
		FilePath:    videoFile(t, 8),
	}}
	if _, err := svc.SubmitBatch(context.Background(), "course-1", subs); err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	meta := host.uploadMetas[0]
	if len(meta.Name) != core.HostVideoNameMaxLen {
		t.Errorf("got name length %d, want %d", len(meta.Name), core.HostVideoNameMaxLen)
	}
	if len(meta.Description) != core.HostVideoDescriptionMaxLen {
		t.Errorf("got description length %d, want %d", len(meta.Description), core.HostVideoDescriptionMaxLen)
	}
}

func Test_SubmitBatch_orderTaken(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{identity: core.HostIdentity{Name: "acct"}}
	svc, repo := newTestService(t, testConfig(), host, &fakeScheduler{})

	if _, err := repo.CreateLecture(ctx, lecture.Lecture{CourseID: "course-1", Title: "Existing", Order: 1, RemoteVideoID: "/videos/9"}); err != nil {
		t.Fatalf("seeding lecture: %v", err)
	}

	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	res, err := svc.SubmitBatch(ctx, "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("got failed=%d, want 1", res.Failed)
	}
	if !strings.Contains(res.Errors[0], lecture.ErrOrderTaken.Error()) {
		t.Errorf("error %q should mention the order conflict", res.Errors[0])
	}
}

func Test_SubmitBatch_appMismatchHint(t *testing.T) {
	host := &fakeHost{
		identity: core.HostIdentity{Name: "acct"},
		uploadErr: &core.HostRequestError{
			StatusCode:  403,
			ErrCode:     "8002",
			Description: "You can't upload videos with this app. Get in touch with the app's creator.",
		},
		failOnUpload: 1,
	}
	svc, _ := newTestService(t, testConfig(), host, &fakeScheduler{})

	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	res, err := svc.SubmitBatch(context.Background(), "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("got failed=%d, want 1", res.Failed)
	}
	if !strings.Contains(res.Errors[0], "SOLUTION") {
		t.Errorf("error %q should carry the app-mismatch hint", res.Errors[0])
	}
}

func Test_SubmitBatch_identityProbeFailure(t *testing.T) {
	host := &fakeHost{identityErr: errors.New("dial tcp: connection refused")}
	svc, repo := newTestService(t, testConfig(), host, &fakeScheduler{})

	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	res, err := svc.SubmitBatch(context.Background(), "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Failed != 1 || res.Uploaded != 0 {
		t.Errorf("got uploaded=%d failed=%d, want 0/1", res.Uploaded, res.Failed)
	}
	if !strings.Contains(res.Errors[0], "connection test failed") {
		t.Errorf("error %q should mention the connection test", res.Errors[0])
	}
	if lectures, _ := repo.QueryLecturesByCourse(context.Background(), "course-1"); len(lectures) != 0 {
		t.Errorf("got %d rows, want 0", len(lectures))
	}
}

func Test_SubmitBatch_schedulerFailureKeepsLecture(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{identity: core.HostIdentity{Name: "acct"}}
	sched := &fakeScheduler{err: errors.New("queue full")}
	svc, repo := newTestService(t, testConfig(), host, sched)

	subs := []lecture.Submission{{Title: "A", Order: 1, FilePath: videoFile(t, 8)}}
	res, err := svc.SubmitBatch(ctx, "course-1", subs)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if res.Uploaded != 1 || res.Failed != 0 {
		t.Errorf("got uploaded=%d failed=%d, want 1/0: a lost backfill is not an upload failure", res.Uploaded, res.Failed)
	}
	if lectures, _ := repo.QueryLecturesByCourse(ctx, "course-1"); len(lectures) != 1 {
		t.Errorf("got %d rows, want 1", len(lectures))
	}
}
