package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/course"
	"github.com/darasalabs/darasa/core/lecture"
	"github.com/darasalabs/darasa/core/setting"
	"github.com/darasalabs/darasa/core/user"
	emailsvc "github.com/darasalabs/darasa/services/email"
	logsvc "github.com/darasalabs/darasa/services/logger"
	"github.com/darasalabs/darasa/storage/database/inmem"
)

type (
	stubHost      struct{}
	stubScheduler struct{}
)

func (stubHost) Identity(context.Context) (core.HostIdentity, error) {
	return core.HostIdentity{Name: "Test Account"}, nil
}
func (stubHost) Upload(context.Context, string, core.UploadMeta) (string, error) {
	return "/videos/1", nil
}
func (stubHost) VideoDetails(context.Context, string) (core.VideoDetails, error) {
	return core.VideoDetails{}, nil
}
func (stubScheduler) Schedule(string, interface{}) error { return nil }

func setupServer(t *testing.T) (Server, user.ServiceInterface) {
	t.Helper()

	conf := &core.Config{AppName: "Darasa", SecretKey: "secret", TestMode: true}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	conf.MaxUploadSize = 200 << 30

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(inmem.NewUserRepository(), mailSvc, conf)
	crsSvc := course.NewService(inmem.NewCourseRepository(), usrSvc)
	lecSvc := lecture.NewService(
		inmem.NewLectureRepository(), crsSvc, stubHost{}, stubScheduler{}, logsvc.NewNopLogger(), validate, conf)
	setSvc := setting.NewService(inmem.NewSettingRepository())

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logsvc.NewNopLogger(),
		UserSvc:    usrSvc,
		CourseSvc:  crsSvc,
		LectureSvc: lecSvc,
		SettingSvc: setSvc,
		Validate:   validate,
		Translator: translator,
	})
	return app, usrSvc
}

func createUser(t *testing.T, svc user.ServiceInterface, name, uname, email string, roles []string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        "LePassword007",
		PasswordConfirm: "LePassword007",
		Roles:           roles,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func doRequest(app Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestHome(t *testing.T) {
	app, _ := setupServer(t)

	rec := doRequest(app, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Welcome to Darasa API!") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUserAPI_authRequired(t *testing.T) {
	app, _ := setupServer(t)

	rec := doRequest(app, http.MethodGet, "/v1/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}
}

func TestUserAPI_adminRequired(t *testing.T) {
	app, usrSvc := setupServer(t)
	student := createUser(t, usrSvc, "Hero", "hero01", "hero@test.cd", user.StudentRoles)

	rec := doRequest(app, http.MethodGet, "/v1/users", getToken(t, student), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusForbidden, rec.Body.String())
	}
}

func TestUserAPI_login(t *testing.T) {
	app, usrSvc := setupServer(t)
	createUser(t, usrSvc, "Admin", "admin1", "admin@test.cd", user.AdminRoles)

	body := []byte(`{"username": "admin1", "password": "LePassword007"}`)
	rec := doRequest(app, http.MethodPost, "/v1/users/login", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if res.Token == "" {
		t.Error("login returned an empty token")
	}

	// wrong password
	body = []byte(`{"username": "admin1", "password": "nope"}`)
	rec = doRequest(app, http.MethodPost, "/v1/users/login", "", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func TestUserAPI_query(t *testing.T) {
	app, usrSvc := setupServer(t)
	admin := createUser(t, usrSvc, "Admin", "admin1", "admin@test.cd", user.AdminRoles)
	createUser(t, usrSvc, "Hero", "hero01", "hero@test.cd", user.StudentRoles)

	rec := doRequest(app, http.MethodGet, "/v1/users", getToken(t, admin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var users []user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}

func TestUserAPI_deactivate(t *testing.T) {
	app, usrSvc := setupServer(t)
	admin := createUser(t, usrSvc, "Admin", "admin1", "admin@test.cd", user.AdminRoles)
	owner := createUser(t, usrSvc, "Owner", "owner1", "owner@test.cd", []string{user.RoleAdminOwner})
	student := createUser(t, usrSvc, "Hero", "hero01", "hero@test.cd", user.StudentRoles)
	token := getToken(t, admin)

	rec := doRequest(app, http.MethodPost, "/v1/users/"+student.ID+"/deactivate", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if usr.IsActive == nil || *usr.IsActive {
		t.Error("user is still active after deactivation")
	}

	// owner account stays untouchable
	rec = doRequest(app, http.MethodPost, "/v1/users/"+owner.ID+"/deactivate", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusForbidden, rec.Body.String())
	}
}

func TestSettingAPI_pagination(t *testing.T) {
	app, usrSvc := setupServer(t)
	admin := createUser(t, usrSvc, "Admin", "admin1", "admin@test.cd", user.AdminRoles)
	student := createUser(t, usrSvc, "Hero", "hero01", "hero@test.cd", user.StudentRoles)
	token := getToken(t, admin)
	path := "/v1/settings/" + setting.KeyStudentsPerPage

	rec := doRequest(app, http.MethodPut, path, getToken(t, student), []byte(`{"value": "50"}`))
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	// out of range
	rec = doRequest(app, http.MethodPut, path, token, []byte(`{"value": "3"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	rec = doRequest(app, http.MethodPut, path, token, []byte(`{"value": "50"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = doRequest(app, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var res struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if res.Value != "50" {
		t.Errorf("value = %q; want %q", res.Value, "50")
	}
}
