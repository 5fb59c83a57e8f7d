package user

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/darasalabs/darasa/core"
	emailsvc "github.com/darasalabs/darasa/services/email"
)

type csvTestRepo struct {
	Repository
	users []User
}

func newCSVTestRepo(users ...User) *csvTestRepo {
	return &csvTestRepo{users: users}
}

func (repo *csvTestRepo) FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	return repo.users, nil
}

func (repo *csvTestRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error {
	for _, usr := range repo.users {
		if email != "" && usr.Email == email {
			return ErrEmailExists
		}
		if username != "" && usr.Username == username {
			return ErrUsernameExists
		}
	}
	return nil
}

func (repo *csvTestRepo) CreateUser(ctx context.Context, usr User) (User, error) {
	repo.users = append(repo.users, usr)
	return usr, nil
}

func csvTestService(repo Repository) *service {
	conf := &core.Config{AppName: "Darasa", DefaultFromEmail: "noreply@test.test"}
	return NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf)
}

func TestExportCSV(t *testing.T) {
	active := true
	blocked := false
	now := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newCSVTestRepo(
		User{Name: "Jo Aden", Username: "joaden", Email: "jo@test.test", IsActive: &active,
			Roles: []string{RoleAdmin}, EmailVerifiedAt: now, CreatedAt: now},
		User{Name: "Sam Oba", Username: "samoba", Email: "sam@test.test", IsActive: &blocked,
			Roles: []string{RoleStudent}, CreatedAt: now},
	)
	svc := csvTestService(repo)

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &buf, QueryFilter{}); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\xEF\xBB\xBF") {
		t.Error("output should start with a UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if lines[0] != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Admin") || !strings.Contains(lines[1], "Verified") || !strings.Contains(lines[1], "Active") {
		t.Errorf("unexpected admin row %q", lines[1])
	}
	if !strings.Contains(lines[2], "Student") || !strings.Contains(lines[2], "Unverified") || !strings.Contains(lines[2], "Blocked") {
		t.Errorf("unexpected student row %q", lines[2])
	}
}

func TestImportCSV(t *testing.T) {
	repo := newCSVTestRepo(User{Name: "Already There", Username: "taken", Email: "taken@test.test"})
	svc := csvTestService(repo)

	in := strings.Join([]string{
		"Name,Username,Email,Role",
		"New Admin,newadmin,admin@test.test,Admin",
		"New Instructor,newtutor,tutor@test.test,Instructor",
		",,nameless@test.test,",
		"Dup,dup,taken@test.test,Student",
		",,,",
		"No Email,noemail,,Student",
	}, "\n")

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if res.Created != 3 {
		t.Errorf("got created=%d, want 3", res.Created)
	}
	if res.Failed != 2 {
		t.Errorf("got failed=%d, want 2 (duplicate email, missing email); errors: %v", res.Failed, res.Errors)
	}

	byEmail := make(map[string]User, len(repo.users))
	for _, usr := range repo.users {
		byEmail[usr.Email] = usr
	}
	if usr := byEmail["admin@test.test"]; len(usr.Roles) != 1 || usr.Roles[0] != RoleAdmin {
		t.Errorf("admin row got roles %v", usr.Roles)
	}
	if usr := byEmail["tutor@test.test"]; len(usr.Roles) != 1 || usr.Roles[0] != RoleInstructor {
		t.Errorf("instructor row got roles %v", usr.Roles)
	}
	usr, ok := byEmail["nameless@test.test"]
	if !ok {
		t.Fatal("nameless row should be imported as a student")
	}
	if usr.Name != "nameless@test.test" {
		t.Errorf("nameless row should fall back to the email as name, got %q", usr.Name)
	}
	if len(usr.Roles) != 1 || usr.Roles[0] != RoleStudent {
		t.Errorf("nameless row got roles %v, want student", usr.Roles)
	}
	if len(usr.PasswordHash) == 0 {
		t.Error("imported users must get a random password hash")
	}
}

func TestImportCSV_missingEmailColumn(t *testing.T) {
	svc := csvTestService(newCSVTestRepo())
	_, err := svc.ImportCSV(context.Background(), strings.NewReader("Name,Username\nfoo,bar\n"))
	if err == nil {
		t.Fatal("ImportCSV() should reject a file without an email column")
	}
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("got %T, want *core.ValidationError", err)
	}
}
