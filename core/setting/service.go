package setting

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Well-known setting keys.
const (
	KeyStudentsPerPage    = "pagination_students_per_page"
	KeyInstructorsPerPage = "pagination_instructors_per_page"
	KeyAdminsPerPage      = "pagination_admins_per_page"
)

// Value types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeJSON    = "json"
)

var ErrNotFound = errors.New("setting not found")

type (
	Setting struct {
		Key         string    `json:"key"`
		Value       string    `json:"value"`
		Type        string    `json:"type"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	Repository interface {
		GetSetting(ctx context.Context, key string) (Setting, error)
		// UpsertSetting creates the setting or overwrites its value/type/description.
		UpsertSetting(ctx context.Context, s Setting) (Setting, error)
		QueryAllSettings(ctx context.Context) ([]Setting, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the raw value for key, or def when the key is absent.
func (svc *Service) Get(ctx context.Context, key, def string) (string, error) {
	s, err := svc.repo.GetSetting(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return def, nil
		}
		return "", err
	}
	return s.Value, nil
}

// GetInt returns the integer value for key, or def when the key is absent
// or not an integer.
func (svc *Service) GetInt(ctx context.Context, key string, def int) (int, error) {
	val, err := svc.Get(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (svc *Service) Set(ctx context.Context, key, value, typ, description string) (Setting, error) {
	now := time.Now().UTC()
	return svc.repo.UpsertSetting(ctx, Setting{
		Key:         key,
		Value:       value,
		Type:        typ,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) SetInt(ctx context.Context, key string, value int, description string) (Setting, error) {
	return svc.Set(ctx, key, strconv.Itoa(value), TypeInteger, description)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Setting, error) {
	return svc.repo.QueryAllSettings(ctx)
}
