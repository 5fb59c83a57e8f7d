package setting_test

import (
	"context"
	"testing"

	"github.com/darasalabs/darasa/core/setting"
	"github.com/darasalabs/darasa/storage/database/inmem"
)

func TestGet_defaults(t *testing.T) {
	ctx := context.Background()
	svc := setting.NewService(inmem.NewSettingRepository())

	val, err := svc.Get(ctx, setting.KeyStudentsPerPage, "25")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "25" {
		t.Errorf("got %q, want the default for an absent key", val)
	}

	n, err := svc.GetInt(ctx, setting.KeyAdminsPerPage, 10)
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if n != 10 {
		t.Errorf("got %d, want the default for an absent key", n)
	}
}

func TestSetGet_roundTrip(t *testing.T) {
	ctx := context.Background()
	svc := setting.NewService(inmem.NewSettingRepository())

	if _, err := svc.SetInt(ctx, setting.KeyStudentsPerPage, 50, "Students per page"); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}

	n, err := svc.GetInt(ctx, setting.KeyStudentsPerPage, 10)
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if n != 50 {
		t.Errorf("got %d, want 50", n)
	}

	// overwrite keeps a single row per key
	if _, err := svc.Set(ctx, setting.KeyStudentsPerPage, "75", setting.TypeInteger, ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	all, err := svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d settings, want 1", len(all))
	}
	if all[0].Value != "75" || all[0].Type != setting.TypeInteger {
		t.Errorf("got %+v, want the overwritten value", all[0])
	}
}

func TestGetInt_malformedValue(t *testing.T) {
	ctx := context.Background()
	svc := setting.NewService(inmem.NewSettingRepository())

	if _, err := svc.Set(ctx, setting.KeyInstructorsPerPage, "not-a-number", setting.TypeInteger, ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	n, err := svc.GetInt(ctx, setting.KeyInstructorsPerPage, 10)
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if n != 10 {
		t.Errorf("got %d, want the default for a malformed value", n)
	}
}
