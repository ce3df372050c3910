package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

func newServiceRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("service_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Service{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedService(t *testing.T, db *gorm.DB, providerID, title string, active bool) *domain.Service {
	t.Helper()
	s := &domain.Service{
		ProviderID:      providerID,
		Title:           title,
		Category:        "cleaning",
		Rate:            45,
		RateType:        domain.RateTypeHourly,
		DurationMinutes: 60,
		IsActive:        active,
	}
	if err := CreateService(context.Background(), db, s); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return s
}

func TestService_CreateAndGet(t *testing.T) {
	db := newServiceRepoDB(t)
	s := seedService(t, db, "p1", "Deep clean", true)
	if s.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := GetService(context.Background(), db, s.ID)
	if err != nil || got.Title != "Deep clean" || got.ProviderID != "p1" {
		t.Fatalf("GetService: %+v err=%v", got, err)
	}
}

func TestListActiveServices_HidesInactive(t *testing.T) {
	db := newServiceRepoDB(t)
	ctx := context.Background()

	active := seedService(t, db, "p1", "Visible", true)
	hidden := seedService(t, db, "p1", "Hidden", false)

	// The inactive flag must survive the insert as written, not be
	// swallowed by a column default.
	got, err := GetService(ctx, db, hidden.ID)
	if err != nil || got.IsActive {
		t.Fatalf("GetService(hidden) = %+v, %v; want is_active=false", got, err)
	}

	out, err := ListActiveServices(ctx, db)
	if err != nil {
		t.Fatalf("ListActiveServices: %v", err)
	}
	if len(out) != 1 || out[0].ID != active.ID {
		t.Fatalf("expected only the active listing, got %+v", out)
	}

	// The owner still sees the whole catalogue.
	mine, err := ListServicesByProvider(ctx, db, "p1")
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListServicesByProvider = %+v, %v; want 2 rows", mine, err)
	}
}

func TestUpdateService_OwnershipEnforced(t *testing.T) {
	db := newServiceRepoDB(t)
	ctx := context.Background()
	s := seedService(t, db, "p1", "Deep clean", true)

	if err := UpdateService(ctx, db, s.ID, "intruder", map[string]any{"rate": 99.0}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong owner: expected ErrNotFound, got %v", err)
	}
	if err := UpdateService(ctx, db, s.ID, "p1", map[string]any{"rate": 99.0, "is_active": false}); err != nil {
		t.Fatalf("UpdateService: %v", err)
	}

	got, _ := GetService(ctx, db, s.ID)
	if got.Rate != 99.0 || got.IsActive {
		t.Fatalf("updates not applied: %+v", got)
	}
}

func TestDeleteService_HardDelete(t *testing.T) {
	db := newServiceRepoDB(t)
	ctx := context.Background()
	s := seedService(t, db, "p1", "Deep clean", true)

	if err := DeleteService(ctx, db, s.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong owner: expected ErrNotFound, got %v", err)
	}
	if err := DeleteService(ctx, db, s.ID, "p1"); err != nil {
		t.Fatalf("DeleteService: %v", err)
	}
	if _, err := GetService(ctx, db, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := DeleteService(ctx, db, s.ID, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
