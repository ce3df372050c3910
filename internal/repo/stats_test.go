package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

func newStatsRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("stats_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Booking{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestBookingsStats_EmptyThenPopulated(t *testing.T) {
	db := newStatsRepoDB(t)
	ctx := context.Background()

	count, maxAt, err := BookingsStats(ctx, db, "c1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty stats = (%d, %v, %v); want (0, nil, nil)", count, maxAt, err)
	}

	if err := CreateBooking(ctx, db, &domain.Booking{ClientID: "c1", Amount: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := CreateBooking(ctx, db, &domain.Booking{ClientID: "c1", Amount: 20}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Other clients never leak into the stats.
	if err := CreateBooking(ctx, db, &domain.Booking{ClientID: "c2", Amount: 30}); err != nil {
		t.Fatalf("create: %v", err)
	}

	count, maxAt, err = BookingsStats(ctx, db, "c1")
	if err != nil {
		t.Fatalf("BookingsStats: %v", err)
	}
	if count != 2 || maxAt == nil || maxAt.IsZero() {
		t.Fatalf("stats = (%d, %v); want count 2 with a timestamp", count, maxAt)
	}
}

func TestBookingsStats_MaxMovesOnUpdate(t *testing.T) {
	db := newStatsRepoDB(t)
	ctx := context.Background()

	sess := "cs_stats_1"
	b := &domain.Booking{ClientID: "c1", Amount: 10, StripeSessionID: &sess}
	if err := CreateBooking(ctx, db, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, before, err := BookingsStats(ctx, db, "c1")
	if err != nil || before == nil {
		t.Fatalf("before stats: %v %v", before, err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := ConfirmBookingBySession(ctx, db, sess); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, after, err := BookingsStats(ctx, db, "c1")
	if err != nil || after == nil {
		t.Fatalf("after stats: %v %v", after, err)
	}
	if !after.After(*before) {
		t.Fatalf("expected max updated_at to advance: before=%v after=%v", before, after)
	}
}

func TestConversationStats_CountsBothDirections(t *testing.T) {
	db := newStatsRepoDB(t)
	ctx := context.Background()

	count, maxAt, err := ConversationStats(ctx, db, "a")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty stats = (%d, %v, %v); want (0, nil, nil)", count, maxAt, err)
	}

	if err := CreateMessage(ctx, db, &domain.Message{SenderID: "a", RecipientID: "b", Body: "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateMessage(ctx, db, &domain.Message{SenderID: "c", RecipientID: "a", Body: "hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateMessage(ctx, db, &domain.Message{SenderID: "b", RecipientID: "c", Body: "not ours"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	count, maxAt, err = ConversationStats(ctx, db, "a")
	if err != nil {
		t.Fatalf("ConversationStats: %v", err)
	}
	if count != 2 || maxAt == nil {
		t.Fatalf("stats = (%d, %v); want count 2 with a timestamp", count, maxAt)
	}
}
