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

func newMessageRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("message_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func sendText(t *testing.T, db *gorm.DB, from, to, body string) *domain.Message {
	t.Helper()
	m := &domain.Message{SenderID: from, RecipientID: to, Body: body}
	if err := CreateMessage(context.Background(), db, m); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	// Keep created_at strictly increasing for deterministic ordering.
	time.Sleep(2 * time.Millisecond)
	return m
}

func TestCreateMessage_AppliesDefaults(t *testing.T) {
	db := newMessageRepoDB(t)
	m := sendText(t, db, "a", "b", "hello")
	if m.ID == "" || m.Type != domain.MessageTypeText || m.Status != domain.MessageStatusSent {
		t.Fatalf("unexpected defaults: %+v", m)
	}
}

func TestConversationPage_BothDirections_Ordered(t *testing.T) {
	db := newMessageRepoDB(t)
	ctx := context.Background()

	m1 := sendText(t, db, "a", "b", "one")
	m2 := sendText(t, db, "b", "a", "two")
	m3 := sendText(t, db, "a", "b", "three")
	sendText(t, db, "a", "c", "unrelated")

	total, err := CountConversation(ctx, db, "a", "b")
	if err != nil || total != 3 {
		t.Fatalf("CountConversation = %d, %v; want 3", total, err)
	}

	page, err := ListConversationPage(ctx, db, "a", "b", 0, 2)
	if err != nil {
		t.Fatalf("ListConversationPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != m1.ID || page[1].ID != m2.ID {
		t.Fatalf("unexpected first page: %+v", page)
	}

	rest, err := ListConversationPage(ctx, db, "a", "b", 2, 2)
	if err != nil || len(rest) != 1 || rest[0].ID != m3.ID {
		t.Fatalf("unexpected second page: %+v err=%v", rest, err)
	}
}

func TestConversationPartners_MostRecentlyActiveFirst(t *testing.T) {
	db := newMessageRepoDB(t)
	ctx := context.Background()

	sendText(t, db, "a", "b", "oldest thread")
	sendText(t, db, "c", "a", "middle thread")
	sendText(t, db, "a", "b", "bump b to the top")

	partners, err := ListConversationPartners(ctx, db, "a")
	if err != nil {
		t.Fatalf("ListConversationPartners: %v", err)
	}
	if len(partners) != 2 || partners[0] != "b" || partners[1] != "c" {
		t.Fatalf("expected [b c], got %v", partners)
	}
}

func TestLastMessageBetween_AndNotFound(t *testing.T) {
	db := newMessageRepoDB(t)
	ctx := context.Background()

	sendText(t, db, "a", "b", "first")
	last := sendText(t, db, "b", "a", "latest")

	got, err := LastMessageBetween(ctx, db, "a", "b")
	if err != nil || got.ID != last.ID {
		t.Fatalf("LastMessageBetween = %+v, %v", got, err)
	}

	if _, err := LastMessageBetween(ctx, db, "a", "stranger"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnreadCount_And_MarkConversationRead(t *testing.T) {
	db := newMessageRepoDB(t)
	ctx := context.Background()

	sendText(t, db, "b", "a", "one")
	sendText(t, db, "b", "a", "two")
	sendText(t, db, "a", "b", "reply") // a's own send never counts as unread for a

	unread, err := CountUnreadFrom(ctx, db, "a", "b")
	if err != nil || unread != 2 {
		t.Fatalf("CountUnreadFrom = %d, %v; want 2", unread, err)
	}

	n, err := MarkConversationRead(ctx, db, "a", "b")
	if err != nil || n != 2 {
		t.Fatalf("MarkConversationRead = %d, %v; want 2", n, err)
	}

	unread, _ = CountUnreadFrom(ctx, db, "a", "b")
	if unread != 0 {
		t.Fatalf("unread after mark = %d; want 0", unread)
	}

	// Second pass changes nothing.
	n, err = MarkConversationRead(ctx, db, "a", "b")
	if err != nil || n != 0 {
		t.Fatalf("second MarkConversationRead = %d, %v; want 0", n, err)
	}
}
