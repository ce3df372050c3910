package domain

import (
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Profile{}).TableName():      "profiles",
		(Service{}).TableName():      "services",
		(Booking{}).TableName():      "bookings",
		(Application{}).TableName():  "applications",
		(Message{}).TableName():      "messages",
		(Notification{}).TableName(): "notifications",
		(Idempotency{}).TableName():  "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestBooking_IsOpenJob(t *testing.T) {
	open := &Booking{ClientID: "c1", Status: BookingStatusPending}
	if !open.IsOpenJob() {
		t.Fatalf("booking without provider and session should be an open job")
	}

	provider := "p1"
	assigned := &Booking{ClientID: "c1", ProviderID: &provider}
	if assigned.IsOpenJob() {
		t.Fatalf("assigned booking must not be an open job")
	}

	sess := "cs_test_123"
	tracked := &Booking{ClientID: "c1", StripeSessionID: &sess}
	if tracked.IsOpenJob() {
		t.Fatalf("payment-tracked booking must not be an open job")
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Profile{}, &Service{}, &Booking{}, &Application{}, &Message{}, &Notification{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&Profile{}, &Service{}, &Booking{}, &Application{}, &Message{}, &Notification{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	if !m.HasIndex(&Service{}, "idx_provider_services") {
		t.Fatalf("expected index idx_provider_services on services")
	}
	if !m.HasIndex(&Booking{}, "idx_client_bookings") {
		t.Fatalf("expected index idx_client_bookings on bookings")
	}
	if !m.HasIndex(&Application{}, "idx_booking_applications") {
		t.Fatalf("expected index idx_booking_applications on applications")
	}
	if !m.HasIndex(&Notification{}, "idx_user_notifications") {
		t.Fatalf("expected index idx_user_notifications on notifications")
	}

	// Applications cascade when the parent booking is hard-deleted.
	b := &Booking{ID: "b1", ClientID: "c1", Status: BookingStatusPending, Currency: "usd"}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("create booking: %v", err)
	}
	a := &Application{ID: "a1", BookingID: "b1", ProviderID: "p1", Status: ApplicationStatusPending}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}
	if err := db.Unscoped().Delete(&Booking{}, "id = ?", "b1").Error; err != nil {
		t.Fatalf("delete booking: %v", err)
	}
	var count int64
	if err := db.Model(&Application{}).Where("booking_id = ?", "b1").Count(&count).Error; err != nil {
		t.Fatalf("count applications: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected applications cascade-deleted, found %d", count)
	}
}
