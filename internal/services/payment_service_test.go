package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/payments"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
)

// ----- Fakes -----

type fakePaymentProvider struct {
	created     []payments.SessionParams
	createErr   error
	retrieveErr error

	// payment status reported on retrieval, keyed by session id
	status map[string]string
}

func (f *fakePaymentProvider) CreateSession(ctx context.Context, p payments.SessionParams) (*payments.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	id := fmt.Sprintf("cs_test_%d", len(f.created))
	return &payments.Session{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (f *fakePaymentProvider) RetrieveSession(ctx context.Context, id string) (*payments.Session, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return &payments.Session{ID: id, PaymentStatus: f.status[id]}, nil
}

type fakeMailer struct {
	sent    []string // recipients in send order
	sendErr error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, to)
	return uuid.NewString(), nil
}

func newPaymentDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:paymentsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Profile{}, &domain.Service{}, &domain.Booking{}, &domain.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedListing creates a provider profile and an active listing priced at rate.
func seedListing(t *testing.T, db *gorm.DB, providerID string, rate float64) *domain.Service {
	t.Helper()
	seedProfile(t, db, providerID, domain.RoleProvider)
	svc := &domain.Service{
		ProviderID:      providerID,
		Title:           "Pipe repair",
		Category:        "Plumbing",
		Rate:            rate,
		RateType:        domain.RateTypeFixed,
		DurationMinutes: 60,
		IsActive:        true,
	}
	if err := repo.CreateService(context.Background(), db, svc); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return svc
}

func newPaymentService(db *gorm.DB, fp *fakePaymentProvider, fm *fakeMailer) *PaymentService {
	return &PaymentService{
		DB:         db,
		Provider:   fp,
		Mailer:     fm,
		SuccessURL: "https://app.example.com/success",
		CancelURL:  "https://app.example.com/cancel",
	}
}

func TestPayment_Checkout_DerivesAmountFromListing(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 75.50)

	fp := &fakePaymentProvider{status: map[string]string{}}
	svc := newPaymentService(db, fp, &fakeMailer{})

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if res.RedirectURL == "" || res.SessionID == "" {
		t.Fatalf("expected redirect and session id, got %+v", res)
	}

	if len(fp.created) != 1 {
		t.Fatalf("expected one session, got %d", len(fp.created))
	}
	params := fp.created[0]
	if params.UnitAmount != 7550 {
		t.Fatalf("amount must come from the listing rate, got %d", params.UnitAmount)
	}
	if params.Metadata["service_id"] != listing.ID || params.Metadata["client_id"] != "c1" {
		t.Fatalf("unexpected session metadata: %+v", params.Metadata)
	}

	b := res.Booking
	if b.Status != domain.BookingStatusPending {
		t.Fatalf("expected pending booking, got %q", b.Status)
	}
	if b.Amount != 75.50 {
		t.Fatalf("booking amount must equal the listing rate, got %v", b.Amount)
	}
	if b.StripeSessionID == nil || *b.StripeSessionID != res.SessionID {
		t.Fatal("booking must reference the checkout session")
	}
	if b.IsOpenJob() {
		t.Fatal("a paid booking is not an open job")
	}
}

func TestPayment_Checkout_UsesConfiguredCurrency(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 60)

	fp := &fakePaymentProvider{status: map[string]string{}}
	svc := newPaymentService(db, fp, &fakeMailer{})
	svc.Currency = "eur"

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if fp.created[0].Currency != "eur" {
		t.Fatalf("session currency = %q, want configured eur", fp.created[0].Currency)
	}
	if res.Booking.Currency != "eur" {
		t.Fatalf("booking currency = %q, want configured eur", res.Booking.Currency)
	}

	// Unset currency falls back to usd.
	svc.Currency = ""
	res, err = svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout fallback: %v", err)
	}
	if fp.created[1].Currency != "usd" || res.Booking.Currency != "usd" {
		t.Fatalf("fallback currency = session %q, booking %q; want usd",
			fp.created[1].Currency, res.Booking.Currency)
	}
}

func TestPayment_Checkout_Guards(t *testing.T) {
	db := newPaymentDB(t)
	listing := seedListing(t, db, "p1", 50)
	fp := &fakePaymentProvider{status: map[string]string{}}
	svc := newPaymentService(db, fp, &fakeMailer{})

	if _, err := svc.Checkout(context.Background(), "ghost", CheckoutInput{ServiceID: listing.ID}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	seedProfile(t, db, "c1", domain.RoleClient)
	if _, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: "missing"}); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}

	if err := repo.UpdateService(context.Background(), db, listing.ID, "p1", map[string]any{"is_active": false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID}); !errors.Is(err, ErrServiceInactive) {
		t.Fatalf("expected ErrServiceInactive, got %v", err)
	}
}

func TestPayment_Checkout_MissingEmail(t *testing.T) {
	db := newPaymentDB(t)
	listing := seedListing(t, db, "p1", 50)
	if err := repo.CreateProfile(context.Background(), db, &domain.Profile{
		UserID: "c1", DisplayName: "c1", Role: domain.RoleClient,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := newPaymentService(db, &fakePaymentProvider{status: map[string]string{}}, &fakeMailer{})
	if _, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID}); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestPayment_Verify_UnpaidLeavesPending(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 50)

	fp := &fakePaymentProvider{status: map[string]string{}}
	fm := &fakeMailer{}
	svc := newPaymentService(db, fp, fm)

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	fp.status[res.SessionID] = "unpaid"

	vr, err := svc.Verify(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if vr.Paid || vr.Transitioned {
		t.Fatalf("unpaid session must not confirm, got %+v", vr)
	}
	if vr.Booking.Status != domain.BookingStatusPending {
		t.Fatalf("expected pending, got %q", vr.Booking.Status)
	}
	if len(fm.sent) != 0 {
		t.Fatal("no emails for unpaid sessions")
	}
}

func TestPayment_Verify_PaidConfirmsAndFansOut(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 50)

	fp := &fakePaymentProvider{status: map[string]string{}}
	fm := &fakeMailer{}
	svc := newPaymentService(db, fp, fm)

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	fp.status[res.SessionID] = payments.PaymentStatusPaid

	vr, err := svc.Verify(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !vr.Paid || !vr.Transitioned {
		t.Fatalf("expected paid+transitioned, got %+v", vr)
	}
	if vr.Booking.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", vr.Booking.Status)
	}
	if vr.EmailsSent != 2 || len(fm.sent) != 2 {
		t.Fatalf("expected client and provider emails, got %v", fm.sent)
	}
	if fm.sent[0] != "c1@example.com" || fm.sent[1] != "p1@example.com" {
		t.Fatalf("unexpected recipients: %v", fm.sent)
	}

	for _, uid := range []string{"c1", "p1"} {
		notes, err := repo.ListNotifications(context.Background(), db, uid)
		if err != nil {
			t.Fatalf("ListNotifications %s: %v", uid, err)
		}
		if len(notes) != 1 || notes[0].Type != domain.NotificationTypeBooking {
			t.Fatalf("expected one booking notification for %s, got %+v", uid, notes)
		}
	}
}

func TestPayment_Verify_ReplaySendsNothing(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 50)

	fp := &fakePaymentProvider{status: map[string]string{}}
	fm := &fakeMailer{}
	svc := newPaymentService(db, fp, fm)

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	fp.status[res.SessionID] = payments.PaymentStatusPaid

	if _, err := svc.Verify(context.Background(), res.SessionID); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	vr, err := svc.Verify(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if vr.Transitioned {
		t.Fatal("replay must not transition again")
	}
	if vr.Booking.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", vr.Booking.Status)
	}
	if vr.EmailsSent != 0 || len(fm.sent) != 2 {
		t.Fatalf("replay must not re-send emails, got %v", fm.sent)
	}
}

func TestPayment_Verify_EmailFailureDoesNotUnconfirm(t *testing.T) {
	db := newPaymentDB(t)
	seedProfile(t, db, "c1", domain.RoleClient)
	listing := seedListing(t, db, "p1", 50)

	fp := &fakePaymentProvider{status: map[string]string{}}
	fm := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := newPaymentService(db, fp, fm)

	res, err := svc.Checkout(context.Background(), "c1", CheckoutInput{ServiceID: listing.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	fp.status[res.SessionID] = payments.PaymentStatusPaid

	vr, err := svc.Verify(context.Background(), res.SessionID)
	if !errors.Is(err, ErrEmailDispatch) {
		t.Fatalf("expected ErrEmailDispatch, got %v", err)
	}
	if vr == nil || !vr.Transitioned {
		t.Fatal("confirmation must survive an email failure")
	}
	if vr.Booking.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", vr.Booking.Status)
	}
	if !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected the smtp cause in the error, got %v", err)
	}
}

func TestPayment_Verify_UnknownSession(t *testing.T) {
	db := newPaymentDB(t)
	fp := &fakePaymentProvider{retrieveErr: errors.New("no such session")}
	svc := newPaymentService(db, fp, &fakeMailer{})

	if _, err := svc.Verify(context.Background(), "cs_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
