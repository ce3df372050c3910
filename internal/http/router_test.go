package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-marketplace-backend/internal/config"
	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/payments"
)

// --- fake payment provider and mailer ---

type fakeProvider struct {
	sessions map[string]string // id -> payment status
}

func newFakeProvider() *fakeProvider { return &fakeProvider{sessions: map[string]string{}} }

func (f *fakeProvider) CreateSession(_ context.Context, _ payments.SessionParams) (*payments.Session, error) {
	id := "cs_test_" + uuid.NewString()
	f.sessions[id] = "unpaid"
	return &payments.Session{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (f *fakeProvider) RetrieveSession(_ context.Context, id string) (*payments.Session, error) {
	status, found := f.sessions[id]
	if !found {
		return nil, fmt.Errorf("no such session %s", id)
	}
	return &payments.Session{ID: id, PaymentStatus: status}, nil
}

type fakeMailer struct{ sent []string }

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) (string, error) {
	f.sent = append(f.sent, to)
	return uuid.NewString(), nil
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Profile{}, &domain.Service{}, &domain.Booking{}, &domain.Application{},
		&domain.Message{}, &domain.Notification{}, &domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   100,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeProvider, *fakeMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fp := newFakeProvider()
	fm := &fakeMailer{}
	RegisterRoutes(r, newTestDB(t), fp, fm, testConfig())
	return r, fp, fm
}

// doJSON issues a request with an X-User-ID header and optional JSON body.
func doJSON(r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newTestRouter(t)

	// /health works
	w := doJSON(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = doJSON(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 envelope
	w = doJSON(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	var errBody map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &errBody); err != nil || errBody["code"] != "not_found" {
		t.Fatalf("expected not_found envelope, got %s", w.Body.String())
	}

	// NoMethod → 405 (DELETE /health)
	w = doJSON(r, http.MethodDelete, "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /health expected 405, got %d", w.Code)
	}
}

func ensureProfile(t *testing.T, r *gin.Engine, user, email, role string) {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/profile", user, gin.H{"email": email, "role": role})
	if w.Code != http.StatusOK {
		t.Fatalf("ensure profile %s: %d %s", user, w.Code, w.Body.String())
	}
}

func TestRouter_PaidBookingFlow(t *testing.T) {
	r, fp, fm := newTestRouter(t)

	ensureProfile(t, r, "client1", "client1@example.com", "client")
	ensureProfile(t, r, "prov1", "prov1@example.com", "provider")

	// Provider creates a listing.
	w := doJSON(r, http.MethodPost, "/api/v1/services", "prov1", gin.H{
		"title": "Pipe repair", "category": "Plumbing",
		"rate": 90.0, "rate_type": "fixed", "duration_minutes": 60,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create service: %d %s", w.Code, w.Body.String())
	}
	var svc domain.Service
	if err := json.Unmarshal(w.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode service: %v", err)
	}

	// Client opens a checkout session. The request carries no amount.
	w = doJSON(r, http.MethodPost, "/api/v1/checkout", "client1", gin.H{"service_id": svc.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	var co struct {
		URL       string `json:"url"`
		SessionID string `json:"session_id"`
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &co); err != nil || co.SessionID == "" {
		t.Fatalf("decode checkout: %v %s", err, w.Body.String())
	}

	// Verify before payment: still pending, no emails.
	w = doJSON(r, http.MethodGet, "/api/v1/payments/verify?session_id="+co.SessionID, "client1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify unpaid: %d %s", w.Code, w.Body.String())
	}
	if len(fm.sent) != 0 {
		t.Fatalf("no emails before payment, got %v", fm.sent)
	}

	// Pay, then verify twice: exactly one transition and one email pair.
	fp.sessions[co.SessionID] = payments.PaymentStatusPaid
	for i := 0; i < 2; i++ {
		w = doJSON(r, http.MethodGet, "/api/v1/payments/verify?session_id="+co.SessionID, "client1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("verify paid #%d: %d %s", i+1, w.Code, w.Body.String())
		}
	}
	if len(fm.sent) != 2 {
		t.Fatalf("expected exactly 2 emails across repeated verifies, got %v", fm.sent)
	}

	// The booking is confirmed and visible to its client.
	w = doJSON(r, http.MethodGet, "/api/v1/bookings/"+co.BookingID, "client1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get booking: %d %s", w.Code, w.Body.String())
	}
	var b domain.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if b.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", b.Status)
	}

	// Both sides got an in-app notification.
	for _, user := range []string{"client1", "prov1"} {
		w = doJSON(r, http.MethodGet, "/api/v1/notifications/unread_count", user, nil)
		if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"unread":1`)) {
			t.Fatalf("unread for %s: %d %s", user, w.Code, w.Body.String())
		}
	}

	// Mark complete.
	w = doJSON(r, http.MethodPost, "/api/v1/bookings/"+co.BookingID+"/complete", "client1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
}

func TestRouter_Checkout_IdempotencyReplay(t *testing.T) {
	r, fp, _ := newTestRouter(t)

	ensureProfile(t, r, "client1", "client1@example.com", "client")
	ensureProfile(t, r, "prov1", "prov1@example.com", "provider")

	w := doJSON(r, http.MethodPost, "/api/v1/services", "prov1", gin.H{
		"title": "Lawn mowing", "category": "Gardening",
		"rate": 40.0, "rate_type": "hourly", "duration_minutes": 60,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create service: %d %s", w.Code, w.Body.String())
	}
	var svc domain.Service
	_ = json.Unmarshal(w.Body.Bytes(), &svc)

	key := uuid.NewString()
	post := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(gin.H{"service_id": svc.ID})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "client1")
		req.Header.Set("Idempotency-Key", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	if first.Code != http.StatusOK {
		t.Fatalf("first checkout: %d %s", first.Code, first.Body.String())
	}
	second := post()
	if second.Code != http.StatusOK {
		t.Fatalf("second checkout: %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header on second checkout")
	}
	if len(fp.sessions) != 1 {
		t.Fatalf("replay must not open a second session, got %d", len(fp.sessions))
	}

	var b1, b2 struct {
		BookingID string `json:"booking_id"`
	}
	_ = json.Unmarshal(first.Body.Bytes(), &b1)
	_ = json.Unmarshal(second.Body.Bytes(), &b2)
	if b1.BookingID == "" || b1.BookingID != b2.BookingID {
		t.Fatalf("expected the same booking on replay, got %q vs %q", b1.BookingID, b2.BookingID)
	}
}

func TestRouter_OpenJobFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	ensureProfile(t, r, "client1", "client1@example.com", "client")
	ensureProfile(t, r, "prov1", "prov1@example.com", "provider")
	ensureProfile(t, r, "prov2", "prov2@example.com", "provider")

	w := doJSON(r, http.MethodPost, "/api/v1/jobs", "client1", gin.H{"amount": 200.0, "notes": "Paint the fence"})
	if w.Code != http.StatusCreated {
		t.Fatalf("post job: %d %s", w.Code, w.Body.String())
	}
	var job domain.Booking
	_ = json.Unmarshal(w.Body.Bytes(), &job)

	// Poster cannot apply to their own job.
	w = doJSON(r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/applications", "client1", gin.H{"message": "me"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("self-application expected 403, got %d", w.Code)
	}

	// Two providers apply.
	var apps [2]domain.Application
	for i, p := range []string{"prov1", "prov2"} {
		w = doJSON(r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/applications", p, gin.H{"message": "hi"})
		if w.Code != http.StatusCreated {
			t.Fatalf("apply %s: %d %s", p, w.Code, w.Body.String())
		}
		_ = json.Unmarshal(w.Body.Bytes(), &apps[i])
	}

	// Accept the second application.
	w = doJSON(r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/applications/"+apps[1].ID+"/accept", "client1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}

	// The job left the open list.
	w = doJSON(r, http.MethodGet, "/api/v1/jobs", "", nil)
	if w.Code != http.StatusOK || bytes.Contains(w.Body.Bytes(), []byte(job.ID)) {
		t.Fatalf("assigned job still open: %d %s", w.Code, w.Body.String())
	}

	// A late application bounces with 409.
	w = doJSON(r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/applications", "prov1", gin.H{"message": "late"})
	if w.Code != http.StatusConflict {
		t.Fatalf("late application expected 409, got %d", w.Code)
	}
}

func TestRouter_ProfileRoleImmutable(t *testing.T) {
	r, _, _ := newTestRouter(t)

	ensureProfile(t, r, "u1", "u1@example.com", "client")

	w := doJSON(r, http.MethodPut, "/api/v1/profile", "u1", gin.H{"role": "provider"})
	if w.Code != http.StatusConflict {
		t.Fatalf("role change expected 409, got %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPut, "/api/v1/profile", "u1", gin.H{"bio": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("bio update: %d %s", w.Code, w.Body.String())
	}
}

func TestRouter_DiscoveryFilters(t *testing.T) {
	r, _, _ := newTestRouter(t)

	ensureProfile(t, r, "prov1", "prov1@example.com", "provider")
	for _, in := range []gin.H{
		{"title": "Deep clean studio", "category": "Deep Cleaning", "rate": 80.0, "rate_type": "fixed", "duration_minutes": 120},
		{"title": "Fix leaky taps", "category": "Plumbing", "rate": 60.0, "rate_type": "hourly", "duration_minutes": 60},
	} {
		if w := doJSON(r, http.MethodPost, "/api/v1/services", "prov1", in); w.Code != http.StatusCreated {
			t.Fatalf("seed listing: %d %s", w.Code, w.Body.String())
		}
	}

	// Parent category admits the child listing.
	w := doJSON(r, http.MethodGet, "/api/v1/discovery/services?category=Cleaning", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("discover: %d %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Deep clean studio")) || bytes.Contains(w.Body.Bytes(), []byte("Fix leaky taps")) {
		t.Fatalf("hierarchy filter wrong: %s", w.Body.String())
	}

	// Rate band.
	w = doJSON(r, http.MethodGet, "/api/v1/discovery/services?min_rate=70&max_rate=90", "", nil)
	if !bytes.Contains(w.Body.Bytes(), []byte("Deep clean studio")) || bytes.Contains(w.Body.Bytes(), []byte("Fix leaky taps")) {
		t.Fatalf("rate filter wrong: %s", w.Body.String())
	}

	// Markers are assembled from the same filtered set.
	w = doJSON(r, http.MethodGet, "/api/v1/discovery/markers?category=Plumbing", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("markers: %d %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Fix leaky taps")) || bytes.Contains(w.Body.Bytes(), []byte("Deep clean studio")) {
		t.Fatalf("marker filter wrong: %s", w.Body.String())
	}

	// Job discovery honours the same query filters.
	ensureProfile(t, r, "cl1", "cl1@example.com", "client")
	if w := doJSON(r, http.MethodPost, "/api/v1/jobs", "cl1", gin.H{"notes": "Paint the fence", "amount": 120.0}); w.Code != http.StatusCreated {
		t.Fatalf("seed job: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodGet, "/api/v1/discovery/jobs?min_rate=100", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("Paint the fence")) {
		t.Fatalf("job discovery: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodGet, "/api/v1/discovery/jobs?max_rate=50", "", nil)
	if bytes.Contains(w.Body.Bytes(), []byte("Paint the fence")) {
		t.Fatalf("job rate filter wrong: %s", w.Body.String())
	}
}

func TestRouter_MessagingFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	ensureProfile(t, r, "u1", "u1@example.com", "client")
	ensureProfile(t, r, "u2", "u2@example.com", "provider")

	w := doJSON(r, http.MethodPost, "/api/v1/messages", "u1", gin.H{"recipient_id": "u2", "body": "hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/v1/conversations", "u2", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"unread_count":1`)) {
		t.Fatalf("conversations: %d %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag on conversations list")
	}

	// Conditional re-read returns 304.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("X-User-ID", "u2")
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/conversations/u1/read", "u2", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"marked_read":1`)) {
		t.Fatalf("mark read: %d %s", w.Code, w.Body.String())
	}
}
