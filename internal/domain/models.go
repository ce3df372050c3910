// Package domain defines the persistence models for profiles, service
// listings, bookings, applications, messages, and notifications. These types
// are mapped with GORM and form the core data layer of the marketplace
// application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Profile roles. A profile is either a job-posting client or a
// service-selling provider; the role is assigned once during onboarding.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
)

// Booking statuses written by this application. A booking with a Stripe
// session id only ever moves pending → confirmed (payment verification is
// the sole writer); a confirmed booking may later be marked completed by
// the posting client.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
)

// Application statuses. Applications start pending; accepting one marks it
// accepted and rejects every competing application on the same booking.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Service rate types.
const (
	RateTypeHourly = "hourly"
	RateTypeFixed  = "fixed"
	RateTypeDaily  = "daily"
)

// Message content types and delivery statuses. The server writes "sent" on
// creation and "read" when the recipient opens the conversation; the
// intermediate states exist for clients that render optimistic sends.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"

	MessageStatusSending   = "sending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Notification categories.
const (
	NotificationTypeBooking     = "booking"
	NotificationTypeApplication = "application"
)

// Profile represents a marketplace identity. The primary key is the user id
// owned by the auth collaborator; a profile row is created on the first
// authenticated visit and is only ever mutated by its owner.
//
// Fields:
//   - UserID: auth-collaborator identifier, primary key.
//   - DisplayName / Email / Phone: contact details shown to counterparties.
//   - Role: "client" or "provider"; immutable after first assignment.
//   - Bio: free-text self description.
//   - Skills: comma-separated skill tags; meaningful only for providers.
//   - AvatarURL: reference to an externally stored image.
//   - Rating / ReviewCount: maintained by an external review system and
//     treated as read-only here.
//   - Latitude / Longitude: marker position for the map widget.
type Profile struct {
	UserID      string         `json:"user_id"      gorm:"type:varchar(64);primaryKey"`
	DisplayName string         `json:"display_name" gorm:"type:varchar(255);not null"`
	Email       string         `json:"email"        gorm:"type:varchar(255);not null;index"`
	Phone       string         `json:"phone"        gorm:"type:varchar(32)"`
	Role        string         `json:"role"         gorm:"type:varchar(16);not null;check:role IN ('client','provider')"`
	Bio         string         `json:"bio"          gorm:"type:text"`
	Skills      string         `json:"skills"       gorm:"type:text"`
	AvatarURL   string         `json:"avatar_url"   gorm:"type:varchar(512)"`
	Rating      float64        `json:"rating"`
	ReviewCount int            `json:"review_count"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Service represents a published offering owned by exactly one provider.
// Inactive services are retained but never surface in discovery listings.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - ProviderID: owning provider profile; indexed for listing queries.
//   - Title / Description: listing copy.
//   - Category: one of the fixed taxonomy (see discovery.Categories).
//   - Rate: positive amount in major currency units.
//   - RateType: "hourly", "fixed", or "daily".
//   - DurationMinutes: positive expected duration.
//   - IsActive: discovery visibility flag.
type Service struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	ProviderID      string         `json:"provider_id"      gorm:"type:varchar(64);not null;index:idx_provider_services"`
	Title           string         `json:"title"            gorm:"type:varchar(255);not null"`
	Description     string         `json:"description"      gorm:"type:text"`
	Category        string         `json:"category"         gorm:"type:varchar(64);not null;index"`
	Rate            float64        `json:"rate"             gorm:"not null"`
	RateType        string         `json:"rate_type"        gorm:"type:varchar(16);not null;check:rate_type IN ('hourly','fixed','daily')"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	IsActive        bool           `json:"is_active"        gorm:"not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// Booking represents one service-engagement attempt. A row with a null
// provider and null Stripe session is an open job post awaiting
// applications; a row with a Stripe session id is payment-tracked and its
// status is driven exclusively by payment verification.
//
// Fields:
//   - ID: UUID primary key.
//   - ClientID: posting/booking client (required).
//   - ProviderID: assigned provider, nil for open job posts.
//   - ServiceID: booked service, nil for open job posts.
//   - Amount / Currency: charge derived server-side from the service rate.
//   - Status: pending | confirmed | completed.
//   - StripeSessionID: hosted checkout session, nil until checkout starts.
//   - BookingDate: requested schedule, optional.
//   - Notes: free-text instructions from the client.
type Booking struct {
	ID              string         `json:"id"                gorm:"type:char(36);primaryKey"`
	ClientID        string         `json:"client_id"         gorm:"type:varchar(64);not null;index:idx_client_bookings"`
	ProviderID      *string        `json:"provider_id"       gorm:"type:varchar(64);index:idx_provider_bookings"`
	ServiceID       *string        `json:"service_id"        gorm:"type:char(36)"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency"          gorm:"type:varchar(8);not null;default:'usd'"`
	Status          string         `json:"status"            gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','confirmed','completed')"`
	StripeSessionID *string        `json:"stripe_session_id" gorm:"type:varchar(255);uniqueIndex"`
	BookingDate     *time.Time     `json:"booking_date"`
	Notes           string         `json:"notes"             gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// IsOpenJob reports whether the booking is an open job post: no provider
// assigned and no checkout session attached.
func (b *Booking) IsOpenJob() bool {
	return b.ProviderID == nil && b.StripeSessionID == nil
}

// Application represents a provider's expression of interest in an open job
// post. Creating an application never mutates the booking itself; promotion
// to Booking.ProviderID happens only through the explicit accept operation.
//
// Fields:
//   - ID: UUID primary key.
//   - BookingID: target open job post (indexed).
//   - ProviderID: applicant (indexed). Duplicate applications per
//     (booking, provider) are permitted.
//   - Message: optional free-text pitch.
//   - Status: pending | accepted | rejected.
type Application struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	BookingID  string         `json:"booking_id"  gorm:"type:char(36);not null;index:idx_booking_applications"`
	ProviderID string         `json:"provider_id" gorm:"type:varchar(64);not null;index"`
	Message    string         `json:"message"     gorm:"type:text"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','accepted','rejected')"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	// Booking is the targeted job post. Applications are cascade-deleted
	// if the booking is removed.
	Booking Booking `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Application.
func (Application) TableName() string { return "applications" }

// Message represents a single chat message between two identities.
// Conversations are derived at read time by grouping messages on the
// counterparty id; there is no conversation table.
type Message struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	SenderID    string         `json:"sender_id"    gorm:"type:varchar(64);not null;index:idx_msg_sender"`
	RecipientID string         `json:"recipient_id" gorm:"type:varchar(64);not null;index:idx_msg_recipient"`
	Body        string         `json:"body"         gorm:"type:text;not null"`
	Type        string         `json:"type"         gorm:"type:varchar(16);not null;default:'text';check:type IN ('text','image','file')"`
	FileURL     string         `json:"file_url,omitempty"  gorm:"type:varchar(512)"`
	FileSize    int64          `json:"file_size,omitempty"`
	Status      string         `json:"status"       gorm:"type:varchar(16);not null;default:'sent';check:status IN ('sending','sent','delivered','read')"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Notification represents a user-facing alert (e.g. booking confirmed, new
// application on a job post) with a read flag.
type Notification struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_notifications"`
	Title     string         `json:"title"   gorm:"type:varchar(255);not null"`
	Message   string         `json:"message" gorm:"type:text"`
	Type      string         `json:"type"    gorm:"type:varchar(32);not null"`
	IsRead    bool           `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
