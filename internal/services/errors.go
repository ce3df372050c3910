// Package services defines the business logic for profiles, service listings,
// bookings, payments, and messaging.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Profile-related errors.
var (
	// ErrProfileNotFound indicates that the requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidRole is returned when a role value is outside the allowed set
	// (currently "client" or "provider").
	ErrInvalidRole = errors.New("role must be client or provider")

	// ErrRoleImmutable is returned when an update attempts to change a
	// profile's role after it has been set.
	ErrRoleImmutable = errors.New("role cannot be changed")

	// ErrNotProvider is returned when an operation reserved for providers is
	// attempted by a profile with the client role.
	ErrNotProvider = errors.New("profile is not a provider")
)

// Listing-related errors.
var (
	// ErrServiceNotFound indicates that the requested service listing does not
	// exist or is not accessible to the current user.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceInactive is returned when a checkout targets a listing the
	// provider has deactivated.
	ErrServiceInactive = errors.New("service is not active")

	// ErrInvalidRate is returned when a listing rate is zero or negative.
	ErrInvalidRate = errors.New("rate must be positive")

	// ErrInvalidRateType is returned when a rate type is outside the allowed
	// set (hourly, fixed, daily).
	ErrInvalidRateType = errors.New("rate type must be hourly, fixed, or daily")

	// ErrInvalidDuration is returned when a listing duration is zero or
	// negative.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrMissingTitle is returned when a listing is created without a title.
	ErrMissingTitle = errors.New("title is required")

	// ErrMissingCategory is returned when a listing is created without a
	// category.
	ErrMissingCategory = errors.New("category is required")
)

// Booking and open-job errors.
var (
	// ErrBookingNotFound indicates that the requested booking does not exist
	// or is not accessible to the current user.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrNotOpenJob is returned when an application or acceptance targets a
	// booking that is not an open job, or one that has already been assigned.
	ErrNotOpenJob = errors.New("booking is not an open job")

	// ErrOwnJobApplication is returned when a user applies to a job they
	// posted themselves.
	ErrOwnJobApplication = errors.New("cannot apply to own job")

	// ErrApplicationNotFound indicates that the requested application does
	// not exist.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrApplicationMismatch is returned when an application does not belong
	// to the booking named in the request.
	ErrApplicationMismatch = errors.New("application does not belong to booking")

	// ErrNotJobPoster is returned when a user attempts to manage a booking
	// posted by someone else.
	ErrNotJobPoster = errors.New("booking belongs to another client")

	// ErrNotConfirmed is returned when a completion is requested for a
	// booking that is not in the confirmed state.
	ErrNotConfirmed = errors.New("booking is not confirmed")

	// ErrInvalidAmount is returned when an open-job budget is zero or
	// negative.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Payment and email errors.
var (
	// ErrSessionNotFound indicates that the checkout session could not be
	// retrieved from the payment provider.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrMissingEmail is returned when a checkout is attempted for a profile
	// without an email address.
	ErrMissingEmail = errors.New("profile has no email address")

	// ErrEmailDispatch is returned when a booking was confirmed but one or
	// both confirmation emails failed to send. The confirmation itself is
	// durable; only the notification delivery failed.
	ErrEmailDispatch = errors.New("confirmation email dispatch failed")
)

// Messaging errors.
var (
	// ErrEmptyMessage is returned when a message body is empty after
	// trimming and no file attachment is present.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a message body exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrSelfMessage is returned when a user addresses a message to
	// themselves.
	ErrSelfMessage = errors.New("cannot message yourself")
)

// Notification errors.
var (
	// ErrNotificationNotFound indicates that the requested notification does
	// not exist or belongs to another user.
	ErrNotificationNotFound = errors.New("notification not found")
)
