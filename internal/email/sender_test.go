package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	gomail "gopkg.in/gomail.v2"
)

func newTestSender(dial func(m ...*gomail.Message) error) *Sender {
	s := NewSender(Config{
		Host: "smtp.example.com", Port: 587,
		From: "noreply@example.com", FromName: "Marketplace",
	})
	s.dialAndSend = dial
	return s
}

func TestSend_Success_ReturnsDeliveryID(t *testing.T) {
	var captured *gomail.Message
	s := newTestSender(func(m ...*gomail.Message) error {
		if len(m) != 1 {
			t.Fatalf("expected exactly one message per dial, got %d", len(m))
		}
		captured = m[0]
		return nil
	})

	id, err := s.Send(context.Background(), "alice@example.com", "Hi", "<p>hello</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == "" {
		t.Fatalf("expected non-empty delivery id")
	}
	if captured == nil {
		t.Fatalf("dial function not invoked")
	}
	if got := captured.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Fatalf("To header = %v", got)
	}
	if got := captured.GetHeader("Message-ID"); len(got) != 1 || !strings.Contains(got[0], id) {
		t.Fatalf("Message-ID header should embed delivery id, got %v", got)
	}
}

func TestSend_DialFailureSurfaces(t *testing.T) {
	sentinel := errors.New("smtp down")
	s := newTestSender(func(...*gomail.Message) error { return sentinel })

	_, err := s.Send(context.Background(), "bob@example.com", "Hi", "x")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected dial error to propagate, got %v", err)
	}
}

func TestSend_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	s := newTestSender(func(...*gomail.Message) error {
		<-block
		return nil
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Send(ctx, "bob@example.com", "Hi", "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
