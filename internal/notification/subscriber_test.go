package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"callops_backend/internal/events"
	"callops_backend/platform/logger"
)

type fakeSender struct {
	to      string
	subject string
	body    string
	calls   int
	fail    error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.calls++
	f.to = to
	f.subject = subject
	f.body = body
	return f.fail
}

type fakeEmailConfig struct {
	enabled   bool
	recipient string
}

func (f fakeEmailConfig) GetEmailEnabled() bool       { return f.enabled }
func (f fakeEmailConfig) GetSMTPHost() string         { return "smtp.example.com" }
func (f fakeEmailConfig) GetSMTPPort() int            { return 587 }
func (f fakeEmailConfig) GetSMTPUsername() string     { return "" }
func (f fakeEmailConfig) GetSMTPPassword() string     { return "" }
func (f fakeEmailConfig) GetEmailFromName() string    { return "CallOps" }
func (f fakeEmailConfig) GetEmailFromAddress() string { return "alerts@example.com" }
func (f fakeEmailConfig) GetAlertRecipient() string   { return f.recipient }

func gapEvent() events.TasksUnallocatable {
	return events.TasksUnallocatable{
		BaseEvent:     events.NewBaseEvent(),
		RunID:         uuid.New(),
		Unallocatable: 3,
		Territories:   []string{"nashik"},
		Languages:     []string{"tamil"},
	}
}

func TestHandle_SendsAlert(t *testing.T) {
	sender := &fakeSender{}
	sub := NewAllocationGapSubscriber(sender, fakeEmailConfig{enabled: true, recipient: "ops@example.com"}, logger.New("test"))

	if err := sub.Handle(context.Background(), gapEvent()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sends = %d, want 1", sender.calls)
	}
	if sender.to != "ops@example.com" {
		t.Fatalf("to = %s, want ops@example.com", sender.to)
	}
	if !strings.Contains(sender.body, "nashik") || !strings.Contains(sender.body, "tamil") {
		t.Fatalf("body missing gap detail: %q", sender.body)
	}
}

func TestHandle_SkipsWhenDisabled(t *testing.T) {
	sender := &fakeSender{}
	sub := NewAllocationGapSubscriber(sender, fakeEmailConfig{enabled: false, recipient: "ops@example.com"}, logger.New("test"))

	if err := sub.Handle(context.Background(), gapEvent()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("sends = %d, want 0 when disabled", sender.calls)
	}
}

func TestHandle_SendFailureNotPropagated(t *testing.T) {
	sender := &fakeSender{fail: errors.New("smtp down")}
	sub := NewAllocationGapSubscriber(sender, fakeEmailConfig{enabled: true, recipient: "ops@example.com"}, logger.New("test"))

	if err := sub.Handle(context.Background(), gapEvent()); err != nil {
		t.Fatalf("Handle() must swallow send errors, got %v", err)
	}
}
