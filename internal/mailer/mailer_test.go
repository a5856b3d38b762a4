package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/joshua-takyi/unibook/internal/mq"
)

type recordingSender struct {
	sent []Message
}

func (r *recordingSender) Send(ctx context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestBookingConfirmation(t *testing.T) {
	msg := BookingConfirmation(mq.BookingCreatedEvent{
		BookingID:    "b1",
		UserEmail:    "ada@example.com",
		UserName:     "Ada <admin>",
		ResourceName: "Lake View Garden",
		BookingType:  "marriageGarden",
		TotalPrice:   1500,
		Status:       "pending",
	})

	if msg.Subject != "Booking Confirmation for marriageGarden" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Marriage Garden") || !strings.Contains(msg.Text, "1500.00") {
		t.Errorf("Text = %q", msg.Text)
	}
	if strings.Contains(msg.HTML, "<admin>") {
		t.Error("HTML body is not escaped")
	}
}

func TestBookingCreatedHandler(t *testing.T) {
	rec := &recordingSender{}
	handle := BookingCreatedHandler(rec)

	if err := handle(context.Background(), mq.BookingCreatedEvent{BookingID: "b1"}); err == nil {
		t.Error("expected error when recipient is missing")
	}

	ev := mq.BookingCreatedEvent{BookingID: "b2", UserEmail: "ada@example.com", BookingType: "room"}
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("handle() error = %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].ToEmail != "ada@example.com" {
		t.Errorf("sent = %+v", rec.sent)
	}
}

func TestDirectNotifier(t *testing.T) {
	rec := &recordingSender{}
	n := &DirectNotifier{Sender: rec}
	ev := mq.BookingCreatedEvent{BookingID: "b3", UserEmail: "grace@example.com", BookingType: "waterPark"}
	if err := n.NotifyBookingCreated(context.Background(), ev); err != nil {
		t.Fatalf("NotifyBookingCreated() error = %v", err)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rec.sent))
	}
}
