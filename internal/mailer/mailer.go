package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/mq"
	mailjet "github.com/mailjet/mailjet-apiv3-go"
	"go.uber.org/zap"
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type MailjetSender struct {
	client   *mailjet.Client
	from     string
	fromName string
}

func NewMailjetSender(apiKey, apiSecret, from, fromName string) *MailjetSender {
	return &MailjetSender{
		client:   mailjet.NewMailjetClient(apiKey, apiSecret),
		from:     from,
		fromName: fromName,
	}
}

func (m *MailjetSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From: &mailjet.RecipientV31{Email: m.from, Name: m.fromName},
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: msg.ToEmail, Name: msg.ToName},
		},
		Subject:  msg.Subject,
		TextPart: msg.Text,
		HTMLPart: msg.HTML,
	}}}

	res, err := m.client.SendMailV31(&messages)
	if err != nil {
		return fmt.Errorf("mailjet send failed: %w", err)
	}
	for _, r := range res.ResultsV31 {
		if r.Status != "success" {
			return fmt.Errorf("mailjet rejected message to %s: %s", msg.ToEmail, r.Status)
		}
	}
	return nil
}

// LogSender only logs messages. It stands in when no mail provider is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	l.Logger.Info("email not sent, no provider configured",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func BookingConfirmation(ev mq.BookingCreatedEvent) Message {
	label := models.ResourceType(ev.BookingType).Label()
	name := ev.UserName
	if name == "" {
		name = "there"
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", name)
	fmt.Fprintf(&text, "Your %s booking for %s has been received.\n", label, ev.ResourceName)
	fmt.Fprintf(&text, "Booking ID: %s\n", ev.BookingID)
	fmt.Fprintf(&text, "Status: %s\n", ev.Status)
	fmt.Fprintf(&text, "Total: %.2f\n", ev.TotalPrice)

	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your %s booking for <strong>%s</strong> has been received.</p>"+
			"<ul><li>Booking ID: %s</li><li>Status: %s</li><li>Total: %.2f</li></ul>",
		html.EscapeString(name), html.EscapeString(label), html.EscapeString(ev.ResourceName),
		html.EscapeString(ev.BookingID), html.EscapeString(ev.Status), ev.TotalPrice,
	)

	return Message{
		ToEmail: ev.UserEmail,
		ToName:  ev.UserName,
		Subject: "Booking Confirmation for " + ev.BookingType,
		Text:    text.String(),
		HTML:    htmlBody,
	}
}

// BookingCreatedHandler turns queued booking events into confirmation emails.
func BookingCreatedHandler(sender Sender) mq.BookingCreatedHandler {
	return func(ctx context.Context, ev mq.BookingCreatedEvent) error {
		if ev.UserEmail == "" {
			return fmt.Errorf("booking %s has no recipient email", ev.BookingID)
		}
		return sender.Send(ctx, BookingConfirmation(ev))
	}
}

// DirectNotifier sends the confirmation inline when no broker is configured.
type DirectNotifier struct {
	Sender Sender
}

func (d *DirectNotifier) NotifyBookingCreated(ctx context.Context, ev mq.BookingCreatedEvent) error {
	return BookingCreatedHandler(d.Sender)(ctx, ev)
}
