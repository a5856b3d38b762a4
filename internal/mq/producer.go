package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends persistent JSON messages on a shared channel. The channel is
// reopened if the broker closed it, and the connection is redialled from URL
// if it was lost.
type Publisher struct {
	url  string
	dial func(url string) (*amqp.Connection, error)

	mu    sync.Mutex
	conn  *amqp.Connection
	owned bool
	ch    *amqp.Channel
}

// NewPublisher publishes on conn, which stays owned by the caller. url is used
// to reconnect after conn closes.
func NewPublisher(conn *amqp.Connection, url string) (*Publisher, error) {
	p := &Publisher{url: url, dial: NewMQConn, conn: conn}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	if p.url == "" {
		return nil, amqp.ErrClosed
	}
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("redial: %w", err)
	}
	if p.owned && p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.owned, p.ch = conn, true, nil
	return conn, nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := SetupImmediateQueue(ch, BookingCreatedQueue); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) NotifyBookingCreated(ctx context.Context, event BookingCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",                  // default exchange
		BookingCreatedQueue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    event.BookingID,
			Body:         body,
		},
	)
}

// Close closes the channel and any connection the publisher dialled itself.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil && !p.ch.IsClosed() {
		err = p.ch.Close()
	}
	if p.owned && p.conn != nil && !p.conn.IsClosed() {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
