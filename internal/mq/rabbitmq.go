package mq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published once a booking has been committed.
type BookingCreatedEvent struct {
	BookingID    string    `json:"bookingId"`
	UserID       string    `json:"userId"`
	UserEmail    string    `json:"userEmail"`
	UserName     string    `json:"userName"`
	ResourceID   string    `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	BookingType  string    `json:"bookingType"`
	TotalPrice   float64   `json:"totalPrice"`
	Status       string    `json:"status"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewMQConn(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func SetupImmediateQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}
