package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CodeStatus string

const (
	CodeValid   CodeStatus = "valid"
	CodeUsed    CodeStatus = "used"
	CodeExpired CodeStatus = "expired"
)

const DefaultAccessLevel = "full-access"

type TicketDetails struct {
	Type  string  `bson:"type" json:"type"`
	Price float64 `bson:"price" json:"price"`
}

// Ticket is a scannable admission to a water park, owned by exactly one booking.
type Ticket struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	BookingID  primitive.ObjectID `bson:"bookingId" json:"bookingId"`
	TicketType ResourceType       `bson:"ticketType" json:"ticketType"`
	Details    TicketDetails      `bson:"details" json:"details"`
	QRCode     string             `bson:"qrCode" json:"qrCode"`
	Status     CodeStatus         `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type PassDetails struct {
	EventName   string `bson:"eventName" json:"eventName"`
	GuestName   string `bson:"guestName" json:"guestName"`
	AccessLevel string `bson:"accessLevel" json:"accessLevel"`
}

// Pass is a guest admission to a marriage garden event.
type Pass struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	BookingID primitive.ObjectID `bson:"bookingId" json:"bookingId"`
	PassType  ResourceType       `bson:"passType" json:"passType"`
	Details   PassDetails        `bson:"details" json:"details"`
	QRCode    string             `bson:"qrCode" json:"qrCode"`
	Status    CodeStatus         `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
