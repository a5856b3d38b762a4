package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Active statuses hold their dates against other bookings.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

type CreatedBy string

const (
	CreatedByUser  CreatedBy = "user"
	CreatedByAdmin CreatedBy = "admin"
)

type GuestCount struct {
	Adults   int `bson:"adults" json:"adults" validate:"min=0"`
	Children int `bson:"children" json:"children" validate:"min=0"`
}

func (g GuestCount) Total() int {
	return g.Adults + g.Children
}

// RoomBooking occupies the half-open interval [CheckInDate, CheckOutDate).
type RoomBooking struct {
	CheckInDate  time.Time  `bson:"checkInDate" json:"checkInDate"`
	CheckOutDate time.Time  `bson:"checkOutDate" json:"checkOutDate"`
	Guests       GuestCount `bson:"guests" json:"guests"`
}

// GardenBooking holds one event per date. TimeSlot is informational only and
// does not take part in conflict detection.
type GardenBooking struct {
	EventDate time.Time `bson:"eventDate" json:"eventDate"`
	TimeSlot  string    `bson:"timeSlot,omitempty" json:"timeSlot,omitempty"`
	Services  []string  `bson:"services,omitempty" json:"services,omitempty"`
}

type TicketLine struct {
	Type  string  `bson:"type" json:"type" validate:"required,max=60"`
	Price float64 `bson:"price" json:"price" validate:"gte=0"`
}

type WaterParkBooking struct {
	Date      time.Time            `bson:"date" json:"date"`
	Tickets   []TicketLine         `bson:"tickets" json:"tickets"`
	TicketIDs []primitive.ObjectID `bson:"ticketIds" json:"ticketIds"`
}

type BookingDetails struct {
	RoomBooking      *RoomBooking      `bson:"roomBooking,omitempty" json:"roomBooking,omitempty"`
	GardenBooking    *GardenBooking    `bson:"gardenBooking,omitempty" json:"gardenBooking,omitempty"`
	WaterParkBooking *WaterParkBooking `bson:"waterParkBooking,omitempty" json:"waterParkBooking,omitempty"`
}

type Booking struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	UserID        primitive.ObjectID   `bson:"userId" json:"userId"`
	ResourceID    primitive.ObjectID   `bson:"resourceId" json:"resourceId"`
	BookingType   ResourceType         `bson:"bookingType" json:"bookingType"`
	Details       BookingDetails       `bson:"details" json:"details"`
	PassIDs       []primitive.ObjectID `bson:"passIds" json:"passIds"`
	TotalPrice    float64              `bson:"totalPrice" json:"totalPrice"`
	Status        BookingStatus        `bson:"status" json:"status"`
	PaymentStatus PaymentStatus        `bson:"paymentStatus" json:"paymentStatus"`
	CreatedBy     CreatedBy            `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type BookingFilter struct {
	UserID      primitive.ObjectID
	Status      BookingStatus
	BookingType ResourceType
	Offset      int
	Limit       int
}
