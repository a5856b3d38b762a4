package services

import (
	"context"
	"time"

	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AvailabilityStore interface {
	HasRoomOverlap(ctx context.Context, resourceID primitive.ObjectID, checkIn, checkOut time.Time, exclude primitive.ObjectID) (bool, error)
	HasGardenBookingOn(ctx context.Context, resourceID primitive.ObjectID, eventDate time.Time, exclude primitive.ObjectID) (bool, error)
}

type AvailabilityChecker struct {
	store AvailabilityStore
}

func NewAvailabilityChecker(store AvailabilityStore) *AvailabilityChecker {
	return &AvailabilityChecker{store: store}
}

// IsAvailable applies the conflict rule of the booking type:
//   - room: no pending or confirmed room booking may overlap the stay
//   - marriageGarden: one booking per event date, regardless of time slot
//   - waterPark: always available, there is no capacity model
//
// exclude is the booking being re-checked, if any; it never conflicts with itself.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, resourceID primitive.ObjectID, bookingType models.ResourceType, details *models.BookingDetails, exclude primitive.ObjectID) (bool, error) {
	switch bookingType {
	case models.ResourceRoom:
		rb := details.RoomBooking
		taken, err := a.store.HasRoomOverlap(ctx, resourceID, rb.CheckInDate, rb.CheckOutDate, exclude)
		if err != nil {
			return false, err
		}
		return !taken, nil
	case models.ResourceGarden:
		taken, err := a.store.HasGardenBookingOn(ctx, resourceID, details.GardenBooking.EventDate, exclude)
		if err != nil {
			return false, err
		}
		return !taken, nil
	default:
		return true, nil
	}
}
