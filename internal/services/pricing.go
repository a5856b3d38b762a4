package services

import (
	"math"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
)

// Nights counts whole calendar days between check-in and check-out in UTC.
func Nights(checkIn, checkOut time.Time) int {
	in := helpers.StartOfDayUTC(checkIn)
	out := helpers.StartOfDayUTC(checkOut)
	return int(math.Round(out.Sub(in).Hours() / 24))
}

// QuotePrice computes the total for a booking. The client never supplies it.
func QuotePrice(resource *models.Resource, bookingType models.ResourceType, details *models.BookingDetails) (float64, error) {
	switch bookingType {
	case models.ResourceRoom:
		rb := details.RoomBooking
		if rb == nil {
			return 0, apperror.Validation("roomBooking details are required")
		}
		n := Nights(rb.CheckInDate, rb.CheckOutDate)
		if n <= 0 {
			return 0, apperror.Validation("checkOutDate must be at least one night after checkInDate")
		}
		return float64(n) * resource.Price, nil

	case models.ResourceGarden:
		return resource.Price, nil

	case models.ResourceWaterPark:
		wb := details.WaterParkBooking
		if wb == nil || len(wb.Tickets) == 0 {
			return 0, apperror.Validation("at least one ticket is required")
		}
		var total float64
		for _, line := range wb.Tickets {
			if line.Price < 0 {
				return 0, apperror.Validation("ticket price cannot be negative")
			}
			total += line.Price
		}
		return total, nil
	}
	return 0, apperror.Validation("invalid booking type")
}
