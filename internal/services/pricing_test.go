package services

import (
	"testing"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(helpers.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestQuotePrice(t *testing.T) {
	room := &models.Resource{ResourceType: models.ResourceRoom, Price: 120}
	garden := &models.Resource{ResourceType: models.ResourceGarden, Price: 5000}
	park := &models.Resource{ResourceType: models.ResourceWaterPark, Price: 999}

	tests := []struct {
		name     string
		resource *models.Resource
		details  models.BookingDetails
		want     float64
		wantErr  bool
	}{
		{
			name:     "three nights",
			resource: room,
			details:  models.BookingDetails{RoomBooking: &models.RoomBooking{CheckInDate: day("2025-03-01"), CheckOutDate: day("2025-03-04")}},
			want:     360,
		},
		{
			name:     "checkout before checkin",
			resource: room,
			details:  models.BookingDetails{RoomBooking: &models.RoomBooking{CheckInDate: day("2025-03-04"), CheckOutDate: day("2025-03-01")}},
			wantErr:  true,
		},
		{
			name:     "garden flat fee",
			resource: garden,
			details:  models.BookingDetails{GardenBooking: &models.GardenBooking{EventDate: day("2025-03-01")}},
			want:     5000,
		},
		{
			name:     "water park sums tickets",
			resource: park,
			details: models.BookingDetails{WaterParkBooking: &models.WaterParkBooking{Tickets: []models.TicketLine{
				{Type: "adult", Price: 25}, {Type: "child", Price: 12.5}, {Type: "infant", Price: 0},
			}}},
			want: 37.5,
		},
		{
			name:     "water park without tickets",
			resource: park,
			details:  models.BookingDetails{WaterParkBooking: &models.WaterParkBooking{}},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuotePrice(tt.resource, tt.resource.ResourceType, &tt.details)
			if tt.wantErr {
				if apperror.KindOf(err) != apperror.KindValidation {
					t.Fatalf("got %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("QuotePrice: %v", err)
			}
			if got != tt.want {
				t.Errorf("price = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNightsIgnoresTimeOfDay(t *testing.T) {
	in := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)
	out := time.Date(2025, 1, 3, 1, 0, 0, 0, time.UTC)
	if n := Nights(in, out); n != 2 {
		t.Errorf("Nights = %d, want 2", n)
	}
}

func TestCanAccessBooking(t *testing.T) {
	owner := &helpers.Principal{UserID: "64b000000000000000000001", Role: models.RoleUser}
	other := &helpers.Principal{UserID: "64b000000000000000000002", Role: models.RoleUser}
	admin := &helpers.Principal{UserID: "64b000000000000000000003", Role: models.RoleAdmin}

	store := newMemStore()
	b := seedBooking(store, models.ResourceRoom)
	owner.UserID = b.UserID.Hex()

	if !CanAccessBooking(owner, b) || !CanAccessBooking(admin, b) {
		t.Errorf("owner and admin must have access")
	}
	if CanAccessBooking(other, b) || CanAccessBooking(nil, b) {
		t.Errorf("stranger and anonymous must not have access")
	}
}
