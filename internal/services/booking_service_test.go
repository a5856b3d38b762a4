package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func principalFor(u *models.User) *helpers.Principal {
	return &helpers.Principal{UserID: u.ID.Hex(), Role: u.Role, Email: u.Email}
}

func newBookingFixture(t *testing.T) (*memStore, *BookingService, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewBookingService(store, NewCodeMinter(rawCodes, "https://book.example.com"), notifier, nil, time.Second)
	return store, svc, notifier
}

func roomInput(u *models.User, r *models.Resource, in, out string) CreateBookingInput {
	return CreateBookingInput{
		UserID:      u.ID.Hex(),
		ResourceID:  r.ID.Hex(),
		BookingType: models.ResourceRoom,
		Details: &BookingDetailsInput{RoomBooking: &RoomBookingInput{
			CheckInDate:  in,
			CheckOutDate: out,
			Guests:       models.GuestCount{Adults: 2},
		}},
	}
}

func gardenInput(u *models.User, r *models.Resource, date string) CreateBookingInput {
	return CreateBookingInput{
		UserID:      u.ID.Hex(),
		ResourceID:  r.ID.Hex(),
		BookingType: models.ResourceGarden,
		Details: &BookingDetailsInput{GardenBooking: &GardenBookingInput{
			EventDate: date,
			TimeSlot:  "evening",
		}},
	}
}

func TestCreateRoomBookingThenOverlapConflicts(t *testing.T) {
	store, svc, notifier := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	room := store.AddResource(models.ResourceRoom, 100)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-06-01", "2025-06-03"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.TotalPrice != 200 {
		t.Errorf("TotalPrice = %v, want 200", b.TotalPrice)
	}
	if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentPending || b.CreatedBy != models.CreatedByUser {
		t.Errorf("unexpected initial state: %s/%s/%s", b.Status, b.PaymentStatus, b.CreatedBy)
	}
	if len(notifier.events) != 1 || notifier.events[0] != b.ID.Hex() {
		t.Errorf("notifier events = %v", notifier.events)
	}

	_, err = svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-06-02", "2025-06-04"))
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("overlapping booking: got %v, want conflict", err)
	}
	if err.Error() != "room unavailable" {
		t.Errorf("message = %q", err.Error())
	}

	// checkout day is free for the next guest
	if _, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-06-03", "2025-06-05")); err != nil {
		t.Fatalf("back-to-back booking: %v", err)
	}
}

func TestCancelledRoomBookingFreesDates(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	admin := store.AddUser(models.RoleAdmin)
	room := store.AddResource(models.ResourceRoom, 80)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-07-01", "2025-07-04"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	err = svc.UpdateStatus(ctx, principalFor(admin), b.ID.Hex(), UpdateStatusInput{Status: models.BookingCancelled})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-07-02", "2025-07-03")); err != nil {
		t.Fatalf("booking over cancelled dates: %v", err)
	}
}

func TestRoomBookingRejectsZeroNights(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	room := store.AddResource(models.ResourceRoom, 100)

	_, err := svc.CreateBooking(context.Background(), principalFor(user), roomInput(user, room, "2025-06-03", "2025-06-03"))
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
	if len(store.Bookings) != 0 {
		t.Errorf("booking persisted despite validation error")
	}
}

func TestGardenBookingOnePerDate(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	garden := store.AddResource(models.ResourceGarden, 5000)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, principalFor(user), gardenInput(user, garden, "2025-12-12"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.TotalPrice != 5000 {
		t.Errorf("TotalPrice = %v, want 5000", b.TotalPrice)
	}

	in := gardenInput(user, garden, "2025-12-12T18:30:00Z")
	in.Details.GardenBooking.TimeSlot = "morning"
	_, err = svc.CreateBooking(ctx, principalFor(user), in)
	if apperror.KindOf(err) != apperror.KindConflict || err.Error() != "garden unavailable" {
		t.Fatalf("same-date garden booking: got %v", err)
	}
}

func TestWaterParkBookingCreatesTickets(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	park := store.AddResource(models.ResourceWaterPark, 0)

	in := CreateBookingInput{
		UserID:      user.ID.Hex(),
		ResourceID:  park.ID.Hex(),
		BookingType: models.ResourceWaterPark,
		Details: &BookingDetailsInput{WaterParkBooking: &WaterParkBookingInput{
			Date:    "2025-08-10",
			Tickets: []models.TicketLine{{Type: "adult", Price: 20}, {Type: "child", Price: 10}},
		}},
	}
	b, err := svc.CreateBooking(context.Background(), principalFor(user), in)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.TotalPrice != 30 {
		t.Errorf("TotalPrice = %v, want 30", b.TotalPrice)
	}
	ids := b.Details.WaterParkBooking.TicketIDs
	if len(ids) != 2 {
		t.Fatalf("ticketIds = %d, want 2", len(ids))
	}
	for _, id := range ids {
		ticket, ok := store.Tickets[id]
		if !ok {
			t.Fatalf("ticket %s not stored", id.Hex())
		}
		if ticket.BookingID != b.ID || ticket.Status != models.CodeValid || ticket.QRCode == "" {
			t.Errorf("ticket %s not linked: %+v", id.Hex(), ticket)
		}
	}
}

func TestWaterParkTicketFailureDiscardsBooking(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	park := store.AddResource(models.ResourceWaterPark, 0)
	store.FailTicketInsert = errors.New("insert failed")

	in := CreateBookingInput{
		UserID:      user.ID.Hex(),
		ResourceID:  park.ID.Hex(),
		BookingType: models.ResourceWaterPark,
		Details: &BookingDetailsInput{WaterParkBooking: &WaterParkBookingInput{
			Date:    "2025-08-10",
			Tickets: []models.TicketLine{{Type: "adult", Price: 20}},
		}},
	}
	_, err := svc.CreateBooking(context.Background(), principalFor(user), in)
	if apperror.KindOf(err) != apperror.KindUnexpected {
		t.Fatalf("got %v, want unexpected error", err)
	}
	if len(store.Bookings) != 0 {
		t.Errorf("booking left behind after ticket failure")
	}
}

func TestCreateBookingValidation(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	other := store.AddUser(models.RoleUser)
	room := store.AddResource(models.ResourceRoom, 100)
	garden := store.AddResource(models.ResourceGarden, 100)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateBookingInput
		want apperror.Kind
	}{
		{"missing details", CreateBookingInput{UserID: user.ID.Hex(), ResourceID: room.ID.Hex(), BookingType: models.ResourceRoom}, apperror.KindValidation},
		{"unknown resource", roomInput(user, &models.Resource{ID: primitive.NewObjectID()}, "2025-01-01", "2025-01-02"), apperror.KindNotFound},
		{"type mismatch", roomInput(user, garden, "2025-01-01", "2025-01-02"), apperror.KindValidation},
		{"someone else", roomInput(other, room, "2025-01-01", "2025-01-02"), apperror.KindForbidden},
		{"bad date", roomInput(user, room, "01/02/2025", "2025-01-03"), apperror.KindValidation},
		{"bad type", CreateBookingInput{UserID: user.ID.Hex(), ResourceID: room.ID.Hex(), BookingType: "spa", Details: &BookingDetailsInput{RoomBooking: &RoomBookingInput{}}}, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, principalFor(user), tt.in)
			if got := apperror.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestCreateBookingUnknownUser(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	admin := store.AddUser(models.RoleAdmin)
	room := store.AddResource(models.ResourceRoom, 100)
	ghost := &models.User{ID: primitive.NewObjectID()}

	_, err := svc.CreateAdminBooking(context.Background(), principalFor(admin), roomInput(ghost, room, "2025-01-01", "2025-01-02"))
	if apperror.KindOf(err) != apperror.KindNotFound || err.Error() != "user not found" {
		t.Fatalf("got %v, want user not found", err)
	}
}

func TestAdminBookingIsConfirmed(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	admin := store.AddUser(models.RoleAdmin)
	user := store.AddUser(models.RoleUser)
	room := store.AddResource(models.ResourceRoom, 150)

	b, err := svc.CreateAdminBooking(context.Background(), principalFor(admin), roomInput(user, room, "2025-02-01", "2025-02-02"))
	if err != nil {
		t.Fatalf("CreateAdminBooking: %v", err)
	}
	if b.Status != models.BookingConfirmed || b.CreatedBy != models.CreatedByAdmin || b.UserID != user.ID {
		t.Errorf("unexpected booking: %+v", b)
	}

	_, err = svc.CreateAdminBooking(context.Background(), principalFor(user), roomInput(user, room, "2025-03-01", "2025-03-02"))
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("non-admin: got %v, want forbidden", err)
	}
}

func TestNotifierFailureDoesNotFailBooking(t *testing.T) {
	store, svc, notifier := newBookingFixture(t)
	notifier.err = errors.New("broker down")
	user := store.AddUser(models.RoleUser)
	garden := store.AddResource(models.ResourceGarden, 300)

	if _, err := svc.CreateBooking(context.Background(), principalFor(user), gardenInput(user, garden, "2025-05-05")); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if len(store.Bookings) != 1 {
		t.Errorf("bookings = %d, want 1", len(store.Bookings))
	}
}

func TestConcurrentGardenBookingsOneWins(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	garden := store.AddResource(models.ResourceGarden, 1000)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), principalFor(user), gardenInput(user, garden, "2025-09-09"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.KindOf(err) == apperror.KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("ok=%d conflicts=%d, want 1 and %d", ok, conflicts, n-1)
	}
}

func TestGetBookingAccess(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	owner := store.AddUser(models.RoleUser)
	stranger := store.AddUser(models.RoleUser)
	admin := store.AddUser(models.RoleAdmin)
	room := store.AddResource(models.ResourceRoom, 100)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, principalFor(owner), roomInput(owner, room, "2025-04-01", "2025-04-02"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := svc.GetBooking(ctx, principalFor(owner), b.ID.Hex()); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := svc.GetBooking(ctx, principalFor(admin), b.ID.Hex()); err != nil {
		t.Errorf("admin: %v", err)
	}
	if _, err := svc.GetBooking(ctx, principalFor(stranger), b.ID.Hex()); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("stranger: got %v, want forbidden", err)
	}
	if _, err := svc.GetBooking(ctx, principalFor(owner), primitive.NewObjectID().Hex()); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("missing: got %v, want not found", err)
	}

	list, total, err := svc.ListBookingsForUser(ctx, principalFor(owner), owner.ID.Hex(), 0, 10)
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("ListBookingsForUser = %d/%d, %v", len(list), total, err)
	}
	if _, _, err := svc.ListBookingsForUser(ctx, principalFor(stranger), owner.ID.Hex(), 0, 10); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("stranger list: got %v", err)
	}
	if _, _, err := svc.ListBookings(ctx, principalFor(owner), models.BookingFilter{Limit: 10}); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("user admin list: got %v", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	admin := store.AddUser(models.RoleAdmin)
	ctx := context.Background()

	err := svc.UpdateStatus(ctx, principalFor(admin), primitive.NewObjectID().Hex(), UpdateStatusInput{Status: "archived"})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("bad status: got %v", err)
	}
	err = svc.UpdateStatus(ctx, principalFor(admin), primitive.NewObjectID().Hex(), UpdateStatusInput{Status: models.BookingConfirmed})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("missing booking: got %v", err)
	}
}

func TestReactivatingBookingRechecksAvailability(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	admin := store.AddUser(models.RoleAdmin)
	room := store.AddResource(models.ResourceRoom, 100)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-01-10", "2025-01-12"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if err := svc.UpdateStatus(ctx, principalFor(admin), first.ID.Hex(), UpdateStatusInput{Status: models.BookingCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-01-11", "2025-01-13")); err != nil {
		t.Fatalf("rebook cancelled dates: %v", err)
	}

	err = svc.UpdateStatus(ctx, principalFor(admin), first.ID.Hex(), UpdateStatusInput{Status: models.BookingConfirmed})
	if apperror.KindOf(err) != apperror.KindConflict || err.Error() != "room unavailable" {
		t.Fatalf("reactivate over taken dates: got %v, want room unavailable", err)
	}
	if got := store.Bookings[first.ID].Status; got != models.BookingCancelled {
		t.Errorf("status = %s, want cancelled", got)
	}

	active := 0
	for _, b := range store.Bookings {
		if b.ResourceID == room.ID && b.Status.Active() {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active bookings on room = %d, want 1", active)
	}
}

func TestReactivatingFreeBookingSucceeds(t *testing.T) {
	store, svc, _ := newBookingFixture(t)
	user := store.AddUser(models.RoleUser)
	admin := store.AddUser(models.RoleAdmin)
	room := store.AddResource(models.ResourceRoom, 100)
	garden := store.AddResource(models.ResourceGarden, 900)
	ctx := context.Background()

	stay, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-03-01", "2025-03-04"))
	if err != nil {
		t.Fatalf("CreateBooking room: %v", err)
	}
	event, err := svc.CreateBooking(ctx, principalFor(user), gardenInput(user, garden, "2025-03-08"))
	if err != nil {
		t.Fatalf("CreateBooking garden: %v", err)
	}

	for _, b := range []*models.Booking{stay, event} {
		if err := svc.UpdateStatus(ctx, principalFor(admin), b.ID.Hex(), UpdateStatusInput{Status: models.BookingCancelled}); err != nil {
			t.Fatalf("cancel %s: %v", b.BookingType, err)
		}
		// the booking must not conflict with its own dates
		if err := svc.UpdateStatus(ctx, principalFor(admin), b.ID.Hex(), UpdateStatusInput{Status: models.BookingConfirmed, PaymentStatus: models.PaymentPaid}); err != nil {
			t.Fatalf("reactivate %s: %v", b.BookingType, err)
		}
		got := store.Bookings[b.ID]
		if got.Status != models.BookingConfirmed || got.PaymentStatus != models.PaymentPaid {
			t.Errorf("%s: status %s/%s", b.BookingType, got.Status, got.PaymentStatus)
		}
	}

	// pending to confirmed keeps the dates it already holds
	other, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, "2025-03-10", "2025-03-11"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if err := svc.UpdateStatus(ctx, principalFor(admin), other.ID.Hex(), UpdateStatusInput{Status: models.BookingConfirmed}); err != nil {
		t.Errorf("confirm pending: %v", err)
	}
}

// Two stays on one room are both accepted exactly when their nights are
// disjoint, compared day by day.
func TestRoomBookingsAcceptedIffDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	date := func(d int) string { return base.AddDate(0, 0, d).Format("2006-01-02") }

	for i := 0; i < 300; i++ {
		store, svc, _ := newBookingFixture(t)
		user := store.AddUser(models.RoleUser)
		room := store.AddResource(models.ResourceRoom, 50)
		ctx := context.Background()

		aStart, bStart := rng.Intn(20), rng.Intn(20)
		aEnd, bEnd := aStart+1+rng.Intn(7), bStart+1+rng.Intn(7)

		nights := map[int]bool{}
		for d := aStart; d < aEnd; d++ {
			nights[d] = true
		}
		shared := false
		for d := bStart; d < bEnd; d++ {
			if nights[d] {
				shared = true
			}
		}

		if _, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, date(aStart), date(aEnd))); err != nil {
			t.Fatalf("case %d: first booking: %v", i, err)
		}
		_, err := svc.CreateBooking(ctx, principalFor(user), roomInput(user, room, date(bStart), date(bEnd)))
		switch {
		case shared && apperror.KindOf(err) != apperror.KindConflict:
			t.Fatalf("[%d,%d) then [%d,%d): got %v, want conflict", aStart, aEnd, bStart, bEnd, err)
		case !shared && err != nil:
			t.Fatalf("[%d,%d) then [%d,%d): got %v, want accepted", aStart, aEnd, bStart, bEnd, err)
		}
	}
}
