package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/mq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Notifier interface {
	NotifyBookingCreated(ctx context.Context, event mq.BookingCreatedEvent) error
}

// BookingStore is the slice of the repository the coordinator needs.
type BookingStore interface {
	models.BookingRepo
	models.ResourceLocker
	AvailabilityStore
	GetResourceByID(ctx context.Context, id primitive.ObjectID) (*models.Resource, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	InsertTickets(ctx context.Context, tickets []*models.Ticket) error
	SupportsTransactions() bool
}

type RoomBookingInput struct {
	CheckInDate  string            `json:"checkInDate"`
	CheckOutDate string            `json:"checkOutDate"`
	Guests       models.GuestCount `json:"guests"`
}

type GardenBookingInput struct {
	EventDate string   `json:"eventDate"`
	TimeSlot  string   `json:"timeSlot"`
	Services  []string `json:"services"`
}

type WaterParkBookingInput struct {
	Date    string              `json:"date"`
	Tickets []models.TicketLine `json:"tickets"`
}

type BookingDetailsInput struct {
	RoomBooking      *RoomBookingInput      `json:"roomBooking"`
	GardenBooking    *GardenBookingInput    `json:"gardenBooking"`
	WaterParkBooking *WaterParkBookingInput `json:"waterParkBooking"`
}

func (d *BookingDetailsInput) empty() bool {
	return d == nil || (d.RoomBooking == nil && d.GardenBooking == nil && d.WaterParkBooking == nil)
}

type CreateBookingInput struct {
	UserID      string               `json:"userId"`
	ResourceID  string               `json:"resourceId"`
	BookingType models.ResourceType  `json:"bookingType"`
	Details     *BookingDetailsInput `json:"details"`
}

type UpdateStatusInput struct {
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
}

type BookingService struct {
	store        BookingStore
	availability *AvailabilityChecker
	codes        *CodeMinter
	notifier     Notifier
	logger       *zap.Logger
	timeout      time.Duration
}

func NewBookingService(store BookingStore, codes *CodeMinter, notifier Notifier, logger *zap.Logger, timeout time.Duration) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		store:        store,
		availability: NewAvailabilityChecker(store),
		codes:        codes,
		notifier:     notifier,
		logger:       logger,
		timeout:      timeout,
	}
}

// CreateBooking is the self-service path. Callers book for themselves unless
// they are admins; the booking starts pending.
func (bs *BookingService) CreateBooking(ctx context.Context, p *helpers.Principal, in CreateBookingInput) (*models.Booking, error) {
	if p == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	if strings.TrimSpace(in.UserID) == "" {
		in.UserID = p.UserID
	}
	if !CanActForUser(p, in.UserID) {
		return nil, apperror.Forbidden("you can only create bookings for yourself")
	}
	return bs.create(ctx, in, models.BookingPending, models.CreatedByUser)
}

// CreateAdminBooking books on behalf of any user; the booking is confirmed at once.
func (bs *BookingService) CreateAdminBooking(ctx context.Context, p *helpers.Principal, in CreateBookingInput) (*models.Booking, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	return bs.create(ctx, in, models.BookingConfirmed, models.CreatedByAdmin)
}

func (bs *BookingService) create(ctx context.Context, in CreateBookingInput, status models.BookingStatus, createdBy models.CreatedBy) (*models.Booking, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ResourceID) == "" || in.BookingType == "" || in.Details.empty() {
		return nil, apperror.Validation("userId, resourceId, bookingType and details are required")
	}
	userID, err := helpers.ParseObjectID(in.UserID)
	if err != nil {
		return nil, apperror.Validation("invalid userId")
	}
	resourceID, err := helpers.ParseObjectID(in.ResourceID)
	if err != nil {
		return nil, apperror.Validation("invalid resourceId")
	}
	if !in.BookingType.Valid() {
		return nil, apperror.Validation("invalid booking type")
	}

	opCtx, cancel := withTimeout(ctx, bs.timeout)
	defer cancel()

	resource, err := bs.store.GetResourceByID(opCtx, resourceID)
	if err != nil {
		return nil, storeError("resource", err)
	}
	user, err := bs.store.GetUserByID(opCtx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	if resource.ResourceType != in.BookingType {
		return nil, apperror.Validation("bookingType %s does not match resource type %s", in.BookingType, resource.ResourceType)
	}

	details, err := buildDetails(in.BookingType, in.Details)
	if err != nil {
		return nil, err
	}
	price, err := QuotePrice(resource, in.BookingType, &details)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		ResourceID:    resourceID,
		BookingType:   in.BookingType,
		Details:       details,
		PassIDs:       []primitive.ObjectID{},
		TotalPrice:    price,
		Status:        status,
		PaymentStatus: models.PaymentPending,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tickets, err := bs.mintTickets(booking, now)
	if err != nil {
		return nil, err
	}

	err = bs.store.WithResourceLock(opCtx, resourceID, func(txCtx context.Context) error {
		available, err := bs.availability.IsAvailable(txCtx, resourceID, booking.BookingType, &booking.Details, primitive.NilObjectID)
		if err != nil {
			return err
		}
		if !available {
			return conflictFor(booking.BookingType)
		}
		if err := bs.store.InsertBooking(txCtx, booking); err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		if err := bs.store.InsertTickets(txCtx, tickets); err != nil {
			if !bs.store.SupportsTransactions() {
				if derr := bs.store.DiscardBooking(context.WithoutCancel(txCtx), booking.ID); derr != nil {
					bs.logger.Error("failed to discard booking after ticket insert failure",
						zap.String("booking_id", booking.ID.Hex()),
						zap.Error(derr),
					)
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, conflictFor(booking.BookingType)
		}
		mapped := storeError("booking", err)
		if apperror.KindOf(mapped) == apperror.KindUnexpected {
			bs.logger.Error("booking creation failed",
				zap.String("resource_id", resourceID.Hex()),
				zap.String("booking_type", string(booking.BookingType)),
				zap.Error(err),
			)
		}
		return nil, mapped
	}

	bs.notify(ctx, booking, user, resource)
	return booking, nil
}

func conflictFor(t models.ResourceType) error {
	switch t {
	case models.ResourceRoom:
		return apperror.Conflict("room unavailable")
	case models.ResourceGarden:
		return apperror.Conflict("garden unavailable")
	}
	return apperror.Conflict("resource unavailable")
}

// buildDetails validates the sub-document for the booking type and normalizes
// its dates to midnight UTC.
func buildDetails(t models.ResourceType, in *BookingDetailsInput) (models.BookingDetails, error) {
	var details models.BookingDetails

	switch t {
	case models.ResourceRoom:
		rb := in.RoomBooking
		if rb == nil || rb.CheckInDate == "" || rb.CheckOutDate == "" {
			return details, apperror.Validation("checkInDate and checkOutDate are required")
		}
		checkIn, err := helpers.ParseDate(rb.CheckInDate)
		if err != nil {
			return details, apperror.Validation("checkInDate: %v", err)
		}
		checkOut, err := helpers.ParseDate(rb.CheckOutDate)
		if err != nil {
			return details, apperror.Validation("checkOutDate: %v", err)
		}
		if err := models.Validate.Struct(rb.Guests); err != nil {
			return details, apperror.Validation("invalid guests: %v", err)
		}
		details.RoomBooking = &models.RoomBooking{
			CheckInDate:  helpers.StartOfDayUTC(checkIn),
			CheckOutDate: helpers.StartOfDayUTC(checkOut),
			Guests:       rb.Guests,
		}

	case models.ResourceGarden:
		gb := in.GardenBooking
		if gb == nil || gb.EventDate == "" {
			return details, apperror.Validation("eventDate is required")
		}
		eventDate, err := helpers.ParseDate(gb.EventDate)
		if err != nil {
			return details, apperror.Validation("eventDate: %v", err)
		}
		details.GardenBooking = &models.GardenBooking{
			EventDate: helpers.StartOfDayUTC(eventDate),
			TimeSlot:  strings.TrimSpace(gb.TimeSlot),
			Services:  gb.Services,
		}

	case models.ResourceWaterPark:
		wb := in.WaterParkBooking
		if wb == nil || wb.Date == "" {
			return details, apperror.Validation("date is required")
		}
		if len(wb.Tickets) == 0 {
			return details, apperror.Validation("at least one ticket is required")
		}
		date, err := helpers.ParseDate(wb.Date)
		if err != nil {
			return details, apperror.Validation("date: %v", err)
		}
		lines := make([]models.TicketLine, len(wb.Tickets))
		for i, line := range wb.Tickets {
			line.Type = strings.TrimSpace(line.Type)
			if err := models.Validate.Struct(line); err != nil {
				return details, apperror.Validation("ticket %d: %v", i+1, err)
			}
			lines[i] = line
		}
		details.WaterParkBooking = &models.WaterParkBooking{
			Date:    helpers.StartOfDayUTC(date),
			Tickets: lines,
		}

	default:
		return details, apperror.Validation("invalid booking type")
	}
	return details, nil
}

// mintTickets creates one ticket per water park line item. The booking id is
// allocated up front so tickets and booking can be written together.
func (bs *BookingService) mintTickets(booking *models.Booking, now time.Time) ([]*models.Ticket, error) {
	wb := booking.Details.WaterParkBooking
	if booking.BookingType != models.ResourceWaterPark || wb == nil {
		return nil, nil
	}

	tickets := make([]*models.Ticket, 0, len(wb.Tickets))
	ids := make([]primitive.ObjectID, 0, len(wb.Tickets))
	for _, line := range wb.Tickets {
		id := primitive.NewObjectID()
		code, err := bs.codes.TicketCode(booking.ID, id)
		if err != nil {
			return nil, apperror.Unexpected("failed to generate ticket code", err)
		}
		tickets = append(tickets, &models.Ticket{
			ID:         id,
			BookingID:  booking.ID,
			TicketType: models.ResourceWaterPark,
			Details:    models.TicketDetails{Type: line.Type, Price: line.Price},
			QRCode:     code,
			Status:     models.CodeValid,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		ids = append(ids, id)
	}
	wb.TicketIDs = ids
	return tickets, nil
}

// notify never fails the booking; it is already committed.
func (bs *BookingService) notify(ctx context.Context, b *models.Booking, user *models.User, resource *models.Resource) {
	if bs.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ev := mq.BookingCreatedEvent{
		BookingID:    b.ID.Hex(),
		UserID:       b.UserID.Hex(),
		UserEmail:    user.Email,
		UserName:     user.Name,
		ResourceID:   resource.ID.Hex(),
		ResourceName: resource.Name,
		BookingType:  string(b.BookingType),
		TotalPrice:   b.TotalPrice,
		Status:       string(b.Status),
		CreatedBy:    string(b.CreatedBy),
		CreatedAt:    b.CreatedAt,
	}
	if err := bs.notifier.NotifyBookingCreated(nctx, ev); err != nil {
		bs.logger.Warn("booking notification failed",
			zap.String("booking_id", ev.BookingID),
			zap.Error(err),
		)
	}
}

func (bs *BookingService) GetBooking(ctx context.Context, p *helpers.Principal, id string) (*models.Booking, error) {
	bookingID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid booking id")
	}

	ctx, cancel := withTimeout(ctx, bs.timeout)
	defer cancel()

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("booking", err)
	}
	if !CanAccessBooking(p, booking) {
		return nil, apperror.Forbidden("you do not have access to this booking")
	}
	return booking, nil
}

func (bs *BookingService) ListBookingsForUser(ctx context.Context, p *helpers.Principal, userID string, offset, limit int) ([]*models.Booking, int64, error) {
	uid, err := helpers.ParseObjectID(userID)
	if err != nil {
		return nil, 0, apperror.Validation("invalid user id")
	}
	if !CanActForUser(p, userID) {
		return nil, 0, apperror.Forbidden("you do not have access to these bookings")
	}
	return bs.list(ctx, models.BookingFilter{UserID: uid, Offset: offset, Limit: limit})
}

func (bs *BookingService) ListBookings(ctx context.Context, p *helpers.Principal, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, apperror.Forbidden("admin access required")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Validation("invalid status filter")
	}
	if filter.BookingType != "" && !filter.BookingType.Valid() {
		return nil, 0, apperror.Validation("invalid booking type filter")
	}
	return bs.list(ctx, filter)
}

func (bs *BookingService) list(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	if filter.Offset < 0 || filter.Limit <= 0 {
		return nil, 0, apperror.Validation("invalid offset or limit")
	}

	ctx, cancel := withTimeout(ctx, bs.timeout)
	defer cancel()

	bookings, total, err := bs.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, 0, storeError("bookings", err)
	}
	return bookings, total, nil
}

// UpdateStatus is the only way a booking changes after creation. Moving a
// cancelled or completed booking back to pending or confirmed takes its dates
// again, so that transition re-runs the availability check under the resource
// lock.
func (bs *BookingService) UpdateStatus(ctx context.Context, p *helpers.Principal, id string, in UpdateStatusInput) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	bookingID, err := helpers.ParseObjectID(id)
	if err != nil {
		return apperror.Validation("invalid booking id")
	}
	if !in.Status.Valid() {
		return apperror.Validation("status must be one of pending, confirmed, cancelled, completed")
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		return apperror.Validation("paymentStatus must be one of pending, paid, failed")
	}

	ctx, cancel := withTimeout(ctx, bs.timeout)
	defer cancel()

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return storeError("booking", err)
	}
	if !in.Status.Active() || booking.Status.Active() {
		if err := bs.store.UpdateBookingStatus(ctx, bookingID, in.Status, in.PaymentStatus); err != nil {
			return storeError("booking", err)
		}
		return nil
	}

	err = bs.store.WithResourceLock(ctx, booking.ResourceID, func(txCtx context.Context) error {
		current, err := bs.store.GetBookingByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !current.Status.Active() {
			available, err := bs.availability.IsAvailable(txCtx, current.ResourceID, current.BookingType, &current.Details, current.ID)
			if err != nil {
				return err
			}
			if !available {
				return conflictFor(current.BookingType)
			}
		}
		return bs.store.UpdateBookingStatus(txCtx, bookingID, in.Status, in.PaymentStatus)
	})
	if err != nil {
		mapped := storeError("booking", err)
		if apperror.KindOf(mapped) == apperror.KindUnexpected {
			bs.logger.Error("booking status update failed",
				zap.String("booking_id", bookingID.Hex()),
				zap.Error(err),
			)
		}
		return mapped
	}
	return nil
}
