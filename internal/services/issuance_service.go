package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/documents"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const appendAttempts = 3

type IssuanceStore interface {
	models.PassRepo
	models.TicketRepo
	models.TxRunner
	GetBookingByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	AppendPassIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error
	AppendTicketIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error
}

type PassSpec struct {
	EventName   string `json:"eventName" validate:"required,max=120"`
	GuestName   string `json:"guestName" validate:"required,max=120"`
	AccessLevel string `json:"accessLevel" validate:"omitempty,max=60"`
}

type TicketSpec struct {
	Type  string  `json:"type" validate:"required,max=60"`
	Price float64 `json:"price" validate:"gte=0"`
}

// IssuanceService mints passes for garden bookings and tickets for water park
// bookings. Issuing is not idempotent: each call creates new records.
type IssuanceService struct {
	store   IssuanceStore
	codes   *CodeMinter
	docs    documents.Generator
	logger  *zap.Logger
	timeout time.Duration
}

func NewIssuanceService(store IssuanceStore, codes *CodeMinter, docs documents.Generator, logger *zap.Logger, timeout time.Duration) *IssuanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if docs == nil {
		docs = documents.NewPDFGenerator()
	}
	return &IssuanceService{store: store, codes: codes, docs: docs, logger: logger, timeout: timeout}
}

func (is *IssuanceService) loadBooking(ctx context.Context, id string, want models.ResourceType) (*models.Booking, error) {
	bookingID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid booking id")
	}
	booking, err := is.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("booking", err)
	}
	if booking.BookingType != want {
		return nil, apperror.Validation("booking %s is a %s booking, expected %s", booking.ID.Hex(), booking.BookingType, want)
	}
	return booking, nil
}

func (is *IssuanceService) IssuePasses(ctx context.Context, p *helpers.Principal, bookingID string, specs []PassSpec) ([]*models.Pass, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	if len(specs) == 0 {
		return nil, apperror.Validation("at least one pass is required")
	}
	for i := range specs {
		specs[i].EventName = strings.TrimSpace(specs[i].EventName)
		specs[i].GuestName = strings.TrimSpace(specs[i].GuestName)
		if err := models.Validate.Struct(specs[i]); err != nil {
			return nil, apperror.Validation("pass %d: eventName and guestName are required", i+1)
		}
	}

	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	booking, err := is.loadBooking(ctx, bookingID, models.ResourceGarden)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	passes := make([]*models.Pass, 0, len(specs))
	ids := make([]primitive.ObjectID, 0, len(specs))
	for _, spec := range specs {
		id := primitive.NewObjectID()
		code, err := is.codes.PassCode(booking.ID, id)
		if err != nil {
			return nil, apperror.Unexpected("failed to generate pass code", err)
		}
		access := spec.AccessLevel
		if access == "" {
			access = models.DefaultAccessLevel
		}
		passes = append(passes, &models.Pass{
			ID:        id,
			BookingID: booking.ID,
			PassType:  models.ResourceGarden,
			Details: models.PassDetails{
				EventName:   spec.EventName,
				GuestName:   spec.GuestName,
				AccessLevel: access,
			},
			QRCode:    code,
			Status:    models.CodeValid,
			CreatedAt: now,
			UpdatedAt: now,
		})
		ids = append(ids, id)
	}

	err = is.store.RunInTx(ctx, func(txCtx context.Context) error {
		if err := is.store.InsertPasses(txCtx, passes); err != nil {
			return err
		}
		return is.appendWithRetry(txCtx, func(c context.Context) error {
			return is.store.AppendPassIDs(c, booking.ID, ids)
		})
	})
	if err != nil {
		is.logger.Error("pass issuance failed", zap.String("booking_id", booking.ID.Hex()), zap.Error(err))
		return nil, storeError("booking", err)
	}

	is.logger.Info("passes issued", zap.String("booking_id", booking.ID.Hex()), zap.Int("count", len(passes)))
	return passes, nil
}

func (is *IssuanceService) IssueTickets(ctx context.Context, p *helpers.Principal, bookingID string, specs []TicketSpec) ([]*models.Ticket, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	if len(specs) == 0 {
		return nil, apperror.Validation("at least one ticket is required")
	}
	for i := range specs {
		specs[i].Type = strings.TrimSpace(specs[i].Type)
		if err := models.Validate.Struct(specs[i]); err != nil {
			return nil, apperror.Validation("ticket %d: type is required and price cannot be negative", i+1)
		}
	}

	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	booking, err := is.loadBooking(ctx, bookingID, models.ResourceWaterPark)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tickets := make([]*models.Ticket, 0, len(specs))
	ids := make([]primitive.ObjectID, 0, len(specs))
	for _, spec := range specs {
		id := primitive.NewObjectID()
		code, err := is.codes.TicketCode(booking.ID, id)
		if err != nil {
			return nil, apperror.Unexpected("failed to generate ticket code", err)
		}
		tickets = append(tickets, &models.Ticket{
			ID:         id,
			BookingID:  booking.ID,
			TicketType: models.ResourceWaterPark,
			Details:    models.TicketDetails{Type: spec.Type, Price: spec.Price},
			QRCode:     code,
			Status:     models.CodeValid,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		ids = append(ids, id)
	}

	err = is.store.RunInTx(ctx, func(txCtx context.Context) error {
		if err := is.store.InsertTickets(txCtx, tickets); err != nil {
			return err
		}
		return is.appendWithRetry(txCtx, func(c context.Context) error {
			return is.store.AppendTicketIDs(c, booking.ID, ids)
		})
	})
	if err != nil {
		is.logger.Error("ticket issuance failed", zap.String("booking_id", booking.ID.Hex()), zap.Error(err))
		return nil, storeError("booking", err)
	}

	is.logger.Info("tickets issued", zap.String("booking_id", booking.ID.Hex()), zap.Int("count", len(tickets)))
	return tickets, nil
}

// appendWithRetry only retries when there is no transaction to roll the
// inserted records back; inside a transaction the driver retries the unit.
func (is *IssuanceService) appendWithRetry(ctx context.Context, fn func(context.Context) error) error {
	if is.store.SupportsTransactions() {
		return fn(ctx)
	}
	var err error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		if err = fn(ctx); err == nil || errors.Is(err, models.ErrNotFound) {
			return err
		}
		is.logger.Warn("retrying booking link update", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return err
}

// GetPass is used by the public verification endpoint, so it needs no principal.
func (is *IssuanceService) GetPass(ctx context.Context, id string) (*models.Pass, error) {
	passID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid pass id")
	}
	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	pass, err := is.store.GetPassByID(ctx, passID)
	if err != nil {
		return nil, storeError("pass", err)
	}
	return pass, nil
}

func (is *IssuanceService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticketID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid ticket id")
	}
	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	ticket, err := is.store.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, storeError("ticket", err)
	}
	return ticket, nil
}

func (is *IssuanceService) RedeemPass(ctx context.Context, p *helpers.Principal, id string) (*models.Pass, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	passID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid pass id")
	}
	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	pass, err := is.store.RedeemPass(ctx, passID)
	if err != nil {
		if errors.Is(err, models.ErrNotRedeemable) {
			return nil, apperror.Conflict("pass has already been used or has expired")
		}
		return nil, storeError("pass", err)
	}
	return pass, nil
}

func (is *IssuanceService) RedeemTicket(ctx context.Context, p *helpers.Principal, id string) (*models.Ticket, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	ticketID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid ticket id")
	}
	ctx, cancel := withTimeout(ctx, is.timeout)
	defer cancel()

	ticket, err := is.store.RedeemTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, models.ErrNotRedeemable) {
			return nil, apperror.Conflict("ticket has already been used or has expired")
		}
		return nil, storeError("ticket", err)
	}
	return ticket, nil
}

func (is *IssuanceService) RenderPassPDF(ctx context.Context, id string) ([]byte, *models.Pass, error) {
	pass, err := is.GetPass(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := is.docs.RenderPass(pass)
	if err != nil {
		return nil, nil, apperror.Unexpected("failed to render pass", err)
	}
	return pdf, pass, nil
}

func (is *IssuanceService) RenderTicketPDF(ctx context.Context, id string) ([]byte, *models.Ticket, error) {
	ticket, err := is.GetTicket(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := is.docs.RenderTicket(ticket)
	if err != nil {
		return nil, nil, apperror.Unexpected("failed to render ticket", err)
	}
	return pdf, ticket, nil
}
