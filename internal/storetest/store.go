// Package storetest provides an in-memory repository for tests of the
// services and the HTTP layer.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is an in-memory stand-in for MongodbRepo. A single mutex held for
// the whole of WithResourceLock gives the same serialization as the real lock.
// The maps may be read directly once concurrent calls have finished.
type Store struct {
	mu     sync.Mutex
	lockMu sync.Mutex
	users  map[primitive.ObjectID]*models.User
	res    map[primitive.ObjectID]*models.Resource

	Bookings map[primitive.ObjectID]*models.Booking
	Passes   map[primitive.ObjectID]*models.Pass
	Tickets  map[primitive.ObjectID]*models.Ticket

	// Tx reports transaction support to callers.
	Tx bool
	// FailTicketInsert is returned by InsertTickets when set.
	FailTicketInsert error
	// FailAppend makes that many id appends fail before succeeding.
	FailAppend int
}

func NewStore() *Store {
	return &Store{
		users:    map[primitive.ObjectID]*models.User{},
		res:      map[primitive.ObjectID]*models.Resource{},
		Bookings: map[primitive.ObjectID]*models.Booking{},
		Passes:   map[primitive.ObjectID]*models.Pass{},
		Tickets:  map[primitive.ObjectID]*models.Ticket{},
	}
}

func (m *Store) AddUser(role string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: primitive.NewObjectID(), Name: "Test User", Email: primitive.NewObjectID().Hex() + "@example.com", Role: role}
	m.users[u.ID] = u
	return u
}

func (m *Store) AddResource(t models.ResourceType, price float64) *models.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &models.Resource{ID: primitive.NewObjectID(), ResourceType: t, Name: t.Label(), Price: price}
	m.res[r.ID] = r
	return r
}

func (m *Store) SupportsTransactions() bool { return m.Tx }

func (m *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *Store) WithResourceLock(ctx context.Context, resourceID primitive.ObjectID, fn func(ctx context.Context) error) error {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	return fn(ctx)
}

func (m *Store) GetResourceByID(ctx context.Context, id primitive.ObjectID) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Store) CreateResource(ctx context.Context, r *models.Resource) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.res[r.ID] = r
	return r, nil
}

func (m *Store) ListResources(ctx context.Context, f models.ResourceFilter) ([]*models.Resource, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Resource
	for _, r := range m.res {
		if f.Type != "" && r.ResourceType != f.Type {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	total := int64(len(out))
	if f.Offset >= len(out) {
		return []*models.Resource{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (m *Store) UpdateResource(ctx context.Context, id primitive.ObjectID, u *models.ResourceUpdate) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Price != nil {
		r.Price = *u.Price
	}
	return r, nil
}

func (m *Store) DeleteResource(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.res[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.res, id)
	return nil
}

func (m *Store) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, models.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Store) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *Store) CountUsers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *Store) InsertBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Bookings[b.ID]; ok {
		return models.ErrDuplicate
	}
	m.Bookings[b.ID] = b
	return nil
}

func (m *Store) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return b, nil
}

func (m *Store) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.Bookings {
		if !f.UserID.IsZero() && b.UserID != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.BookingType != "" && b.BookingType != f.BookingType {
			continue
		}
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

func (m *Store) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus, pay models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	b.Status = status
	if pay != "" {
		b.PaymentStatus = pay
	}
	return nil
}

func (m *Store) HasRoomOverlap(ctx context.Context, resourceID primitive.ObjectID, checkIn, checkOut time.Time, exclude primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Bookings {
		rb := b.Details.RoomBooking
		if b.ResourceID != resourceID || rb == nil || b.ID == exclude {
			continue
		}
		if b.Status != models.BookingPending && b.Status != models.BookingConfirmed {
			continue
		}
		if rb.CheckInDate.Before(checkOut) && rb.CheckOutDate.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) HasGardenBookingOn(ctx context.Context, resourceID primitive.ObjectID, eventDate time.Time, exclude primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Bookings {
		gb := b.Details.GardenBooking
		if b.ResourceID == resourceID && gb != nil && b.ID != exclude && gb.EventDate.Equal(eventDate) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) AppendPassIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend > 0 {
		m.FailAppend--
		return errors.New("transient write failure")
	}
	b, ok := m.Bookings[bookingID]
	if !ok {
		return models.ErrNotFound
	}
	b.PassIDs = append(b.PassIDs, ids...)
	return nil
}

func (m *Store) AppendTicketIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend > 0 {
		m.FailAppend--
		return errors.New("transient write failure")
	}
	b, ok := m.Bookings[bookingID]
	if !ok || b.Details.WaterParkBooking == nil {
		return models.ErrNotFound
	}
	b.Details.WaterParkBooking.TicketIDs = append(b.Details.WaterParkBooking.TicketIDs, ids...)
	return nil
}

func (m *Store) DiscardBooking(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Bookings, id)
	return nil
}

func (m *Store) InsertTickets(ctx context.Context, tickets []*models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTicketInsert != nil {
		return m.FailTicketInsert
	}
	for _, t := range tickets {
		m.Tickets[t.ID] = t
	}
	return nil
}

func (m *Store) GetTicketByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t, nil
}

func (m *Store) RedeemTicket(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if t.Status != models.CodeValid {
		return nil, models.ErrNotRedeemable
	}
	t.Status = models.CodeUsed
	return t, nil
}

func (m *Store) InsertPasses(ctx context.Context, passes []*models.Pass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range passes {
		m.Passes[p.ID] = p
	}
	return nil
}

func (m *Store) GetPassByID(ctx context.Context, id primitive.ObjectID) (*models.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Passes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (m *Store) RedeemPass(ctx context.Context, id primitive.ObjectID) (*models.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Passes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.Status != models.CodeValid {
		return nil, models.ErrNotRedeemable
	}
	p.Status = models.CodeUsed
	return p, nil
}
