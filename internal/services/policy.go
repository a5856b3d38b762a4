package services

import (
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
)

// CanAccessBooking is the one rule for reading a booking: its owner or an admin.
func CanAccessBooking(p *helpers.Principal, b *models.Booking) bool {
	if p == nil || b == nil {
		return false
	}
	return p.IsAdmin() || p.IsOwner(b.UserID.Hex())
}

// CanActForUser applies the same rule to operations addressed by user id.
func CanActForUser(p *helpers.Principal, userID string) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin() || p.IsOwner(userID)
}
