package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/services"
)

func CreateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var in services.CreateBookingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		booking, err := b.CreateBooking(c.Request.Context(), p, in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "booking": booking})
	}
}

func CreateAdminBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var in services.CreateBookingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		booking, err := b.CreateAdminBooking(c.Request.Context(), p, in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "booking": booking})
	}
}

func GetBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		booking, err := b.GetBooking(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
	}
}

func ListUserBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		offset, limit, ok := pagination(c)
		if !ok {
			return
		}

		bookings, total, err := b.ListBookingsForUser(c.Request.Context(), p, c.Param("userId"), offset, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(bookings, offset/limit+1, limit, total))
	}
}

func ListBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		offset, limit, ok := pagination(c)
		if !ok {
			return
		}
		filter := models.BookingFilter{
			Status:      models.BookingStatus(c.Query("status")),
			BookingType: models.ResourceType(c.Query("type")),
			Offset:      offset,
			Limit:       limit,
		}

		bookings, total, err := b.ListBookings(c.Request.Context(), p, filter)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(bookings, offset/limit+1, limit, total))
	}
}

func UpdateBookingStatus(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var in services.UpdateStatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		if err := b.UpdateStatus(c.Request.Context(), p, c.Param("id"), in); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
