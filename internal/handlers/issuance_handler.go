package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/services"
)

type issuePassesRequest struct {
	Passes []services.PassSpec `json:"passes"`
}

type issueTicketsRequest struct {
	Tickets []services.TicketSpec `json:"tickets"`
}

func IssuePasses(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req issuePassesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		passes, err := is.IssuePasses(c.Request.Context(), p, c.Param("id"), req.Passes)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "passes": passes})
	}
}

func IssueTickets(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req issueTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		tickets, err := is.IssueTickets(c.Request.Context(), p, c.Param("id"), req.Tickets)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "tickets": tickets})
	}
}

// VerifyPass backs the URL embedded in every pass code.
func VerifyPass(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pass, err := is.GetPass(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"id":        pass.ID.Hex(),
			"bookingId": pass.BookingID.Hex(),
			"status":    pass.Status,
			"details":   pass.Details,
		})
	}
}

func VerifyTicket(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticket, err := is.GetTicket(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"id":        ticket.ID.Hex(),
			"bookingId": ticket.BookingID.Hex(),
			"status":    ticket.Status,
			"details":   ticket.Details,
		})
	}
}

func RedeemPass(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		pass, err := is.RedeemPass(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "pass": pass})
	}
}

func RedeemTicket(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		ticket, err := is.RedeemTicket(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "ticket": ticket})
	}
}

func DownloadPass(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pdf, pass, err := is.RenderPassPDF(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		attachment(c, fmt.Sprintf("pass-%s.pdf", pass.ID.Hex()), pdf)
	}
}

func DownloadTicket(is *services.IssuanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pdf, ticket, err := is.RenderTicketPDF(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		attachment(c, fmt.Sprintf("ticket-%s.pdf", ticket.ID.Hex()), pdf)
	}
}

func attachment(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
