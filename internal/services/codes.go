package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joshua-takyi/unibook/internal/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CodeGenerator renders a payload into a scannable image, returned as a data URL.
type CodeGenerator func(payload string) (string, error)

type codePayload struct {
	BookingID string `json:"bookingId"`
	PassID    string `json:"passId,omitempty"`
	TicketID  string `json:"ticketId,omitempty"`
	VerifyURL string `json:"verifyUrl"`
}

// CodeMinter builds the scannable codes printed on passes and tickets. Each
// code carries the booking id, the record id and the public verification URL.
type CodeMinter struct {
	generate CodeGenerator
	baseURL  string
}

func NewCodeMinter(generate CodeGenerator, baseURL string) *CodeMinter {
	if generate == nil {
		generate = helpers.QRDataURL
	}
	return &CodeMinter{generate: generate, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *CodeMinter) VerifyURL(kind string, id primitive.ObjectID) string {
	return fmt.Sprintf("%s/api/v1/verify/%s/%s", m.baseURL, kind, id.Hex())
}

func (m *CodeMinter) TicketCode(bookingID, ticketID primitive.ObjectID) (string, error) {
	return m.mint(codePayload{
		BookingID: bookingID.Hex(),
		TicketID:  ticketID.Hex(),
		VerifyURL: m.VerifyURL("ticket", ticketID),
	})
}

func (m *CodeMinter) PassCode(bookingID, passID primitive.ObjectID) (string, error) {
	return m.mint(codePayload{
		BookingID: bookingID.Hex(),
		PassID:    passID.Hex(),
		VerifyURL: m.VerifyURL("pass", passID),
	})
}

func (m *CodeMinter) mint(p codePayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return m.generate(string(raw))
}
