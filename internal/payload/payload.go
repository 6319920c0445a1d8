// Package payload encodes ticket data passed between screens as navigation
// parameters.
//
// Each object travels as one URL-safe token: the query-escaped JSON of a
// versioned envelope. Version 1 guarantees "code" on tickets; every other
// ticket field is optional and may be absent in tokens produced by older
// clients. A check-in record token signals a used ticket by its presence, so
// all of its fields are optional. Unknown fields are ignored so newer tokens
// still decode.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ms-checkin/internal/models"
)

// Version is the current payload protocol version.
const Version = 1

// Navigation parameter names.
const (
	ParamTicket        = "ticket"
	ParamCheckinRecord = "checkinRecord"
)

var (
	ErrEmptyToken     = errors.New("empty payload token")
	ErrMalformedToken = errors.New("malformed payload token")
	ErrMissingField   = errors.New("payload missing required field")
)

type ticketEnvelope struct {
	V               int                     `json:"v"`
	Code            string                  `json:"code"`
	AttendeeName    string                  `json:"attendeeName,omitempty"`
	Seat            string                  `json:"seat,omitempty"`
	TicketPriceInfo *models.TicketPriceInfo `json:"ticketPriceInfo,omitempty"`
	Email           string                  `json:"email,omitempty"`
	PhoneNumber     string                  `json:"phoneNumber,omitempty"`
	EventName       string                  `json:"eventName,omitempty"`
	EventLocation   string                  `json:"eventLocation,omitempty"`
	EventTime       string                  `json:"eventTime,omitempty"`
	IsCheckedIn     bool                    `json:"isCheckedIn,omitempty"`
}

type recordEnvelope struct {
	V           int                 `json:"v"`
	CheckInTime string              `json:"checkInTime,omitempty"`
	CheckedInBy *models.CheckedInBy `json:"checkedInBy,omitempty"`
}

// EncodeTicket serializes the fields the details screen needs. The server-side
// id and the nested check-in record are not carried; the record travels as its
// own token.
func EncodeTicket(t models.Ticket) (string, error) {
	if strings.TrimSpace(t.Code) == "" {
		return "", fmt.Errorf("encode ticket: %w: code", ErrMissingField)
	}
	env := ticketEnvelope{
		V:               Version,
		Code:            t.Code,
		AttendeeName:    t.AttendeeName,
		Seat:            t.Seat,
		TicketPriceInfo: t.TicketPriceInfo,
		Email:           t.Email,
		PhoneNumber:     t.PhoneNumber,
		EventName:       t.EventName,
		EventLocation:   t.EventLocation,
		EventTime:       t.EventTime,
		IsCheckedIn:     t.IsCheckedIn,
	}
	return encode(env)
}

// EncodeCheckinRecord serializes a check-in record.
func EncodeCheckinRecord(r models.CheckinRecord) (string, error) {
	return encode(recordEnvelope{
		V:           Version,
		CheckInTime: r.CheckInTime,
		CheckedInBy: r.CheckedInBy,
	})
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return url.QueryEscape(string(data)), nil
}

// DecodeTicket reconstructs a ticket from a token. It never panics: an absent or
// malformed token yields an error and a nil ticket.
func DecodeTicket(token string) (*models.Ticket, error) {
	var env ticketEnvelope
	if err := decode(token, &env); err != nil {
		return nil, err
	}
	if env.Code == "" {
		return nil, fmt.Errorf("decode ticket: %w: code", ErrMissingField)
	}
	return &models.Ticket{
		Code:            env.Code,
		AttendeeName:    env.AttendeeName,
		Seat:            env.Seat,
		TicketPriceInfo: env.TicketPriceInfo,
		Email:           env.Email,
		PhoneNumber:     env.PhoneNumber,
		EventName:       env.EventName,
		EventLocation:   env.EventLocation,
		EventTime:       env.EventTime,
		IsCheckedIn:     env.IsCheckedIn,
	}, nil
}

// DecodeCheckinRecord reconstructs a check-in record. Tokens written with the
// older "checkedInAt" key are accepted.
func DecodeCheckinRecord(token string) (*models.CheckinRecord, error) {
	var rec *models.CheckinRecord
	if err := decode(token, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("decode check-in record: %w: null", ErrMalformedToken)
	}
	return rec, nil
}

func decode(token string, v any) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}
	raw, err := url.QueryUnescape(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return nil
}

// TicketParams builds the details-screen parameter bag. record may be nil.
func TicketParams(t models.Ticket, record *models.CheckinRecord) (url.Values, error) {
	ticketToken, err := EncodeTicket(t)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set(ParamTicket, ticketToken)

	if record != nil {
		recordToken, err := EncodeCheckinRecord(*record)
		if err != nil {
			return nil, err
		}
		params.Set(ParamCheckinRecord, recordToken)
	}
	return params, nil
}
