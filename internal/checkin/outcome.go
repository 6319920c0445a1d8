package checkin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"ms-checkin/internal/checkinapi"
	"ms-checkin/internal/models"
)

// Kind discriminates the validation outcome variants.
type Kind int

const (
	KindValid Kind = iota + 1
	KindAlreadyCheckedIn
	KindAmbiguous
	KindNotFound
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindAlreadyCheckedIn:
		return "already_checked_in"
	case KindAmbiguous:
		return "ambiguous"
	case KindNotFound:
		return "not_found"
	case KindTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

const (
	DefaultNotFoundMessage  = "Ticket not found"
	InvalidResponseMessage  = "Invalid response from server"
	DefaultCheckinFailedMsg = "Failed to check in"
)

// Outcome is the result of one validation attempt. Exactly the fields of its
// Kind are set:
//
//	KindValid             Ticket
//	KindAlreadyCheckedIn  Ticket, Record
//	KindAmbiguous         Candidates, in server order
//	KindNotFound          Message
//	KindTransportError    Message
type Outcome struct {
	Kind       Kind
	Ticket     *models.Ticket
	Record     *models.CheckinRecord
	Candidates []models.Ticket
	Message    string
}

func Valid(t models.Ticket) Outcome {
	return Outcome{Kind: KindValid, Ticket: &t}
}

func AlreadyCheckedIn(t models.Ticket, r models.CheckinRecord) Outcome {
	return Outcome{Kind: KindAlreadyCheckedIn, Ticket: &t, Record: &r}
}

func Ambiguous(candidates []models.Ticket) Outcome {
	return Outcome{Kind: KindAmbiguous, Candidates: candidates}
}

func NotFound(message string) Outcome {
	return Outcome{Kind: KindNotFound, Message: message}
}

func TransportError(message string) Outcome {
	return Outcome{Kind: KindTransportError, Message: message}
}

type validateBody struct {
	Ticket        *models.Ticket        `json:"ticket"`
	Tickets       []models.Ticket       `json:"tickets"`
	CheckinRecord *models.CheckinRecord `json:"checkinRecord"`
	Error         string                `json:"error"`
}

// Classify maps a validation response to its outcome. The status code is the
// discriminant; the body only has to carry the shape that status promises.
// Precedence: 300 ambiguous, 409 conflict, 404 not found, 2xx valid, and
// everything else is a transport error.
func Classify(status int, body []byte) Outcome {
	var payload validateBody
	var parseErr error
	if len(bytes.TrimSpace(body)) == 0 {
		parseErr = fmt.Errorf("empty body")
	} else {
		parseErr = json.Unmarshal(body, &payload)
	}
	parsed := parseErr == nil

	switch {
	case status == http.StatusMultipleChoices:
		if parsed && len(payload.Tickets) > 0 {
			return Ambiguous(payload.Tickets)
		}
	case status == http.StatusConflict:
		if parsed && hasCode(payload.Ticket) {
			record := payload.CheckinRecord
			if record == nil {
				record = payload.Ticket.CheckinRecord
			}
			if record != nil {
				return AlreadyCheckedIn(*payload.Ticket, *record)
			}
		}
	case status == http.StatusNotFound:
		if parsed && payload.Error != "" {
			return NotFound(payload.Error)
		}
		return NotFound(DefaultNotFoundMessage)
	case status >= 200 && status < 300:
		if parsed && hasCode(payload.Ticket) {
			return Valid(*payload.Ticket)
		}
	}

	if !parsed && len(bytes.TrimSpace(body)) > 0 {
		return TransportError(InvalidResponseMessage)
	}
	return TransportError(checkinapi.MessageFromBody(body, fmt.Sprintf("Unexpected response from server (status %d)", status)))
}

func hasCode(t *models.Ticket) bool {
	return t != nil && t.Code != ""
}
