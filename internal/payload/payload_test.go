package payload

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/models"
)

func fullTicket() models.Ticket {
	return models.Ticket{
		Code:            "T-1001",
		AttendeeName:    "Sam Anderson & Co",
		Seat:            "A10",
		TicketPriceInfo: &models.TicketPriceInfo{Key: "zone1", Name: "Zone 1 / VIP"},
		Email:           "sam+tickets@example.com",
		PhoneNumber:     "+1 555 0100",
		EventName:       "Jazz Night",
		EventLocation:   "Main Hall",
		EventTime:       "2025-01-21T20:49:00Z",
		IsCheckedIn:     true,
	}
}

func TestTicketRoundTrip_AllFields(t *testing.T) {
	original := fullTicket()

	token, err := EncodeTicket(original)
	require.NoError(t, err)

	decoded, err := DecodeTicket(token)
	require.NoError(t, err)
	assert.Equal(t, original, *decoded)
}

func TestTicketToken_IsURLSafe(t *testing.T) {
	token, err := EncodeTicket(fullTicket())
	require.NoError(t, err)

	for _, ch := range []string{" ", "&", "=", "?", "/", "#", "{", "\""} {
		assert.NotContains(t, token, ch)
	}
}

func TestTicketRoundTrip_SeatOmitted(t *testing.T) {
	original := fullTicket()
	original.Seat = ""
	original.TicketPriceInfo = nil

	token, err := EncodeTicket(original)
	require.NoError(t, err)

	raw, err := url.QueryUnescape(token)
	require.NoError(t, err)
	assert.NotContains(t, raw, `"seat"`)

	decoded, err := DecodeTicket(token)
	require.NoError(t, err)
	assert.Empty(t, decoded.Seat)
	assert.Nil(t, decoded.TicketPriceInfo)
}

func TestEncodeTicket_DropsServerOnlyFields(t *testing.T) {
	original := fullTicket()
	original.ID = "srv-42"
	original.CheckinRecord = &models.CheckinRecord{CheckInTime: "2025-01-21T20:50:00Z"}

	token, err := EncodeTicket(original)
	require.NoError(t, err)

	decoded, err := DecodeTicket(token)
	require.NoError(t, err)
	assert.Empty(t, decoded.ID)
	assert.Nil(t, decoded.CheckinRecord)
}

func TestEncodeTicket_RequiresCode(t *testing.T) {
	_, err := EncodeTicket(models.Ticket{Code: "  "})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeTicket_BadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrEmptyToken},
		{"blank", "   ", ErrEmptyToken},
		{"bad escape", "%zz", ErrMalformedToken},
		{"not json", url.QueryEscape("ticket T-1"), ErrMalformedToken},
		{"json array", url.QueryEscape(`[1,2]`), ErrMalformedToken},
		{"no code", url.QueryEscape(`{"v":1,"seat":"A1"}`), ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ticket *models.Ticket
			var err error
			assert.NotPanics(t, func() { ticket, err = DecodeTicket(tt.token) })
			assert.Nil(t, ticket)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeTicket_LegacyAndFutureTokens(t *testing.T) {
	legacy := url.QueryEscape(`{"code":"T-7","attendeeName":"Ana","ticketPriceInfo":{"name":"Zone 2"}}`)
	ticket, err := DecodeTicket(legacy)
	require.NoError(t, err)
	assert.Equal(t, "T-7", ticket.Code)
	assert.Equal(t, "Zone 2", ticket.TicketPriceInfo.Name)

	future := url.QueryEscape(`{"v":2,"code":"T-8","gate":"north","seat":"B2"}`)
	ticket, err = DecodeTicket(future)
	require.NoError(t, err)
	assert.Equal(t, "B2", ticket.Seat)
}

func TestCheckinRecordRoundTrip(t *testing.T) {
	original := models.CheckinRecord{
		CheckInTime: "2025-01-21T20:50:00.000Z",
		CheckedInBy: &models.CheckedInBy{Email: "gate@example.com"},
	}

	token, err := EncodeCheckinRecord(original)
	require.NoError(t, err)

	decoded, err := DecodeCheckinRecord(token)
	require.NoError(t, err)
	assert.Equal(t, original, *decoded)
}

func TestDecodeCheckinRecord_AcceptsCheckedInAt(t *testing.T) {
	token := url.QueryEscape(`{"checkedInAt":"2025-01-21T20:50:00Z"}`)

	rec, err := DecodeCheckinRecord(token)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-21T20:50:00Z", rec.CheckInTime)
	assert.Nil(t, rec.CheckedInBy)

	rec, err = DecodeCheckinRecord(url.QueryEscape(`{"checkedInBy":{"email":"x@y"}}`))
	require.NoError(t, err)
	assert.Empty(t, rec.CheckInTime)

	_, err = DecodeCheckinRecord(url.QueryEscape(`"2025-01-21"`))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestDecodeCheckinRecord_RejectsNull(t *testing.T) {
	for _, token := range []string{"null", url.QueryEscape(" null ")} {
		rec, err := DecodeCheckinRecord(token)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrMalformedToken)
	}
}

func TestTicketParams(t *testing.T) {
	params, err := TicketParams(fullTicket(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, params.Get(ParamTicket))
	assert.Empty(t, params.Get(ParamCheckinRecord))

	rec := &models.CheckinRecord{CheckInTime: "2025-01-21T20:50:00Z"}
	params, err = TicketParams(fullTicket(), rec)
	require.NoError(t, err)

	// one more escaping layer when the bag goes into a URL, one unescape on arrival
	parsed, err := url.ParseQuery(params.Encode())
	require.NoError(t, err)
	decoded, err := DecodeCheckinRecord(parsed.Get(ParamCheckinRecord))
	require.NoError(t, err)
	assert.Equal(t, *rec, *decoded)
	assert.True(t, strings.HasPrefix(parsed.Get(ParamTicket), "%7B"))
}
