package checkinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

const maxBodyBytes = 1 << 20

// Client talks to the remote check-in service.
type Client struct {
	baseURL    string
	authScheme string
	client     *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for baseURL, e.g. "http://localhost:3000/api".
func NewClient(baseURL, authScheme string, client *http.Client, log *logger.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authScheme: authScheme,
		client:     client,
		logger:     log,
	}
}

// RawResponse is an HTTP response the caller classifies itself.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// StatusError is returned for non-2xx answers on calls with a single success shape.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("check-in service returned status %d: %s", e.StatusCode, e.Message)
}

// Validate submits a ticket code. Any HTTP answer is returned as-is; only
// transport failures produce an error.
func (c *Client) Validate(ctx context.Context, token string, req models.ValidationRequestContext) (*RawResponse, error) {
	path := "/checkin-app/validate/" + url.PathEscape(req.TicketCode)

	q := url.Values{}
	if req.EventID != "" {
		q.Set("eventId", req.EventID)
	}
	if req.ScheduleID != "" {
		q.Set("scheduleId", req.ScheduleID)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	return c.do(ctx, http.MethodPost, path, token, nil)
}

// ConfirmResponse is the body of a successful check-in.
type ConfirmResponse struct {
	Ticket        *models.Ticket        `json:"ticket"`
	CheckinRecord *models.CheckinRecord `json:"checkinRecord"`
}

// ConfirmCheckIn marks a ticket used.
func (c *Client) ConfirmCheckIn(ctx context.Context, token, code, eventDate string) (*ConfirmResponse, error) {
	body := map[string]string{"eventDate": eventDate}
	resp, err := c.do(ctx, http.MethodPost, "/checkin-app/checkin/"+url.PathEscape(code), token, body)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, "Failed to check in"); err != nil {
		return nil, err
	}

	var out ConfirmResponse
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode check-in response: %w", err)
		}
	}
	return &out, nil
}

// FetchEvents lists the events the operator may scan for.
func (c *Client) FetchEvents(ctx context.Context, token string) ([]models.Event, error) {
	resp, err := c.do(ctx, http.MethodGet, "/checkin-app/events", token, nil)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, "Failed to load events"); err != nil {
		return nil, err
	}

	var out struct {
		Events struct {
			Docs []models.Event `json:"docs"`
		} `json:"events"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode events response: %w", err)
	}
	return out.Events.Docs, nil
}

// FetchHistory lists past check-ins.
func (c *Client) FetchHistory(ctx context.Context, token string) ([]models.HistoryRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/checkin-app/history", token, nil)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, "Failed to load history"); err != nil {
		return nil, err
	}

	var out struct {
		Records []models.HistoryRecord `json:"records"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	return out.Records, nil
}

// DeleteHistoryRecord removes one past check-in, keyed by ticket code.
func (c *Client) DeleteHistoryRecord(ctx context.Context, token, code string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/checkin-app/history/"+url.PathEscape(code), token, nil)
	if err != nil {
		return err
	}
	return statusError(resp, "Failed to delete record")
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*RawResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.logger.Error("API", fmt.Sprintf("Failed to create request: %v", err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth.AuthorizationHeader(c.authScheme, token))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("API", fmt.Sprintf("%s %s failed: %v", method, path, err))
		return nil, fmt.Errorf("check-in service error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("API", fmt.Sprintf("Failed to close response body: %v", err))
		}
	}(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.LogAPI(method, path, resp.Status, time.Since(start).Round(time.Millisecond).String())
	return &RawResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

func statusError(resp *RawResponse, fallback string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: MessageFromBody(resp.Body, fallback)}
}

// MessageFromBody returns the server "message" (or "error") field, or fallback.
func MessageFromBody(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}
