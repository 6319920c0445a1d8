package kiosk_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin"
	"ms-checkin/internal/history"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/qr"
	"ms-checkin/internal/utils"
)

// EventsAPI lists the events an operator can scan for.
type EventsAPI interface {
	FetchEvents(ctx context.Context, token string) ([]models.Event, error)
}

// Handler serves the check-in flow to a kiosk or web shell. The HTTP status
// reports whether the request could be handled; the validation outcome itself
// is in the response body.
type Handler struct {
	session *session
	Events  EventsAPI
	History *history.List
	Store   auth.Store
	QR      *qr.Generator
	Logger  *logger.Logger
}

// NewHandler wires a kiosk session. deps.Navigator is replaced by the
// session; deps.Credentials should be store.
func NewHandler(deps checkin.Deps, events EventsAPI, hist *history.List, store auth.Store, gen *qr.Generator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = log
	}
	return &Handler{
		session: newSession(deps),
		Events:  events,
		History: hist,
		Store:   store,
		QR:      gen,
		Logger:  log,
	}
}

// RegisterRoutes registers the kiosk routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Get("/events", h.ListEvents)
	r.Post("/events/select", h.SelectEvent)

	r.Route("/validate", func(r chi.Router) {
		r.Post("/", h.Validate)
		r.Get("/candidates", h.ListCandidates)
		r.Post("/select", h.SelectCandidate)
	})

	r.Route("/ticket-details", func(r chi.Router) {
		r.Get("/", h.GetTicketDetails)
		r.Post("/checkin", h.ConfirmCheckIn)
		r.Get("/qr.png", h.TicketQR)
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.ListHistory)
		r.Delete("/{code}", h.DeleteHistoryRecord)
	})
}

type routeResponse struct {
	Destination string            `json:"destination"`
	Params      map[string]string `json:"params,omitempty"`
}

type flowResponse struct {
	Outcome    string          `json:"outcome,omitempty"`
	Message    string          `json:"message,omitempty"`
	Ticket     *models.Ticket  `json:"ticket,omitempty"`
	Candidates []models.Ticket `json:"candidates,omitempty"`
	Route      *routeResponse  `json:"route,omitempty"`
	Alert      string          `json:"alert,omitempty"`
}

func toFlowResponse(res checkin.Result) flowResponse {
	var out flowResponse
	if res.Outcome != nil {
		out.Outcome = res.Outcome.Kind.String()
		out.Message = res.Outcome.Message
		out.Ticket = res.Outcome.Ticket
		out.Candidates = res.Outcome.Candidates
	}
	if res.Route != nil {
		out.Route = &routeResponse{Destination: res.Route.Destination}
		if len(res.Route.Params) > 0 {
			out.Route.Params = make(map[string]string, len(res.Route.Params))
			for k := range res.Route.Params {
				out.Route.Params[k] = res.Route.Params.Get(k)
			}
		}
	}
	if res.Alert != nil {
		out.Alert = res.Alert.String()
	}
	return out
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Store.Save(r.Context(), body.Token); err != nil {
		if errors.Is(err, auth.ErrEmptyToken) {
			h.sendError(w, http.StatusBadRequest, "token is required", err)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	data := map[string]string{}
	if op, err := auth.ParseOperator(body.Token); err == nil {
		data["operator"] = op.Label()
	}
	h.Logger.LogSecurity("LOGIN", "Operator session stored")
	h.send(w, http.StatusOK, "Logged in", data)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Clear(r.Context()); err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to clear session", err)
		return
	}
	h.Logger.LogSecurity("LOGOUT", "Operator session cleared")
	h.send(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := h.fetchEvents(w, r)
	if !ok {
		return
	}
	h.send(w, http.StatusOK, "Events loaded", events)
}

func (h *Handler) SelectEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventID    string `json:"eventId"`
		ScheduleID string `json:"scheduleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.EventID == "" || body.ScheduleID == "" {
		h.sendError(w, http.StatusBadRequest, "Please select an event and schedule", checkin.ErrNoEventSelected)
		return
	}

	events, ok := h.fetchEvents(w, r)
	if !ok {
		return
	}
	sel, err := checkin.ChooseEvent(events, body.EventID, body.ScheduleID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "Please select an event and schedule", err)
		return
	}

	h.session.Navigate(sel.Route)
	h.Logger.Info("KIOSK", fmt.Sprintf("Scanning for %s (%s)", sel.Event.Title, sel.Schedule.Date))
	h.send(w, http.StatusOK, "Event selected", toFlowResponse(checkin.Result{Route: &sel.Route}))
}

func (h *Handler) fetchEvents(w http.ResponseWriter, r *http.Request) ([]models.Event, bool) {
	token, ok := h.Store.Token(r.Context())
	if !ok {
		h.sendError(w, http.StatusUnauthorized, "Please login first", checkin.ErrUnauthenticated)
		return nil, false
	}
	events, err := h.Events.FetchEvents(r.Context(), token)
	if err != nil {
		h.sendError(w, http.StatusBadGateway, "Failed to load events", err)
		return nil, false
	}
	return events, true
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.session.orchestrator.Validate(r.Context(), body.Code, h.session.Scope())
	if err != nil {
		h.sendFlowError(w, res, err)
		return
	}
	h.send(w, http.StatusOK, "Ticket validated", toFlowResponse(res))
}

func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	h.send(w, http.StatusOK, "Candidates", h.session.orchestrator.Candidates())
}

func (h *Handler) SelectCandidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
		ID   string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	candidates := h.session.orchestrator.Candidates()
	idx := slices.IndexFunc(candidates, func(t models.Ticket) bool {
		return t.Code == body.Code && (body.ID == "" || t.ID == body.ID)
	})
	if idx < 0 {
		h.sendError(w, http.StatusNotFound, "Ticket is not one of the candidates", checkin.ErrNotACandidate)
		return
	}

	res, err := h.session.orchestrator.SelectCandidate(r.Context(), candidates[idx])
	if err != nil {
		h.sendFlowError(w, res, err)
		return
	}
	h.send(w, http.StatusOK, "Candidate selected", toFlowResponse(res))
}

func (h *Handler) GetTicketDetails(w http.ResponseWriter, r *http.Request) {
	details := h.session.Details()
	if details == nil {
		h.sendError(w, http.StatusNotFound, "No ticket is being shown", checkin.ErrNoTicketData)
		return
	}
	view := details.View()
	if view.Error != "" {
		h.sendError(w, http.StatusUnprocessableEntity, view.Error, checkin.ErrNoTicketData)
		return
	}
	h.send(w, http.StatusOK, "Ticket details", view)
}

func (h *Handler) ConfirmCheckIn(w http.ResponseWriter, r *http.Request) {
	details := h.session.Details()
	if details == nil {
		h.sendError(w, http.StatusNotFound, "No ticket is being shown", checkin.ErrNoTicketData)
		return
	}

	res, err := details.ConfirmCheckIn(r.Context())
	if err != nil {
		h.sendFlowError(w, res, err)
		return
	}
	h.send(w, http.StatusOK, "Ticket checked in successfully", toFlowResponse(res))
}

func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	details := h.session.Details()
	if details == nil {
		h.sendError(w, http.StatusNotFound, "No ticket is being shown", checkin.ErrNoTicketData)
		return
	}
	ticket, err := details.Ticket()
	if err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, "Invalid ticket data", err)
		return
	}

	png, err := h.QR.PNG(ticket.Code)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("KIOSK", fmt.Sprintf("TicketQR: failed to write response: %v", err))
	}
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.History.Load(r.Context()); err != nil {
		if errors.Is(err, history.ErrUnauthenticated) {
			h.sendError(w, http.StatusUnauthorized, "Please login first", err)
			return
		}
		h.sendError(w, http.StatusBadGateway, "Failed to load history", err)
		return
	}
	records := slices.Collect(h.History.Filter(r.URL.Query().Get("q")))
	if records == nil {
		records = []models.HistoryRecord{}
	}
	h.send(w, http.StatusOK, "History loaded", records)
}

// DeleteHistoryRecord removes a record. When the service refuses, the kiosk
// puts the record back so the list matches the server again.
func (h *Handler) DeleteHistoryRecord(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	removal, err := h.History.Delete(r.Context(), code)
	switch {
	case err == nil:
		h.send(w, http.StatusOK, "Record deleted", nil)
	case errors.Is(err, history.ErrUnauthenticated):
		h.sendError(w, http.StatusUnauthorized, "Please login first", err)
	case errors.Is(err, history.ErrRecordNotFound):
		h.sendError(w, http.StatusNotFound, "Record not found", err)
	default:
		if removal != nil {
			removal.Undo()
		}
		h.sendError(w, http.StatusBadGateway, "Failed to delete record", err)
	}
}

func (h *Handler) sendFlowError(w http.ResponseWriter, res checkin.Result, err error) {
	message := err.Error()
	if res.Alert != nil {
		message = res.Alert.Message
	}

	var status int
	switch {
	case errors.Is(err, checkin.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, checkin.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, checkin.ErrBusy), errors.Is(err, checkin.ErrAlreadyCheckedIn):
		status = http.StatusConflict
	case errors.Is(err, checkin.ErrNotACandidate):
		status = http.StatusNotFound
	case errors.Is(err, checkin.ErrNoTicketData):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusBadGateway
	}

	h.Logger.Warn("KIOSK", fmt.Sprintf("%s: %v", message, err))
	resp := utils.ErrorResponse(message, err.Error())
	resp.Data = toFlowResponse(res)
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.Logger.Error("KIOSK", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) send(w http.ResponseWriter, status int, message string, data any) {
	if err := utils.WriteJSON(w, status, utils.SuccessResponse(message, data)); err != nil {
		h.Logger.Error("KIOSK", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string, err error) {
	h.Logger.Warn("KIOSK", fmt.Sprintf("%s: %v", message, err))
	if err := utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error())); err != nil {
		h.Logger.Error("KIOSK", fmt.Sprintf("Failed to encode response: %v", err))
	}
}
