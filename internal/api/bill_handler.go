// Package api provides HTTP handlers for the API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dwatkins/billtrack/internal/api/middleware"
	"github.com/dwatkins/billtrack/internal/api/shared"
	"github.com/dwatkins/billtrack/internal/assignment"
	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/platform/logger"
	"github.com/dwatkins/billtrack/internal/store"
)

// BillResponse represents the response data for a bill.
type BillResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	AmountCents int64      `json:"amount_cents"`
	Stage       string     `json:"stage"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignBillResponse wraps the assignment result.
type AssignBillResponse struct {
	Success bool         `json:"success"`
	Bill    BillResponse `json:"bill"`
}

// CreateBillRequest represents the request body for creating a bill.
type CreateBillRequest struct {
	Title       string `json:"title"        validate:"required,max=200"`
	AmountCents int64  `json:"amount_cents" validate:"min=0"`
}

// BillHandler handles bill-related HTTP requests.
type BillHandler struct {
	assignments assignment.Service
	bills       store.BillStore
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(
	assignments assignment.Service,
	bills store.BillStore,
	logger *slog.Logger,
) *BillHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BillHandler")
	}

	return &BillHandler{
		assignments: assignments,
		bills:       bills,
		validate:    validator.New(),
		logger:      logger.With(slog.String("component", "bill_handler")),
	}
}

// CreateBill handles POST /bills requests.
// It creates a new unassigned bill in the draft stage.
func (h *BillHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid request body", assignment.KindValidationError.Code)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid request data", assignment.KindValidationError.Code)
		return
	}

	bill, err := domain.NewBill(req.Title, req.AmountCents)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			GetSafeErrorMessage(err), assignment.KindValidationError.Code)
		return
	}

	if err := h.bills.Create(r.Context(), bill); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), assignment.Classify(err).Code, err)
		return
	}

	log.Debug("bill created", slog.String("bill_id", bill.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, billToResponse(bill))
}

// GetBill handles GET /bills/{id} requests.
func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	billID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid bill ID", assignment.KindValidationError.Code)
		return
	}

	bill, err := h.bills.GetByID(r.Context(), billID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), assignment.Classify(err).Code, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, billToResponse(bill))
}

// ListMyBills handles GET /bills requests.
// It lists the bills currently assigned to the authenticated user.
func (h *BillHandler) ListMyBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized,
			"User ID not found or invalid", "")
		return
	}

	bills, err := h.bills.ListByAssignee(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), assignment.Classify(err).Code, err)
		return
	}

	responses := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		responses = append(responses, billToResponse(bill))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// AssignBill handles POST /bills/{id}/assign requests.
// It assigns the bill to the authenticated user, subject to the
// capacity cap and stage rules.
func (h *BillHandler) AssignBill(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized,
			"User ID not found or invalid", "")
		return
	}

	billID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid bill ID", assignment.KindValidationError.Code)
		return
	}

	bill, err := h.assignments.AssignBill(r.Context(), userID, billID)
	if err != nil {
		kind := assignment.Classify(err)
		shared.RespondWithErrorAndLog(w, r, StatusForClass(kind.Class),
			GetSafeErrorMessage(err), kind.Code, err)
		return
	}

	log.Debug("bill assigned via API",
		slog.String("user_id", userID.String()),
		slog.String("bill_id", bill.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, AssignBillResponse{
		Success: true,
		Bill:    billToResponse(bill),
	})
}

// CheckCapacity handles GET /capacity requests.
// It returns the authenticated user's advisory capacity view for
// pre-flight UI hints.
func (h *BillHandler) CheckCapacity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized,
			"User ID not found or invalid", "")
		return
	}

	view, err := h.assignments.CheckCapacity(r.Context(), userID)
	if err != nil {
		kind := assignment.Classify(err)
		shared.RespondWithErrorAndLog(w, r, StatusForClass(kind.Class),
			GetSafeErrorMessage(err), kind.Code, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// billToResponse transforms a domain bill into its API representation.
func billToResponse(bill *domain.Bill) BillResponse {
	resp := BillResponse{
		ID:          bill.ID.String(),
		Title:       bill.Title,
		AmountCents: bill.AmountCents,
		Stage:       string(bill.Stage),
		SubmittedAt: bill.SubmittedAt,
		CreatedAt:   bill.CreatedAt,
		UpdatedAt:   bill.UpdatedAt,
	}
	if bill.AssignedTo != nil {
		assignee := bill.AssignedTo.String()
		resp.AssignedTo = &assignee
	}
	return resp
}
