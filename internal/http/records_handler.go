package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/service"

	"go.uber.org/zap"
)

// RecordsHandler serves record queries and lifecycle transitions.
type RecordsHandler struct {
	records   repository.RecordsRepository
	lifecycle service.LifecycleService
	logger    *zap.Logger
}

func NewRecordsHandler(
	records repository.RecordsRepository,
	lifecycle service.LifecycleService,
	logger *zap.Logger,
) *RecordsHandler {
	return &RecordsHandler{records: records, lifecycle: lifecycle, logger: logger}
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses: state
// conflicts are 409, missing records 404, bad input 400, the rest 500.
func (h *RecordsHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("record not found"))
	case errors.Is(err, domain.ErrAlreadyCheckedOut),
		errors.Is(err, domain.ErrNotCheckedOut),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrBarcodeConflict):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	default:
		var verrs service.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, Result[service.ValidationErrors]{
				Code: ResultError, Type: "error", Message: "validation failed", Result: verrs,
			})
			return
		}
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

// List handles GET /api/v1/records with optional filters.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.RecordFilters{
		CIS:          parseInt(q.Get("cis"), 0),
		RecordType:   strings.ToUpper(strings.TrimSpace(q.Get("type"))),
		CheckedOutTo: q.Get("checked_out_to"),
		Requested:    q.Get("requested") == "true",
		CheckedOut:   q.Get("checked_out") == "true",
	}
	page := parseInt(q.Get("page"), 1)
	size := parseInt(q.Get("size"), 50)

	records, total, err := h.records.ListRecords(r.Context(), filters, page, size)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]map[string]any, len(records))
	for i, rec := range records {
		items[i] = rec.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

// Requested handles GET /api/v1/records/requested (the dashboard view).
func (h *RecordsHandler) Requested(w http.ResponseWriter, r *http.Request) {
	records, err := h.lifecycle.ListRequested(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	items := make([]map[string]any, len(records))
	for i, rec := range records {
		items[i] = rec.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// Get handles GET /api/v1/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.records.GetRecord(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec.ToJSON()))
}

// Barcode handles GET /api/v1/records/barcode/{barcode}.
func (h *RecordsHandler) Barcode(w http.ResponseWriter, r *http.Request, barcode string) {
	rec, err := h.records.FindByBarcode(r.Context(), barcode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec.ToJSON()))
}

// History handles GET /api/v1/records/{id}/history.
func (h *RecordsHandler) History(w http.ResponseWriter, r *http.Request, id string) {
	entries, err := h.lifecycle.History(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	items := make([]map[string]any, len(entries))
	for i, e := range entries {
		items[i] = e.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

type lifecycleRequest struct {
	UserID string `json:"user_id"`
}

// Request handles POST /api/v1/records/{id}/request.
func (h *RecordsHandler) Request(w http.ResponseWriter, r *http.Request, id string) {
	var body lifecycleRequest
	if err := readBodyJSON(r, 1<<16, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.lifecycle.Request(r.Context(), id, body.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"record_id": id, "requested": true}))
}

// Ready handles POST /api/v1/records/{id}/ready.
func (h *RecordsHandler) Ready(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.lifecycle.MarkReadyForPickup(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"record_id": id, "ready_for_pickup": true}))
}

// Checkout handles POST /api/v1/records/{id}/checkout.
func (h *RecordsHandler) Checkout(w http.ResponseWriter, r *http.Request, id string) {
	var body lifecycleRequest
	if err := readBodyJSON(r, 1<<16, &body); err != nil || body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id is required"))
		return
	}
	if err := h.lifecycle.Checkout(r.Context(), id, body.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"record_id": id, "checked_out": true}))
}

// CheckIn handles POST /api/v1/records/{id}/checkin.
func (h *RecordsHandler) CheckIn(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.lifecycle.CheckIn(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"record_id": id, "checked_out": false}))
}
