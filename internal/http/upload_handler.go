package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/service"

	"go.uber.org/zap"
)

// maxUploadBytes caps CSV uploads at 10 MB, far above any realistic batch.
const maxUploadBytes = 10 << 20

// UploadHandler serves CSV ingestion, CSV updates and inventory exports.
type UploadHandler struct {
	ingest service.IngestService
	update service.UpdateService
	export service.ExportService
	logger *zap.Logger
}

func NewUploadHandler(
	ingest service.IngestService,
	update service.UpdateService,
	export service.ExportService,
	logger *zap.Logger,
) *UploadHandler {
	return &UploadHandler{ingest: ingest, update: update, export: export, logger: logger}
}

func (h *UploadHandler) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart form"))
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("missing file field"))
		return nil, false
	}
	return file, true
}

func (h *UploadHandler) writeUploadError(w http.ResponseWriter, err error) {
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, Result[service.ValidationErrors]{
			Code: ResultError, Type: "error", Message: "validation failed", Result: verrs,
		})
	case errors.Is(err, domain.ErrBarcodeConflict):
		writeJSON(w, http.StatusConflict, Fail("barcode sequence conflict, try again"))
	default:
		h.logger.Error("upload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

// Ingest handles POST /api/v1/records/upload: a CSV of new records.
func (h *UploadHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.ingest.Ingest(r.Context(), file)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"count":         len(result.Accepted),
		"first_barcode": result.FirstBarcode,
		"last_barcode":  result.LastBarcode,
	}))
}

// Update handles POST /api/v1/records/upload-update: metadata corrections.
func (h *UploadHandler) Update(w http.ResponseWriter, r *http.Request) {
	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	n, err := h.update.UpdateFromCSV(r.Context(), file)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": n}))
}

func exportFilters(r *http.Request) repository.RecordFilters {
	q := r.URL.Query()
	return repository.RecordFilters{
		CIS:        parseInt(q.Get("cis"), 0),
		RecordType: q.Get("type"),
		CheckedOut: q.Get("checked_out") == "true",
		Requested:  q.Get("requested") == "true",
	}
}

// ExportCSV handles GET /api/v1/records/export.
func (h *UploadHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.export.ExportCSV(r.Context(), &buf, exportFilters(r)); err != nil {
		h.writeUploadError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="records.csv"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// ExportExcel handles GET /api/v1/records/export-excel.
func (h *UploadHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	raw, err := h.export.ExportExcel(r.Context(), exportFilters(r))
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(raw)))
	_, _ = w.Write(raw)
}
