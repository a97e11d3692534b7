package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/service"

	"go.uber.org/zap"
)

// LabelsHandler serves label PDFs for barcode ranges and the direct-print
// path.
type LabelsHandler struct {
	labels service.LabelService
	logger *zap.Logger
}

func NewLabelsHandler(labels service.LabelService, logger *zap.Logger) *LabelsHandler {
	return &LabelsHandler{labels: labels, logger: logger}
}

func labelMode(r *http.Request) service.LabelMode {
	if r.URL.Query().Get("mode") == string(service.LabelModeSheet) {
		return service.LabelModeSheet
	}
	return service.LabelModePrinter
}

func rangeParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, Fail("from and to barcodes are required"))
		return "", "", false
	}
	return from, to, true
}

// Download handles GET /api/v1/labels?from=&to=&mode= and streams the PDF.
func (h *LabelsHandler) Download(w http.ResponseWriter, r *http.Request) {
	from, to, ok := rangeParams(w, r)
	if !ok {
		return
	}

	run, err := h.labels.RenderRange(r.Context(), from, to, labelMode(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no records in range"))
			return
		}
		h.logger.Error("label render failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.FileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(run.PDF)))
	_, _ = w.Write(run.PDF)
}

// Print handles POST /api/v1/labels/print and sends the range to the
// configured printer.
func (h *LabelsHandler) Print(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := readBodyJSON(r, 1<<16, &body); err != nil || body.From == "" || body.To == "" {
		writeJSON(w, http.StatusBadRequest, Fail("from and to barcodes are required"))
		return
	}

	if err := h.labels.PrintRange(r.Context(), body.From, body.To); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no records in range"))
			return
		}
		h.logger.Error("label print failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"printed": true}))
}
