// Package httpapi exposes the record-tracking core over HTTP.
package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux; the route surface is small
// enough that a third-party router buys nothing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterRecordRoutes wires the record query and lifecycle endpoints.
func (r *Router) RegisterRecordRoutes(h *RecordsHandler) {
	r.Handle("/api/v1/records", methodOnly(http.MethodGet, h.List))
	r.Handle("/api/v1/records/requested", methodOnly(http.MethodGet, h.Requested))

	r.Handle("/api/v1/records/barcode/", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		bc := strings.TrimPrefix(req.URL.Path, "/api/v1/records/barcode/")
		if bc == "" || strings.Contains(bc, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Barcode(w, req, bc)
	}))

	// /api/v1/records/{id} and /api/v1/records/{id}/{action}
	r.Handle("/api/v1/records/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/records/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch action {
		case "":
			methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
				h.Get(w, req, id)
			})(w, req)
		case "history":
			methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
				h.History(w, req, id)
			})(w, req)
		case "request":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.Request(w, req, id)
			})(w, req)
		case "ready":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.Ready(w, req, id)
			})(w, req)
		case "checkout":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.Checkout(w, req, id)
			})(w, req)
		case "checkin":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.CheckIn(w, req, id)
			})(w, req)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterUploadRoutes wires CSV ingestion, updates and exports.
func (r *Router) RegisterUploadRoutes(h *UploadHandler) {
	r.Handle("/api/v1/records/upload", methodOnly(http.MethodPost, h.Ingest))
	r.Handle("/api/v1/records/upload-update", methodOnly(http.MethodPost, h.Update))
	r.Handle("/api/v1/records/export", methodOnly(http.MethodGet, h.ExportCSV))
	r.Handle("/api/v1/records/export-excel", methodOnly(http.MethodGet, h.ExportExcel))
}

// RegisterLabelRoutes wires label PDF download and direct printing.
func (r *Router) RegisterLabelRoutes(h *LabelsHandler) {
	r.Handle("/api/v1/labels", methodOnly(http.MethodGet, h.Download))
	r.Handle("/api/v1/labels/print", methodOnly(http.MethodPost, h.Print))
}

// RegisterUserRoutes wires account management.
func (r *Router) RegisterUserRoutes(h *UsersHandler) {
	r.Handle("/api/v1/users", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Ensure(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/api/v1/users/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/users/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" || action != "role" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		methodOnly(http.MethodPut, func(w http.ResponseWriter, req *http.Request) {
			h.SetRole(w, req, id)
		})(w, req)
	})
}

// RegisterHealthRoute exposes a liveness probe.
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("up"))
	}))
}
