// Package httptransport is the thin HTTP layer over the scan engine and the
// report store. Handlers decode, delegate and encode; scan semantics live in
// internal/scan.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"exposurescan/internal/report"
	"exposurescan/internal/scan"
	"exposurescan/internal/source"
)

// ScanService runs one scan end to end.
type ScanService interface {
	Scan(ctx context.Context, subject source.Subject, cfg scan.Config) (*report.ExposureReport, error)
}

// Handler wires scan endpoints to the engine and the report history store.
type Handler struct {
	scans  ScanService
	store  report.Store
	logger *slog.Logger
}

// NewHandler constructs a scan handler with its dependencies.
func NewHandler(scans ScanService, store report.Store, logger *slog.Logger) *Handler {
	return &Handler{scans: scans, store: store, logger: logger}
}

// Register mounts scan endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/scans", h.HandleCreateScan)
	r.Get("/v1/scans/{id}", h.HandleGetScan)
	r.Get("/v1/subjects/{fingerprint}/scans", h.HandleListSubjectScans)
}

// ScanRequest is the POST /v1/scans payload.
type ScanRequest struct {
	Identifiers []string `json:"identifiers"`
	Categories  []string `json:"categories,omitempty"`
}

// HandleCreateScan handles POST /v1/scans requests.
func (h *Handler) HandleCreateScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	subject := source.Subject{Identifiers: req.Identifiers}
	rep, err := h.scans.Scan(ctx, subject, scan.Config{Categories: req.Categories})
	if err != nil {
		var cfgErr *scan.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, "invalid_request", cfgErr.Error())
			return
		}
		h.logger.ErrorContext(ctx, "scan failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		writeError(w, http.StatusInternalServerError, "internal", "scan failed")
		return
	}

	if err := h.store.Save(ctx, rep); err != nil {
		// The report was produced; history persistence is best effort.
		h.logger.WarnContext(ctx, "report save failed",
			"report_id", rep.ID,
			"error", err,
		)
	}

	h.logger.InfoContext(ctx, "scan completed",
		"report_id", rep.ID,
		"subject_fingerprint", rep.SubjectFingerprint,
		"dvs", rep.DVS,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, rep)
}

// HandleGetScan handles GET /v1/scans/{id} requests.
func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := h.store.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no report with that id")
			return
		}
		h.logger.ErrorContext(r.Context(), "report lookup failed", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "report lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleListSubjectScans handles GET /v1/subjects/{fingerprint}/scans.
func (h *Handler) HandleListSubjectScans(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")

	reports, err := h.store.ListBySubject(r.Context(), fingerprint)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "report listing failed", "subject_fingerprint", fingerprint, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "report listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
