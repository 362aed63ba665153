package discovery

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prodisco/pkg/db"
)

// maxUploadBytes bounds a single submission's multipart payload.
const maxUploadBytes = 128 << 20

// handleCreateDiscovery accepts a multipart submission carrying the
// discovery configuration and the event log, plus optional notification
// parameters, and responds 202 with the accepted discovery.
func (a *API) handleCreateDiscovery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, fmt.Errorf("%w: parsing multipart form: %v", ErrInvalid, err))
		return
	}

	configuration, _, err := readFormFile(r, "configuration")
	if err != nil {
		respondError(w, err)
		return
	}
	eventLog, eventLogType, err := readFormFile(r, "event_log")
	if err != nil {
		respondError(w, err)
		return
	}

	sub := Submission{
		Configuration:       configuration,
		EventLog:            eventLog,
		EventLogContentType: eventLogType,
		CallbackURL:         formOrQuery(r, "callback_url"),
		Email:               formOrQuery(r, "email"),
	}

	d, err := a.orch.Submit(r.Context(), sub)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, d)
}

// readFormFile loads one named multipart file into memory and reports its
// declared content type.
func readFormFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%w: form file %q is required", ErrInvalid, field)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading form file %q: %w", field, err)
	}

	return content, header.Header.Get("Content-Type"), nil
}

// formOrQuery resolves a parameter that clients may send either as a form
// field or a query parameter.
func formOrQuery(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

func (a *API) handleListDiscoveries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	discoveries, err := a.repo.GetAll(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, discoveries)
}

func (a *API) handleDeleteDiscoveries(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.orch.RemoveAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted_amount": deleted})
}

func (a *API) handleGetDiscovery(w http.ResponseWriter, r *http.Request) {
	id, err := discoveryID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	d, err := a.repo.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, d)
}

// patchRequest is a worker's lifecycle report delivered over HTTP. Only the
// status is required; the remaining fields qualify a completion.
type patchRequest struct {
	Status     string `json:"status"`
	ReturnCode *int   `json:"return_code,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// handlePatchDiscovery ingests a status report. It mirrors the broker
// consumer so workers without broker access can report over HTTP; the same
// idempotence applies, so replays respond 200 with the current record.
func (a *API) handlePatchDiscovery(w http.ResponseWriter, r *http.Request) {
	id, err := discoveryID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	status, err := ParseStatus(req.Status)
	if err != nil {
		respondError(w, err)
		return
	}

	switch status {
	case StatusRunning:
		err = a.orch.ReportStarted(r.Context(), id)
	case StatusSucceeded:
		err = a.orch.ReportCompletion(r.Context(), id, returnCodeOr(req.ReturnCode, 0), req.Stdout, req.Stderr)
	case StatusFailed:
		err = a.orch.ReportCompletion(r.Context(), id, returnCodeOr(req.ReturnCode, 1), req.Stdout, req.Stderr)
	default:
		err = fmt.Errorf("%w: status %q cannot be reported", ErrInvalid, req.Status)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	d, err := a.repo.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, d)
}

func returnCodeOr(rc *int, fallback int) int {
	if rc != nil {
		return *rc
	}
	return fallback
}

func (a *API) handleDeleteDiscovery(w http.ResponseWriter, r *http.Request) {
	id, err := discoveryID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	d, err := a.orch.Remove(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     d.ID.String(),
		"status": string(d.Status),
	})
}

// handleGetConfiguration serves the discovery's rewritten configuration
// file from the shared file pool.
func (a *API) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := discoveryID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	d, err := a.repo.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if d.ConfigurationPath == "" {
		respondError(w, fmt.Errorf("configuration for discovery %s: %w", id, ErrNotFound))
		return
	}

	w.Header().Set("Content-Type", mediaTypeForFile(d.ConfigurationPath))
	http.ServeFile(w, r, d.ConfigurationPath)
}

// handleGetDiscoveryFile serves one file out of the discovery's output
// directory, typically the result archive.
func (a *API) handleGetDiscoveryFile(w http.ResponseWriter, r *http.Request) {
	id, err := discoveryID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	d, err := a.repo.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if d.OutputDir == "" {
		respondError(w, fmt.Errorf("files for discovery %s: %w", id, ErrNotFound))
		return
	}

	// filepath.Base strips any traversal from the requested name.
	name := filepath.Base(chi.URLParam(r, "fileName"))
	path := filepath.Join(d.OutputDir, name)

	w.Header().Set("Content-Type", mediaTypeForFile(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// statusCount is one row of the stats aggregation.
type statusCount struct {
	Status Status `db:"status" json:"status"`
	Count  int64  `db:"count" json:"count"`
}

// handleDiscoveryStats reports per-status record counts straight from the
// database, bypassing the ORM.
func (a *API) handleDiscoveryStats(w http.ResponseWriter, r *http.Request) {
	if a.pool == nil {
		respondError(w, fmt.Errorf("stats require a database-backed deployment: %w", ErrNotSupported))
		return
	}

	var counts []statusCount
	err := db.Select(r.Context(), a.pool, &counts,
		`SELECT status, COUNT(*) AS count FROM discoveries GROUP BY status ORDER BY status`)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

func discoveryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "discoveryID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed discovery id", ErrInvalid)
	}
	return id, nil
}
