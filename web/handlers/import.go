package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lineagekit/lineage/internal/importer"
	"github.com/lineagekit/lineage/internal/storage"
)

// ImportHandlers contains HTTP handlers for the import API.
type ImportHandlers struct {
	importer *importer.TreeImporter
}

// NewImportHandlers creates a new ImportHandlers backed by the given tree store.
func NewImportHandlers(store storage.TreeStore) *ImportHandlers {
	return &ImportHandlers{
		importer: importer.NewTreeImporter(store),
	}
}

// --- Request / Response types ---

// importByPathRequest is the JSON body for POST /api/import when a
// server-side path is supplied.
type importByPathRequest struct {
	// Path is a YAML file or directory path accessible on the server's filesystem.
	Path string `json:"path"`
}

// importJobResponse is returned immediately after starting an import.
type importJobResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// --- Handlers ---

// PostImport handles POST /api/import.
// Accepts a JSON body with {"path": "/absolute/or/relative/path"} naming a
// YAML tree file or a directory of them.
func (h *ImportHandlers) PostImport(w http.ResponseWriter, r *http.Request) {
	// Parse JSON body.
	var req importByPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	if strings.TrimSpace(req.Path) == "" {
		respondError(w, http.StatusBadRequest, "path is required", nil)
		return
	}

	// Resolve the path relative to the working directory when not absolute.
	path := req.Path
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "cannot determine working directory", err)
			return
		}
		path = filepath.Join(wd, path)
	}

	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("path not found: %s", req.Path), nil)
		return
	}

	// Start the async import job.
	jobID, err := h.importer.StartImport(r.Context(), path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start import", err)
		return
	}

	respondJSON(w, http.StatusAccepted, importJobResponse{
		JobID:   jobID,
		Message: fmt.Sprintf("Import started for %s", req.Path),
	})
}

// GetImportStatus handles GET /api/import/status/{job_id}.
// Returns live progress while running, and the full result when complete.
func (h *ImportHandlers) GetImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "job_id is required", nil)
		return
	}

	progress, ok := h.importer.GetJobProgress(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "import job not found", nil)
		return
	}

	// If complete, return the full result alongside progress.
	if progress.Status == "complete" || progress.Status == "failed" {
		result := h.importer.GetJobResult(jobID)
		type statusResponse struct {
			Progress importer.ImportProgress `json:"progress"`
			Result   *importer.ImportResult  `json:"result,omitempty"`
		}
		respondJSON(w, http.StatusOK, statusResponse{
			Progress: progress,
			Result:   result,
		})
		return
	}

	respondJSON(w, http.StatusOK, progress)
}
