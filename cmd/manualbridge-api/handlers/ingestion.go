// Package handlers provides HTTP handlers for the ManualBridge API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/manualbridge/manualbridge/internal/ingest"
	"github.com/manualbridge/manualbridge/internal/observability"
)

// IngestionHandler handles document ingestion requests.
type IngestionHandler struct {
	logger   *observability.Logger
	pipeline *ingest.Pipeline
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(logger *observability.Logger, pipeline *ingest.Pipeline) *IngestionHandler {
	return &IngestionHandler{logger: logger, pipeline: pipeline}
}

// IngestRequestDTO represents the API request for ingestion.
type IngestRequestDTO struct {
	DocumentName string `json:"document_name"`
}

// IngestResponseDTO represents the API response.
type IngestResponseDTO struct {
	Document        string `json:"document"`
	FileName        string `json:"file_name,omitempty"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	TotalPages      int    `json:"total_pages,omitempty"`
	StepsBuilt      int    `json:"steps_built,omitempty"`
	AssetsPublished int    `json:"assets_published,omitempty"`
	DurationMs      int64  `json:"duration_ms"`
}

// Ingest handles POST /api/v1/ingest.
func (h *IngestionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO IngestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.DocumentName == "" {
		writeError(w, http.StatusBadRequest, "document_name is required", "")
		return
	}

	result := h.pipeline.Ingest(ctx, reqDTO.DocumentName)

	status := http.StatusOK
	if result.Status == ingest.StatusFailed {
		status = http.StatusUnprocessableEntity
		h.logger.Error().Err(result.Err).Str("document", reqDTO.DocumentName).Msg("Ingestion failed")
	}

	respDTO := IngestResponseDTO{
		Document:        result.Document,
		FileName:        result.FileName,
		Status:          string(result.Status),
		Message:         result.Message,
		TotalPages:      result.TotalPages,
		StepsBuilt:      result.StepsBuilt,
		AssetsPublished: result.AssetsPublished,
		DurationMs:      result.Duration.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// Documents handles GET /api/v1/documents.
func (h *IngestionHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.pipeline.Documents(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Listing documents failed")
		writeError(w, http.StatusInternalServerError, "listing documents failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
