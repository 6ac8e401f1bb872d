package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/manualbridge/manualbridge/internal/answer"
	"github.com/manualbridge/manualbridge/internal/observability"
)

const streamChunkSize = 200

// QAHandler handles question answering requests.
type QAHandler struct {
	logger  *observability.Logger
	service *answer.Service
}

// NewQAHandler creates a new Q&A handler.
func NewQAHandler(logger *observability.Logger, service *answer.Service) *QAHandler {
	return &QAHandler{logger: logger, service: service}
}

// AskRequestDTO represents the API request for a question.
type AskRequestDTO struct {
	Question string `json:"question"`
}

// Ask handles POST /api/v1/ask.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO AskRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	ans := h.service.Answer(ctx, reqDTO.Question)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ans); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// streamEvent is one SSE data payload.
type streamEvent struct {
	Chunk string `json:"chunk"`
}

// AskStream handles POST /api/v1/ask/stream. The full answer is computed
// first, then replayed to the client in fixed-size SSE chunks terminated by a
// [DONE] event.
func (h *QAHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO AskRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ans := h.service.Answer(ctx, reqDTO.Question)

	text := ans.Markdown
	if !ans.Success {
		text = ans.ErrorMessage
	}

	for _, chunk := range answer.Chunks(text, streamChunkSize) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := json.Marshal(streamEvent{Chunk: chunk})
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}
