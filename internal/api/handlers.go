package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bobarin/tutor/internal/models"
	"github.com/bobarin/tutor/internal/pipeline"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxChatBodyBytes caps the /api/chat JSON body.
const maxChatBodyBytes = 1 << 20

// InteractionStore persists per-request audit records. *db.DB implements it.
type InteractionStore interface {
	CreateInteraction(ctx context.Context, in *models.Interaction) error
	ListInteractions(ctx context.Context, limit int) ([]models.Interaction, error)
}

type Handler struct {
	pipeline       *pipeline.Orchestrator
	interactions   InteractionStore // Optional: nil disables the interaction log
	maxUploadBytes int64
}

func NewHandler(p *pipeline.Orchestrator, interactions InteractionStore, maxUploadBytes int64) *Handler {
	return &Handler{
		pipeline:       p,
		interactions:   interactions,
		maxUploadBytes: maxUploadBytes,
	}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Message too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.pipeline.HandleChat(r.Context(), req.Message)
	if err != nil {
		h.record(r, &models.Interaction{
			Kind:       models.InteractionKindChat,
			InputChars: len(req.Message),
		}, start, err)

		if errors.Is(err, pipeline.ErrEmptyMessage) {
			respondError(w, http.StatusBadRequest, "Message is required")
			return
		}
		log.Printf("Error in /api/chat: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.record(r, &models.Interaction{
		Kind:           models.InteractionKindChat,
		InputChars:     len(req.Message),
		OutputChars:    len(result.Response),
		VideoGenerated: result.Video != nil,
	}, start, nil)

	respondJSON(w, http.StatusOK, result)
}

// SpeechToText handles POST /api/speech-to-text (multipart field "audio")
func (h *Handler) SpeechToText(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("audio")
	if r.MultipartForm != nil {
		// Large parts spill to disk; remove them as soon as we're done
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Error in /api/speech-to-text: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := h.pipeline.HandleTranscription(r.Context(), audio, header.Filename)
	if err != nil {
		h.record(r, &models.Interaction{
			Kind:       models.InteractionKindTranscription,
			InputChars: len(audio),
		}, start, err)

		if errors.Is(err, pipeline.ErrMissingAudio) {
			respondError(w, http.StatusBadRequest, "No audio file provided")
			return
		}
		log.Printf("Error in /api/speech-to-text: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.record(r, &models.Interaction{
		Kind:        models.InteractionKindTranscription,
		InputChars:  len(audio),
		OutputChars: len(result.Text),
	}, start, nil)

	respondJSON(w, http.StatusOK, result)
}

// ListInteractions handles GET /api/debug/interactions
// Query params:
//   - limit: max results (default 50, max 500)
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	if h.interactions == nil {
		respondError(w, http.StatusNotFound, "Interaction log disabled")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	interactions, err := h.interactions.ListInteractions(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list interactions")
		return
	}
	if interactions == nil {
		interactions = []models.Interaction{}
	}

	respondJSON(w, http.StatusOK, interactions)
}

// record writes the audit row. It never affects the response: the write runs
// detached from client cancellation and failures are only logged.
func (h *Handler) record(r *http.Request, in *models.Interaction, start time.Time, err error) {
	if h.interactions == nil {
		return
	}

	in.ID = uuid.New()
	in.DurationMs = time.Since(start).Milliseconds()
	in.Status = models.InteractionStatusSucceeded
	if err != nil {
		in.Status = models.InteractionStatusFailed
		msg := err.Error()
		in.ErrorMessage = &msg
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		in.RequestID = &reqID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()

	if dbErr := h.interactions.CreateInteraction(ctx, in); dbErr != nil {
		log.Printf("[DB] Warning: failed to record %s interaction: %v", in.Kind, dbErr)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
