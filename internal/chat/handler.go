package chat

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Options tunes a Handler.
type Options struct {
	MaxRequestBodySize int64
	AllowedOrigins     []string
	WebSocketEnabled   bool
}

// Handler serves the chat proxy over HTTP and WebSocket.
type Handler struct {
	svc            *Service
	maxBodySize    int64
	originPatterns []string
	wsEnabled      bool
}

// NewHandler creates a chat handler for svc.
func NewHandler(svc *Service, opts Options) *Handler {
	maxBodySize := opts.MaxRequestBodySize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		svc:            svc,
		maxBodySize:    maxBodySize,
		originPatterns: originPatterns(opts.AllowedOrigins),
		wsEnabled:      opts.WebSocketEnabled,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	if h.wsEnabled {
		r.Get("/api/chat/ws", h.HandleWebSocket)
	}
}

// HandleChat handles POST /api/chat requests.
//
// The reply is streamed as chunked text. Failures before the first fragment
// become a 500; a failure after that aborts the response.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	streamID := newStreamID()
	log := slog.With("stream_id", streamID, "request_id", chiMiddleware.GetReqID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn("Chat request body too large", "limit", maxErr.Limit)
		} else {
			log.Warn("Failed to read chat request body", "error", err)
		}
		writeText(w, http.StatusBadRequest, ErrInvalidMessages.Error())
		return
	}

	turns, err := DecodeTurns(body)
	if errors.Is(err, ErrInvalidMessages) {
		log.Warn("Rejected chat request", "error", err)
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, log, err)
		return
	}

	stream, err := h.svc.Reply(r.Context(), turns)
	if errors.Is(err, ErrInvalidMessages) {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, log, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		internalError(w, log, errors.New("streaming not supported"))
		return
	}

	log.Info("Chat request", "turns", len(turns))

	fragments := 0
	replyLen := 0
	for text, err := range stream {
		if err != nil {
			if fragments == 0 {
				internalError(w, log, err)
				return
			}
			log.Error("Chat stream aborted", "error", err, "fragments", fragments)
			panic(http.ErrAbortHandler)
		}
		if text == "" {
			continue
		}
		if fragments == 0 {
			setStreamHeaders(w)
			w.WriteHeader(http.StatusOK)
		}
		fragments++
		replyLen += len(text)
		if _, err := io.WriteString(w, text); err != nil {
			log.Warn("Client went away during chat stream", "error", err, "fragments", fragments)
			return
		}
		flusher.Flush()
	}

	if fragments == 0 {
		setStreamHeaders(w)
		w.WriteHeader(http.StatusOK)
	}
	log.Info("Chat stream complete", "fragments", fragments, "reply_length", replyLen)
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// internalError logs err and writes it as a 500 with a plain-text body.
func internalError(w http.ResponseWriter, log *slog.Logger, err error) {
	log.Error("Error in chat route", "error", err)
	writeText(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
}

// writeText writes msg verbatim as a plain-text response.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, msg); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

// originPatterns converts configured origins into websocket host patterns.
func originPatterns(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		patterns = append(patterns, strings.TrimSuffix(o, "/"))
	}
	return patterns
}
