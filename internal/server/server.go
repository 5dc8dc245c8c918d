// Package server exposes the chat agent over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/comigor/resume-chat/internal/agent"
	"github.com/comigor/resume-chat/internal/config"
	"github.com/comigor/resume-chat/internal/history"
	"github.com/comigor/resume-chat/internal/llm"
	"github.com/comigor/resume-chat/internal/logger"
)

const (
	maxBodyBytes    = 64 << 10
	maxHistoryLimit = 500
)

// Chatter is the agent surface the handlers need.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
	History(ctx context.Context, limit int) []history.Turn
	Clear(ctx context.Context) (int64, error)
	Health(ctx context.Context) agent.Health
}

var chatRequestSchema = mustSchema(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"}
	}
}`)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type turnView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type handler struct {
	chat    Chatter
	service string
}

// New builds the HTTP handler: API routes, the optional MCP endpoint, CORS
// for cfg.AllowedOrigins and request logging.
func New(chat Chatter, cfg config.ServerConfig, mcpHandler http.Handler) http.Handler {
	h := &handler{chat: chat, service: cfg.ServiceName}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("DELETE /api/clear", h.handleClear)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
	})

	return requestLogger(c.Handler(mux))
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	result, err := chatRequestSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		writeError(w, http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}

	// a chat runs to completion even if the client goes away
	response, err := h.chat.Chat(context.WithoutCancel(r.Context()), req.Message)
	if err != nil {
		status, detail := errorStatus(err)
		logger.L.Error("chat failed", "status", status, "error", err)
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	turns := h.chat.History(r.Context(), parseLimit(r.URL.Query().Get("limit")))

	out := make([]turnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnView{Role: string(t.Role), Content: t.Content})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, err := h.chat.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Chat history cleared",
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.chat.Health(r.Context())

	database := "connected"
	if !health.DatabaseConnected {
		database = "unavailable"
	}
	apiKey := "configured"
	if !health.APIKeyConfigured {
		apiKey = "missing"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  h.service,
		"database": database,
		"api_key":  apiKey,
	})
}

// parseLimit falls back to the default for missing or non-positive values.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return agent.DefaultHistoryLimit
	}
	return min(n, maxHistoryLimit)
}

// errorStatus maps a chat failure to the status and detail shown to the caller.
func errorStatus(err error) (int, string) {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, agent.ErrNotConfigured):
		return http.StatusInternalServerError, "OpenRouter API key not configured"
	case errors.Is(err, agent.ErrEmptyMessage):
		return http.StatusBadRequest, "Message must not be empty"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, fmt.Sprintf("AI service error: %d", statusErr.StatusCode)
	case errors.Is(err, llm.ErrTimeout):
		return http.StatusGatewayTimeout, "AI service timeout. Please try again."
	case errors.Is(err, llm.ErrTransport):
		return http.StatusServiceUnavailable, "AI service unavailable. Please check your internet connection."
	case errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusInternalServerError, "Invalid AI response format"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
