// Package server exposes the chat service over HTTP: one JSON POST
// endpoint per operation, plus a WebSocket channel for presence pings.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"chatd/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type Config struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
}

type Server struct {
	svc *service.Service
	cfg *Config
}

func New(svc *service.Service, cfg *Config) *Server {
	return &Server{svc: svc, cfg: cfg}
}

// Router builds the operation surface. Every endpoint is a POST taking a
// JSON body and returning a JSON record with a status field; HTTP status is
// 200 for anything that reached the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/register", s.handleRegister)
	r.Post("/isRegistered", s.handleIsRegistered)
	r.Post("/setUserPassword", s.handleSetUserPassword)
	r.Post("/confirmAsOnline", s.handleConfirmAsOnline)
	r.Post("/getOnlineUsers", s.handleGetOnlineUsers)
	r.Post("/setStatus", s.handleSetStatus)
	r.Post("/getStatus", s.handleGetStatus)
	r.Post("/sendMessage", s.handleSendMessage)
	r.Post("/sendChatRoomMessage", s.handleSendChatRoomMessage)
	r.Post("/createChatRoom", s.handleCreateChatRoom)
	r.Post("/addChatRoomParticipant", s.handleAddChatRoomParticipant)
	r.Post("/editChatRoom", s.handleEditChatRoom)
	r.Post("/removeChatRoom", s.handleRemoveChatRoom)
	r.Post("/getMessages", s.handleGetMessages)
	r.Post("/getNewMessages", s.handleGetNewMessages)
	r.Post("/getUnclearedMessages", s.handleGetUnclearedMessages)
	r.Get("/ws", s.handleWebSocket)

	return r
}

type contextKey string

const requestIDKey contextKey = "request_id"

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "-"
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(
			contextWithRequestID(r.Context(), id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s (%s)", requestIDFrom(r.Context()), r.Method, r.URL.Path, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

// decode rejects malformed bodies before any operation runs.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"status":2,"error":"malformed request body"}`, http.StatusBadRequest)
		return false
	}
	return true
}
