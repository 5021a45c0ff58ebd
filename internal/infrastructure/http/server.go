// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
	"github.com/yogateria/supportbot/internal/domain/usecases"
)

// Pinger reports reachability of the retrieval backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the support chat API.
type Server struct {
	pipeline  *usecases.ChatPipeline
	chatLog   ports.ChatLogStore // nil when persistence is unavailable
	orders    ports.OrderSource  // nil when no order export is loaded
	retrieval Pinger             // nil for in-process retrieval
	addr      string
	log       *zap.SugaredLogger
}

// NewServer creates a new HTTP server.
func NewServer(pipeline *usecases.ChatPipeline, chatLog ports.ChatLogStore, orders ports.OrderSource, retrieval Pinger, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		pipeline:  pipeline,
		chatLog:   chatLog,
		orders:    orders,
		retrieval: retrieval,
		addr:      addr,
		log:       log.Sugar(),
	}
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/stream", s.handleChatStream) // SSE streaming
	mux.HandleFunc("/feedback", s.handleFeedback)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/user/", s.handleUser)
	return mux
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(s.loggingMiddleware(s.routes())),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // Longer for streaming
	}

	s.log.Infow("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type chatRequest struct {
	Message string                 `json:"message"`
	UserID  string                 `json:"user_id"`
	History []entities.ChatMessage `json:"history"`
}

type chatResponse struct {
	Response   string                 `json:"response"`
	Products   []entities.ProductCard `json:"products"`
	FollowUps  []string               `json:"follow_ups"`
	MessageID  int64                  `json:"message_id"`
	UserID     string                 `json:"user_id,omitempty"`
	SourceUsed []string               `json:"sources_used,omitempty"`
}

// handleChat processes one non-streaming chat turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.pipeline.Turn(r.Context(), &entities.ChatRequest{
		Message: req.Message,
		UserRef: req.UserID,
		History: req.History,
	})
	if err != nil {
		s.log.Errorw("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat processing failed")
		return
	}

	sources := make([]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, src.Passage.Title)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:   result.Answer,
		Products:   result.Products,
		FollowUps:  result.FollowUps,
		MessageID:  result.MessageID,
		UserID:     result.UserRef,
		SourceUsed: sources,
	})
}

// handleChatStream handles SSE streaming chat turns.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("q")
	if message == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	userID := r.URL.Query().Get("user_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	tokenCh, err := s.pipeline.TurnStream(r.Context(), &entities.ChatRequest{
		Message: message,
		UserRef: userID,
	})
	if err != nil {
		sendSSE(w, flusher, map[string]interface{}{"error": err.Error(), "done": true})
		return
	}

	for token := range tokenCh {
		if token.Error != nil {
			sendSSE(w, flusher, map[string]interface{}{"error": token.Error.Error(), "done": true})
			return
		}
		sendSSE(w, flusher, map[string]interface{}{"content": token.Content, "done": token.Done})
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data map[string]interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

type feedbackRequest struct {
	MessageID int64  `json:"message_id"`
	Feedback  string `json:"feedback"`
}

// handleFeedback labels a stored exchange.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.chatLog == nil {
		writeError(w, http.StatusServiceUnavailable, "chat history is unavailable")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// Clients vote up/down; the store keeps the good/bad vocabulary.
	var vote string
	switch req.Feedback {
	case "up", "good":
		vote = "good"
	case "down", "bad":
		vote = "bad"
	default:
		writeError(w, http.StatusBadRequest, `feedback must be "up" or "down"`)
		return
	}

	if err := s.chatLog.RecordFeedback(r.Context(), req.MessageID, vote); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// handleHistory serves and clears the chat transcript.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.chatLog == nil {
		writeError(w, http.StatusServiceUnavailable, "chat history is unavailable")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		records, err := s.chatLog.History(r.Context(), limit)
		if err != nil {
			s.log.Errorw("loading history failed", "error", err)
			writeError(w, http.StatusInternalServerError, "loading history failed")
			return
		}
		if records == nil {
			records = []entities.ChatRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"total": len(records), "history": records})
	case http.MethodDelete:
		n, err := s.chatLog.Clear(r.Context())
		if err != nil {
			s.log.Errorw("clearing history failed", "error", err)
			writeError(w, http.StatusInternalServerError, "clearing history failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": n})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHealth reports service health: always ok when the process is
// up, with retrieval readiness, chat-history availability and row count
// attached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	engine := s.pipeline != nil
	health := map[string]interface{}{
		"status": "ok",
	}
	if s.retrieval != nil {
		if err := s.retrieval.Ping(r.Context()); err != nil {
			engine = false
			health["retrieval"] = "unreachable"
		} else {
			health["retrieval"] = "ready"
		}
	}
	health["engine"] = engine
	if s.chatLog != nil {
		if n, err := s.chatLog.Count(r.Context()); err == nil {
			health["database"] = "connected"
			health["messages"] = n
		} else {
			health["database"] = "error"
		}
	} else {
		health["database"] = "unavailable"
	}
	writeJSON(w, http.StatusOK, health)
}

// handleUser resolves a customer profile by id or email.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.orders == nil {
		writeError(w, http.StatusServiceUnavailable, "order data is unavailable")
		return
	}

	ref := strings.TrimPrefix(r.URL.Path, "/user/")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "user reference is required")
		return
	}

	customer, err := s.orders.FindCustomer(r.Context(), ref)
	if err != nil {
		s.log.Errorw("customer lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "customer lookup failed")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    customer.ID,
		"email": customer.Email,
		"name":  customer.DisplayName(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
		s.log.Infow("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
