// Package api exposes the HTTP surface of the support-chat service: the
// chat endpoint, conversation persistence, sales-flow CRUD, business
// configuration, analytics and product recommendations.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pokerprotrack/chatbot/internal/analytics"
	"github.com/pokerprotrack/chatbot/internal/botconfig"
	"github.com/pokerprotrack/chatbot/internal/flow"
	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":4000"

// Replier produces the bot's answer to one chat message.
type Replier interface {
	GetReply(ctx context.Context, userID, message string, cursor *models.FlowCursor) *models.ChatReply
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures server creation.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server holds the service collaborators behind the HTTP handlers.
type Server struct {
	addr     string
	replier  Replier
	flows    *flow.Repository
	config   *botconfig.Service
	recorder *analytics.Recorder
	st       store.Store
}

// NewServer wires the HTTP layer to its collaborators.
func NewServer(replier Replier, flows *flow.Repository, config *botconfig.Service, recorder *analytics.Recorder, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:     cfg.Addr,
		replier:  replier,
		flows:    flows,
		config:   config,
		recorder: recorder,
		st:       st,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.chatHandler)
	mux.HandleFunc("POST /conversations", s.saveConversationHandler)
	mux.HandleFunc("GET /conversations", s.conversationHistoryHandler)

	mux.HandleFunc("GET /flows", s.listFlowsHandler)
	mux.HandleFunc("POST /flows", s.createFlowHandler)
	mux.HandleFunc("GET /flows/{id}", s.getFlowHandler)
	mux.HandleFunc("PUT /flows/{id}", s.updateFlowHandler)
	mux.HandleFunc("DELETE /flows/{id}", s.deleteFlowHandler)

	mux.HandleFunc("GET /personalities", s.getPersonalitiesHandler)
	mux.HandleFunc("POST /personalities/active", s.setActivePersonalityHandler)
	mux.HandleFunc("GET /business", s.getBusinessHandler)
	mux.HandleFunc("POST /business", s.updateBusinessHandler)
	mux.HandleFunc("GET /humanization", s.getHumanizationHandler)
	mux.HandleFunc("POST /humanization", s.updateHumanizationHandler)

	mux.HandleFunc("GET /analytics", s.analyticsHandler)
	mux.HandleFunc("GET /recommendations", s.recommendationsHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	return requestIDMiddleware(mux)
}

// Run starts the HTTP server and blocks until ctx is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestIDMiddleware tags every request with a generated id for log
// correlation and echoes it back in the X-Request-ID header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		slog.Debug("Server: request received", "requestID", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
