package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pokerprotrack/chatbot/internal/models"
)

// missingFieldsReply is the fixed 400 payload of the chat endpoint. Its
// shape mirrors a normal chat reply so clients render it like any other
// bot message.
var missingFieldsReply = models.ChatReply{
	Reply: "Se requiere userId y message para procesar la solicitud.",
	IntentAnalysis: models.IntentAnalysis{
		HasPurchaseIntent: false,
		Confidence:        models.ConfidenceLow,
	},
}

// chatHandler handles POST /chat.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, missingFieldsReply)
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err, "userID", req.UserID)
		if err == models.ErrMessageTooLong {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusBadRequest, missingFieldsReply)
		return
	}

	reply := s.replier.GetReply(r.Context(), req.UserID, req.Message, req.FlowData)
	slog.Debug("Server.chatHandler: reply produced", "userID", req.UserID, "scripted", reply.IntentAnalysis.FlowData != nil)
	writeJSONResponse(w, http.StatusOK, reply)
}

// saveConversationRequest is the inbound payload of POST /conversations.
type saveConversationRequest struct {
	UserID   string           `json:"userId"`
	Messages []models.Message `json:"messages"`
}

// saveConversationHandler handles POST /conversations: it persists a full
// transcript and folds it into the sales analytics.
func (s *Server) saveConversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req saveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.saveConversationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" || req.Messages == nil {
		slog.Warn("Server.saveConversationHandler: missing fields", "userID", req.UserID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("userId and a messages array are required"))
		return
	}

	userCount := 0
	for _, m := range req.Messages {
		if m.Sender == models.SenderUser {
			userCount++
		}
	}
	conv := models.SavedConversation{
		ID:        time.Now().UnixMilli(),
		UserID:    req.UserID,
		Timestamp: time.Now().UTC(),
		Messages:  req.Messages,
		Metadata: models.ConversationMetadata{
			MessageCount:     len(req.Messages),
			UserMessageCount: userCount,
			BotMessageCount:  len(req.Messages) - userCount,
		},
	}
	if err := s.st.SaveConversation(conv); err != nil {
		slog.Error("Server.saveConversationHandler: save failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save conversation"))
		return
	}

	// The saved transcript also feeds the funnel analytics; a failure
	// there must not undo the save.
	products, err := s.st.GetAllProducts()
	if err != nil {
		slog.Warn("Server.saveConversationHandler: failed to load products for analysis", "error", err)
	}
	if _, err := s.recorder.AnalyzeConversation(req.Messages, products); err != nil {
		slog.Warn("Server.saveConversationHandler: analytics update failed", "error", err, "userID", req.UserID)
	}

	slog.Info("Server.saveConversationHandler: conversation saved", "userID", req.UserID, "conversationID", conv.ID, "messages", len(req.Messages))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation saved", map[string]int64{"conversationId": conv.ID}))
}

// conversationHistoryHandler handles GET /conversations?userId=.
func (s *Server) conversationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: userId"))
		return
	}

	history, err := s.st.GetConversationHistory(userID)
	if err != nil {
		slog.Error("Server.conversationHistoryHandler: load failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation history"))
		return
	}
	if history == nil {
		history = []models.ConversationTurn{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
