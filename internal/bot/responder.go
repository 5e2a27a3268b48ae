// Package bot implements the conversation orchestrator: scripted sales
// flows pre-empt the language model, trigger words start new flows, and
// everything else falls through to an OpenAI completion built over the
// business knowledge base.
package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/openai/openai-go"

	"github.com/pokerprotrack/chatbot/internal/botconfig"
	"github.com/pokerprotrack/chatbot/internal/flow"
	"github.com/pokerprotrack/chatbot/internal/genai"
	"github.com/pokerprotrack/chatbot/internal/intent"
	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

// ApologyReply is the fixed user-facing message returned when the
// completion model fails. Raw errors never reach the user.
const ApologyReply = "Lo siento, estoy experimentando problemas técnicos. Por favor, inténtalo de nuevo más tarde."

// historyTurns caps how many prior turns are replayed to the model.
const historyTurns = 5

// MarketProvider supplies current market context for the system prompt.
type MarketProvider interface {
	GetMarketInfo(ctx context.Context) models.MarketInfo
}

// Responder orchestrates one reply per inbound message. It holds no
// per-conversation state: the flow cursor is caller-supplied and
// caller-persisted, and all stores are re-read on every request.
type Responder struct {
	flows  *flow.Repository
	model  genai.ClientInterface
	st     store.Store
	config *botconfig.Service
	market MarketProvider
}

// NewResponder wires the orchestrator's collaborators together.
func NewResponder(flows *flow.Repository, model genai.ClientInterface, st store.Store, config *botconfig.Service, market MarketProvider) *Responder {
	return &Responder{flows: flows, model: model, st: st, config: config, market: market}
}

// GetReply produces the bot's answer to one message, in strict order:
//
//  1. An active flow cursor with a selected option advances the flow;
//     a resolved step answers scripted, without touching the model.
//  2. Otherwise a trigger-word match starts a new flow at its first step.
//  3. Otherwise the completion model answers over the assembled system
//     prompt and the user's recent history.
//  4. A model failure degrades to a fixed apology.
//
// The reply never carries an error to the caller; every turn is also
// appended to the conversation history, best-effort.
func (r *Responder) GetReply(ctx context.Context, userID, message string, cursor *models.FlowCursor) *models.ChatReply {
	reply := r.resolve(ctx, userID, message, cursor)
	r.recordTurn(userID, message, reply)
	return reply
}

func (r *Responder) resolve(ctx context.Context, userID, message string, cursor *models.FlowCursor) *models.ChatReply {
	if cursor != nil && cursor.Active && cursor.SelectedOption != "" {
		step, err := r.flows.GetNextStep(cursor.FlowID, &cursor.CurrentStepID, cursor.SelectedOption)
		if err == nil && step != nil {
			slog.Debug("Responder.GetReply: flow continued", "userID", userID, "flowID", cursor.FlowID, "stepID", step.ID)
			return scriptedReply(step, cursor.FlowID)
		}
		if err != nil {
			slog.Error("Responder.GetReply: flow continuation failed, falling through", "error", err, "userID", userID)
		}
		// A nil step means the flow ended or the cursor went stale;
		// either way the conversation continues below.
	}

	matched, err := r.flows.FindMatchingFlow(message)
	if err != nil {
		slog.Error("Responder.GetReply: trigger matching failed, falling through", "error", err, "userID", userID)
	}
	if matched != nil {
		if first := matched.FirstStep(); first != nil {
			slog.Info("Responder.GetReply: flow started", "userID", userID, "flowID", matched.ID, "name", matched.Name)
			return scriptedReply(first, matched.ID)
		}
	}

	return r.modelReply(ctx, userID, message)
}

// scriptedReply wraps a flow step as a chat reply with a cursor pointing
// at that step. Scripted answers always count as high-confidence intent.
func scriptedReply(step *models.Step, flowID int64) *models.ChatReply {
	return &models.ChatReply{
		Reply: step.Message,
		IntentAnalysis: models.IntentAnalysis{
			HasPurchaseIntent: true,
			Confidence:        models.ConfidenceHigh,
			FlowData: &models.FlowCursor{
				Active:        true,
				FlowID:        flowID,
				CurrentStepID: step.ID,
				Options:       step.Options,
			},
		},
	}
}

func (r *Responder) modelReply(ctx context.Context, userID, message string) *models.ChatReply {
	products := r.loadProducts()
	analysis := intent.DetectPurchaseIntent(message)
	analysis.Categories = intent.ExtractProductCategory(message, productCategories(products))

	prompt := buildSystemPrompt(r.config.Get(), r.loadFaqs(), r.loadConcepts(), products, r.market.GetMarketInfo(ctx), time.Now())

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(prompt)}
	for _, turn := range r.loadRecentHistory(userID) {
		messages = append(messages, openai.UserMessage(turn.UserMessage))
		messages = append(messages, openai.AssistantMessage(turn.BotReply))
	}
	messages = append(messages, openai.UserMessage(message))

	output, err := r.model.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Responder.GetReply: completion failed, returning apology", "error", err, "userID", userID)
		return &models.ChatReply{
			Reply: ApologyReply,
			IntentAnalysis: models.IntentAnalysis{
				HasPurchaseIntent: false,
				Confidence:        models.ConfidenceLow,
				Categories:        []string{},
			},
		}
	}
	if output == "" {
		output = "Sin respuesta"
	}
	return &models.ChatReply{Reply: output, IntentAnalysis: analysis}
}

// recordTurn appends the exchange to the history, best-effort: a write
// failure is logged and the reply still goes out.
func (r *Responder) recordTurn(userID, message string, reply *models.ChatReply) {
	turn := models.ConversationTurn{
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
		UserMessage: message,
		BotReply:    reply.Reply,
		FlowData:    reply.IntentAnalysis.FlowData,
	}
	if err := r.st.AddConversationTurn(turn); err != nil {
		slog.Error("Responder.recordTurn: failed to persist turn", "error", err, "userID", userID)
	}
}

// loadRecentHistory returns the user's last few turns, oldest first.
// History is context, not truth: a load failure just means the model
// answers without it.
func (r *Responder) loadRecentHistory(userID string) []models.ConversationTurn {
	history, err := r.st.GetConversationHistory(userID)
	if err != nil {
		slog.Warn("Responder.loadRecentHistory: failed to load history", "error", err, "userID", userID)
		return nil
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	return history
}

func (r *Responder) loadFaqs() []models.Faq {
	faqs, err := r.st.GetAllFaqs()
	if err != nil {
		slog.Warn("Responder.loadFaqs: failed to load faqs", "error", err)
		return nil
	}
	return faqs
}

func (r *Responder) loadConcepts() []models.Concept {
	concepts, err := r.st.GetAllConcepts()
	if err != nil {
		slog.Warn("Responder.loadConcepts: failed to load concepts", "error", err)
		return nil
	}
	return concepts
}

func (r *Responder) loadProducts() []models.Product {
	products, err := r.st.GetAllProducts()
	if err != nil {
		slog.Warn("Responder.loadProducts: failed to load products", "error", err)
		return nil
	}
	return products
}

func productCategories(products []models.Product) []string {
	seen := make(map[string]bool, len(products))
	var categories []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	return categories
}
