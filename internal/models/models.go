// Package models defines the core data structures for the PokerProTrack
// support-chat backend.
//
// It includes the sales-flow decision-tree types, intent analysis results,
// conversation records and knowledge-base entries shared across modules.
package models

import (
	"errors"
	"time"
)

// Sender identifies who authored a conversation message.
type Sender string

const (
	// SenderUser marks a message written by the end user.
	SenderUser Sender = "user"
	// SenderBot marks a message written by the bot.
	SenderBot Sender = "bot"
)

// Message is a single chat message inside a conversation transcript.
// Insertion order is chronological and meaningful.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Confidence is the coarse strength estimate of detected purchase intent.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// FunnelStage describes how far a conversation has progressed toward a sale.
type FunnelStage string

const (
	StageAwareness     FunnelStage = "awareness"
	StageInterest      FunnelStage = "interest"
	StageConsideration FunnelStage = "consideration"
	StageIntent        FunnelStage = "intent"
	StageEvaluation    FunnelStage = "evaluation"
	// StagePurchase exists because the analytics schema counts it, but the
	// stage estimator never returns it. Kept to match the analytics buckets.
	StagePurchase FunnelStage = "purchase"
)

// IntentAnalysis is the per-message classification produced by the intent
// detector. It is never mutated after creation.
type IntentAnalysis struct {
	HasPurchaseIntent bool        `json:"hasPurchaseIntent"`
	Confidence        Confidence  `json:"confidence"`
	DetectedKeywords  []string    `json:"detectedKeywords,omitempty"`
	Categories        []string    `json:"categories,omitempty"`
	FlowData          *FlowCursor `json:"flowData,omitempty"`
}

// Option is a user-selectable choice on a sales-flow step. A nil NextStepID
// means selecting the option ends the flow.
type Option struct {
	Text       string `json:"text"`
	NextStepID *int64 `json:"nextStepId"`
}

// Step is one node of a sales flow. A step with no options is terminal.
type Step struct {
	ID      int64    `json:"id"`
	Message string   `json:"message"`
	Options []Option `json:"options,omitempty"`
}

// SalesFlow is an admin-authored decision tree of scripted bot messages.
// Flows are read, never mutated, while a conversation walks them.
type SalesFlow struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	TriggerWords []string  `json:"triggerWords"`
	Steps        []Step    `json:"steps"`
	ProductIDs   []int64   `json:"productIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// FirstStep returns the entry step of the flow, or nil for an empty flow.
func (f *SalesFlow) FirstStep() *Step {
	if len(f.Steps) == 0 {
		return nil
	}
	return &f.Steps[0]
}

// FindStep returns the step with the given id within this flow, or nil.
func (f *SalesFlow) FindStep(id int64) *Step {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return &f.Steps[i]
		}
	}
	return nil
}

// FlowCursor is the transient pointer to "where in a flow" a conversation
// currently is. It is caller-supplied and caller-persisted; the server
// holds no session state.
type FlowCursor struct {
	Active         bool     `json:"active"`
	FlowID         int64    `json:"flowId"`
	CurrentStepID  int64    `json:"currentStepId"`
	SelectedOption string   `json:"selectedOption,omitempty"`
	Options        []Option `json:"options,omitempty"`
}

// ConversationTurn is one persisted request/reply exchange. The full history
// for a user is the ordered subsequence of turns with a matching UserID.
type ConversationTurn struct {
	UserID      string      `json:"userId"`
	Timestamp   time.Time   `json:"timestamp"`
	UserMessage string      `json:"userMessage"`
	BotReply    string      `json:"botReply"`
	FlowData    *FlowCursor `json:"flowData,omitempty"`
}

// ConversationMetadata summarizes a saved transcript.
type ConversationMetadata struct {
	MessageCount     int `json:"messageCount"`
	UserMessageCount int `json:"userMessageCount"`
	BotMessageCount  int `json:"botMessageCount"`
}

// SavedConversation is a full transcript persisted by the admin surface.
type SavedConversation struct {
	ID        int64                `json:"id"`
	UserID    string               `json:"userId"`
	Timestamp time.Time            `json:"timestamp"`
	Messages  []Message            `json:"messages"`
	Metadata  ConversationMetadata `json:"metadata"`
}

// Faq is a frequently-asked question fed into the system prompt.
type Faq struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// Concept is a poker glossary entry fed into the system prompt.
type Concept struct {
	ID         int64  `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Category   string `json:"category"`
}

// Product is a catalog entry offered by the business.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Tournament is one entry of the market-info tournament list.
type Tournament struct {
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	Prize     string `json:"prize"`
	StartDate string `json:"startDate,omitempty"`
}

// RakebackDeal describes one platform's rakeback offering.
type RakebackDeal struct {
	Platform   string `json:"platform"`
	Percentage string `json:"percentage"`
	Conditions string `json:"conditions"`
}

// MarketInfo is the current poker market context blended into prompts.
type MarketInfo struct {
	Tournaments             []Tournament      `json:"tournaments"`
	TrendingGames           []string          `json:"trending_games"`
	PopularStrategies       []string          `json:"popular_strategies"`
	RakebackDeals           []RakebackDeal    `json:"rakeback_deals,omitempty"`
	BankrollRecommendations map[string]string `json:"bankroll_recommendations,omitempty"`
}

// SalesAnalytics holds the aggregated sales-funnel counters.
type SalesAnalytics struct {
	TotalConversations                 int                 `json:"totalConversations"`
	ConversationsWithSalesIntent       int                 `json:"conversationsWithSalesIntent"`
	ConversionRate                     float64             `json:"conversionRate"`
	AverageMessagesUntilPurchaseIntent float64             `json:"averageMessagesUntilPurchaseIntent"`
	CommonKeywordsBeforePurchase       map[string]int      `json:"commonKeywordsBeforePurchase"`
	SalesStageTransitions              map[FunnelStage]int `json:"salesStageTransitions"`
	ProductsMentioned                  map[int64]int       `json:"productsMentioned"`
}

// NewSalesAnalytics returns an analytics record with every bucket
// initialized, including the purchase stage the estimator never emits.
func NewSalesAnalytics() *SalesAnalytics {
	return &SalesAnalytics{
		CommonKeywordsBeforePurchase: make(map[string]int),
		SalesStageTransitions: map[FunnelStage]int{
			StageAwareness:     0,
			StageInterest:      0,
			StageConsideration: 0,
			StageIntent:        0,
			StageEvaluation:    0,
			StagePurchase:      0,
		},
		ProductsMentioned: make(map[int64]int),
	}
}

// ProductRecommendation is the suggestion payload derived from analytics.
type ProductRecommendation struct {
	RecommendedProductIDs []int64  `json:"recommendedProductIds"`
	ShouldShowProducts    bool     `json:"shouldShowProducts"`
	RelevantKeywords      []string `json:"relevantKeywords"`
}

// ChatRequest is the inbound payload of the chat endpoint.
type ChatRequest struct {
	UserID   string      `json:"userId"`
	Message  string      `json:"message"`
	FlowData *FlowCursor `json:"flowData,omitempty"`
}

// ChatReply is the orchestrator's answer to one inbound message.
type ChatReply struct {
	Reply          string         `json:"reply"`
	IntentAnalysis IntentAnalysis `json:"intentAnalysis"`
}

// Validation constants.
const (
	// MaxMessageLength caps the inbound chat message body.
	MaxMessageLength = 4096
	// MaxFlowNameLength caps the sales-flow name.
	MaxFlowNameLength = 200
)

// Error variables for better error handling and testability.
var (
	ErrMissingUserID      = errors.New("userId is required")
	ErrMissingMessage     = errors.New("message is required")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrFlowNotFound       = errors.New("sales flow not found")
	ErrEmptyFlowName      = errors.New("flow name cannot be empty")
	ErrFlowNameTooLong    = errors.New("flow name exceeds maximum length")
	ErrNoTriggerWords     = errors.New("at least one trigger word is required")
	ErrNoSteps            = errors.New("at least one step is required")
	ErrEmptyStepMessage   = errors.New("step message cannot be empty")
	ErrInvalidPersonality = errors.New("invalid personality")
)

// Validate checks that a chat request carries the required fields.
func (r *ChatRequest) Validate() error {
	if r.UserID == "" {
		return ErrMissingUserID
	}
	if r.Message == "" {
		return ErrMissingMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// Validate performs structural validation on a sales flow definition.
func (f *SalesFlow) Validate() error {
	if f.Name == "" {
		return ErrEmptyFlowName
	}
	if len(f.Name) > MaxFlowNameLength {
		return ErrFlowNameTooLong
	}
	if len(f.TriggerWords) == 0 {
		return ErrNoTriggerWords
	}
	if len(f.Steps) == 0 {
		return ErrNoSteps
	}
	for _, step := range f.Steps {
		if step.Message == "" {
			return ErrEmptyStepMessage
		}
	}
	return nil
}
