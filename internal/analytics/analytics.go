// Package analytics aggregates sales-funnel metrics over finished
// conversations and derives product recommendations from them.
package analytics

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pokerprotrack/chatbot/internal/intent"
	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

// recommendationCount caps how many product ids a recommendation carries.
const recommendationCount = 3

// Recorder updates and serves the persisted sales-analytics document.
type Recorder struct {
	st store.Store
}

// NewRecorder creates an analytics recorder over the given store.
func NewRecorder(st store.Store) *Recorder {
	return &Recorder{st: st}
}

// Result is the outcome of analyzing one conversation.
type Result struct {
	HasSalesIntent bool                  `json:"hasSalesIntent"`
	Stage          models.FunnelStage    `json:"stage"`
	AnalysisData   models.SalesAnalytics `json:"analysisData"`
}

// AnalyzeConversation folds one conversation into the aggregated
// counters and persists the updated document.
//
// A conversation counts toward sales intent when any user message
// triggers purchase-intent detection. The messages-until-intent average
// counts user messages up to and including the first such message.
// Product mentions scan every message, bot replies included, since the
// bot naming a product keeps it in play.
func (r *Recorder) AnalyzeConversation(conversation []models.Message, products []models.Product) (*Result, error) {
	data, err := r.st.GetSalesAnalytics()
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	if data == nil {
		data = models.NewSalesAnalytics()
	}

	data.TotalConversations++

	var intentMessages []models.IntentAnalysis
	firstIntentIndex := -1
	for i, msg := range conversation {
		if msg.Sender != models.SenderUser {
			continue
		}
		analysis := intent.DetectPurchaseIntent(msg.Text)
		if !analysis.HasPurchaseIntent {
			continue
		}
		intentMessages = append(intentMessages, analysis)
		if firstIntentIndex == -1 {
			firstIntentIndex = i
		}
	}
	hasSalesIntent := len(intentMessages) > 0

	if hasSalesIntent {
		data.ConversationsWithSalesIntent++
		data.ConversionRate = float64(data.ConversationsWithSalesIntent) / float64(data.TotalConversations) * 100

		userMessagesUntilIntent := 0
		for _, msg := range conversation[:firstIntentIndex+1] {
			if msg.Sender == models.SenderUser {
				userMessagesUntilIntent++
			}
		}
		n := float64(data.ConversationsWithSalesIntent)
		data.AverageMessagesUntilPurchaseIntent =
			(data.AverageMessagesUntilPurchaseIntent*(n-1) + float64(userMessagesUntilIntent)) / n

		for _, analysis := range intentMessages {
			for _, keyword := range analysis.DetectedKeywords {
				data.CommonKeywordsBeforePurchase[keyword]++
			}
		}

		for _, product := range products {
			mentions := countMentions(conversation, product.Name)
			if mentions > 0 {
				data.ProductsMentioned[product.ID] += mentions
			}
		}
	}

	stage := intent.DetermineUserStage(conversation)
	data.SalesStageTransitions[stage]++

	if err := r.st.SaveSalesAnalytics(data); err != nil {
		return nil, fmt.Errorf("failed to persist analytics: %w", err)
	}
	slog.Debug("Recorder.AnalyzeConversation: conversation recorded",
		"hasSalesIntent", hasSalesIntent, "stage", stage, "totalConversations", data.TotalConversations)

	return &Result{HasSalesIntent: hasSalesIntent, Stage: stage, AnalysisData: *data}, nil
}

// GetSalesAnalytics returns the current document, or a zeroed one when
// nothing has been recorded yet.
func (r *Recorder) GetSalesAnalytics() (*models.SalesAnalytics, error) {
	data, err := r.st.GetSalesAnalytics()
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	if data == nil {
		data = models.NewSalesAnalytics()
	}
	return data, nil
}

// Recommendations returns the most-mentioned product ids alongside the
// intent signals extracted from the message.
func (r *Recorder) Recommendations(message string) (*models.ProductRecommendation, error) {
	data, err := r.GetSalesAnalytics()
	if err != nil {
		return nil, err
	}

	popular := store.SortedProductMentions(data.ProductsMentioned)
	if len(popular) > recommendationCount {
		popular = popular[:recommendationCount]
	}

	analysis := intent.DetectPurchaseIntent(message)
	keywords := analysis.DetectedKeywords
	if keywords == nil {
		keywords = []string{}
	}
	return &models.ProductRecommendation{
		RecommendedProductIDs: popular,
		ShouldShowProducts:    analysis.HasPurchaseIntent,
		RelevantKeywords:      keywords,
	}, nil
}

func countMentions(conversation []models.Message, productName string) int {
	nameLower := strings.ToLower(productName)
	count := 0
	for _, msg := range conversation {
		if strings.Contains(strings.ToLower(msg.Text), nameLower) {
			count++
		}
	}
	return count
}
