// Package intent classifies user messages for purchase intent and infers
// the sales-funnel stage of a conversation.
//
// Classification is fixed-table substring and regex matching over the
// Spanish-language keyword set of the business; it is deterministic and has
// no side effects.
package intent

import (
	"regexp"
	"strings"

	"github.com/pokerprotrack/chatbot/internal/models"
)

// purchaseIntentKeywords is the fixed, ordered table of purchase-intent
// phrases. DetectedKeywords preserves this order, not message order.
var purchaseIntentKeywords = []string{
	// price questions
	"cuánto cuesta", "precio", "cuanto vale", "costo", "tarifa",

	// buying interest
	"quiero comprar", "me interesa", "dónde puedo conseguir",
	"cómo adquiero", "cómo compro", "quiero adquirir",

	// product comparison
	"diferencia entre", "mejor que", "comparar", "ventajas",

	// availability
	"tienen disponible", "hay en stock", "disponibilidad",

	// feature inquiries
	"características", "especificaciones", "detalles",

	// payment methods
	"formas de pago", "puedo pagar con", "aceptan", "tarjeta",
}

// productInquiryPatterns recognize product/service inquiry phrasing.
var productInquiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:qué|cuales|que) (?:productos|servicios|planes) (?:tienen|ofrecen|hay)`),
	regexp.MustCompile(`(?i)(?:me puede|puedes|podrías) (?:mostrar|enseñar|decir) (?:los|las|sus) (?:productos|servicios|opciones)`),
}

// paymentMentions are the phrases whose presence anywhere in a conversation
// marks the intent stage once enough purchase-intent messages accumulated.
var paymentMentions = []string{"pago", "compra"}

// Keywords returns a copy of the purchase-intent keyword table.
func Keywords() []string {
	out := make([]string, len(purchaseIntentKeywords))
	copy(out, purchaseIntentKeywords)
	return out
}

// DetectPurchaseIntent classifies a single message for purchase intent.
//
// Confidence is high when both a keyword and an inquiry pattern matched,
// medium when exactly one did, and low (with no intent) when neither did.
func DetectPurchaseIntent(message string) models.IntentAnalysis {
	messageLower := strings.ToLower(message)

	var detected []string
	for _, keyword := range purchaseIntentKeywords {
		if strings.Contains(messageLower, strings.ToLower(keyword)) {
			detected = append(detected, keyword)
		}
	}
	containsKeywords := len(detected) > 0

	matchesPattern := false
	for _, pattern := range productInquiryPatterns {
		if pattern.MatchString(messageLower) {
			matchesPattern = true
			break
		}
	}

	if containsKeywords || matchesPattern {
		confidence := models.ConfidenceMedium
		if containsKeywords && matchesPattern {
			confidence = models.ConfidenceHigh
		}
		return models.IntentAnalysis{
			HasPurchaseIntent: true,
			Confidence:        confidence,
			DetectedKeywords:  detected,
		}
	}

	return models.IntentAnalysis{
		HasPurchaseIntent: false,
		Confidence:        models.ConfidenceLow,
	}
}

// ExtractProductCategory returns the subset of availableCategories mentioned
// in the message, preserving the input category order.
func ExtractProductCategory(message string, availableCategories []string) []string {
	messageLower := strings.ToLower(message)

	var mentioned []string
	for _, category := range availableCategories {
		if strings.Contains(messageLower, strings.ToLower(category)) {
			mentioned = append(mentioned, category)
		}
	}
	return mentioned
}

// DetermineUserStage derives the user's position in the sales funnel from
// the conversation so far.
//
// It counts user messages carrying purchase intent: none is awareness, one
// is interest, two is consideration. From three on, a payment or purchase
// mention anywhere in the conversation marks intent, otherwise evaluation.
// StagePurchase is never returned; the analytics schema defines it but the
// source system has no signal that reaches it.
func DetermineUserStage(conversation []models.Message) models.FunnelStage {
	intentCount := 0
	for _, msg := range conversation {
		if msg.Sender == models.SenderUser && DetectPurchaseIntent(msg.Text).HasPurchaseIntent {
			intentCount++
		}
	}

	switch intentCount {
	case 0:
		return models.StageAwareness
	case 1:
		return models.StageInterest
	case 2:
		return models.StageConsideration
	}

	// Three or more: scan the entire conversation, bot turns included, for
	// payment or purchase language.
	for _, msg := range conversation {
		textLower := strings.ToLower(msg.Text)
		for _, mention := range paymentMentions {
			if strings.Contains(textLower, mention) {
				return models.StageIntent
			}
		}
	}
	return models.StageEvaluation
}
