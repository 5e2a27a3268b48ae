package analytics

import (
	"reflect"
	"testing"

	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

func userMsg(text string) models.Message {
	return models.Message{Sender: models.SenderUser, Text: text}
}

func botMsg(text string) models.Message {
	return models.Message{Sender: models.SenderBot, Text: text}
}

func TestAnalyzeConversation_NoIntent(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())
	conversation := []models.Message{
		userMsg("hola"),
		botMsg("¡Hola! ¿En qué puedo ayudarte?"),
	}
	result, err := r.AnalyzeConversation(conversation, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasSalesIntent {
		t.Error("greeting must not count as sales intent")
	}
	if result.Stage != models.StageAwareness {
		t.Errorf("expected awareness, got %s", result.Stage)
	}
	if result.AnalysisData.TotalConversations != 1 {
		t.Errorf("expected 1 total conversation, got %d", result.AnalysisData.TotalConversations)
	}
	if result.AnalysisData.ConversationsWithSalesIntent != 0 {
		t.Errorf("expected 0 intent conversations, got %d", result.AnalysisData.ConversationsWithSalesIntent)
	}
}

func TestAnalyzeConversation_IntentUpdatesCounters(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())
	conversation := []models.Message{
		userMsg("hola"),
		botMsg("¡Hola!"),
		userMsg("¿cuánto cuesta el plan premium?"),
		botMsg("El plan premium cuesta $49 al mes."),
	}
	products := []models.Product{{ID: 7, Name: "Plan Premium"}}

	result, err := r.AnalyzeConversation(conversation, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasSalesIntent {
		t.Fatal("expected sales intent")
	}
	data := result.AnalysisData
	if data.ConversationsWithSalesIntent != 1 {
		t.Errorf("expected 1 intent conversation, got %d", data.ConversationsWithSalesIntent)
	}
	if data.ConversionRate != 100 {
		t.Errorf("expected 100%% conversion rate, got %v", data.ConversionRate)
	}
	// Two user messages up to and including the first intent message.
	if data.AverageMessagesUntilPurchaseIntent != 2 {
		t.Errorf("expected average 2, got %v", data.AverageMessagesUntilPurchaseIntent)
	}
	if data.CommonKeywordsBeforePurchase["cuánto cuesta"] != 1 {
		t.Errorf("keyword counter not updated: %v", data.CommonKeywordsBeforePurchase)
	}
	// "plan premium" appears in the user question and the bot reply.
	if data.ProductsMentioned[7] != 2 {
		t.Errorf("expected 2 product mentions, got %d", data.ProductsMentioned[7])
	}
}

func TestAnalyzeConversation_AverageAcrossConversations(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())

	// First conversation: intent on the 2nd user message.
	first := []models.Message{userMsg("hola"), userMsg("precio?")}
	if _, err := r.AnalyzeConversation(first, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second conversation: intent on the 4th user message.
	second := []models.Message{userMsg("hola"), userMsg("qué tal"), userMsg("cuéntame más"), userMsg("formas de pago?")}
	result, err := r.AnalyzeConversation(second, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.AnalysisData.AverageMessagesUntilPurchaseIntent; got != 3 {
		t.Errorf("expected running average 3, got %v", got)
	}
	if got := result.AnalysisData.ConversionRate; got != 100 {
		t.Errorf("expected 100%% conversion rate, got %v", got)
	}
}

func TestAnalyzeConversation_StageTransitionBuckets(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())
	if _, err := r.AnalyzeConversation([]models.Message{userMsg("hola")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.AnalyzeConversation([]models.Message{userMsg("hola"), userMsg("¿qué precio tiene el plan?")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := r.GetSalesAnalytics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.SalesStageTransitions[models.StageAwareness] != 1 {
		t.Errorf("awareness bucket: %d", data.SalesStageTransitions[models.StageAwareness])
	}
	if data.SalesStageTransitions[models.StageInterest] != 1 {
		t.Errorf("interest bucket: %d", data.SalesStageTransitions[models.StageInterest])
	}
}

func TestGetSalesAnalytics_EmptyStoreReturnsZeroedDocument(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())
	data, err := r.GetSalesAnalytics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TotalConversations != 0 {
		t.Errorf("expected zeroed document, got %+v", data)
	}
	if len(data.SalesStageTransitions) != 6 {
		t.Errorf("expected all 6 stage buckets initialized, got %d", len(data.SalesStageTransitions))
	}
}

func TestRecommendations(t *testing.T) {
	st := store.NewInMemoryStore()
	data := models.NewSalesAnalytics()
	data.ProductsMentioned = map[int64]int{1: 2, 2: 9, 3: 5, 4: 7}
	if err := st.SaveSalesAnalytics(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRecorder(st)
	rec, err := r.Recommendations("¿cuánto cuesta el tracker?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int64{2, 4, 3}; !reflect.DeepEqual(rec.RecommendedProductIDs, want) {
		t.Errorf("expected top-3 by mentions %v, got %v", want, rec.RecommendedProductIDs)
	}
	if !rec.ShouldShowProducts {
		t.Error("purchase intent must enable product display")
	}
	if len(rec.RelevantKeywords) == 0 || rec.RelevantKeywords[0] != "cuánto cuesta" {
		t.Errorf("expected detected keywords, got %v", rec.RelevantKeywords)
	}
}

func TestRecommendations_NoIntentNoData(t *testing.T) {
	r := NewRecorder(store.NewInMemoryStore())
	rec, err := r.Recommendations("hola")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ShouldShowProducts {
		t.Error("no intent must not trigger product display")
	}
	if len(rec.RecommendedProductIDs) != 0 {
		t.Errorf("expected no recommendations, got %v", rec.RecommendedProductIDs)
	}
	if rec.RelevantKeywords == nil {
		t.Error("relevantKeywords must be an empty slice, not nil")
	}
}
