package store

import (
	"path/filepath"
	"reflect"
	"syscall"
	"testing"
	"time"

	"github.com/pokerprotrack/chatbot/internal/models"
)

func sampleFlow(id int64) models.SalesFlow {
	next := int64(2)
	now := time.Now().UTC().Truncate(time.Second)
	return models.SalesFlow{
		ID:           id,
		Name:         "Bienvenida rakeback",
		TriggerWords: []string{"rakeback", "beneficios"},
		Steps: []models.Step{
			{ID: 1, Message: "¿Quieres conocer nuestro programa de rakeback?", Options: []models.Option{
				{Text: "Sí, cuéntame", NextStepID: &next},
				{Text: "No, gracias", NextStepID: nil},
			}},
			{ID: 2, Message: "Ofrecemos hasta un 40% de rakeback mensual."},
		},
		ProductIDs: []int64{10, 11},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInMemoryStore_FlowRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	flow := sampleFlow(100)
	if err := s.SaveFlow(flow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetFlow(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("flow not found after save")
	}
	if !reflect.DeepEqual(*got, flow) {
		t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", *got, flow)
	}
}

func TestInMemoryStore_ListFlowsPreservesCreationOrder(t *testing.T) {
	s := NewInMemoryStore()
	first := sampleFlow(2)
	second := sampleFlow(1)
	second.Name = "Bonos"
	if err := s.SaveFlow(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SaveFlow(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Updating the first flow must not move it behind the second.
	first.Name = "Bienvenida actualizada"
	if err := s.SaveFlow(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flows, err := s.ListFlows()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	if flows[0].ID != 2 || flows[1].ID != 1 {
		t.Errorf("insertion order not preserved: got ids %d, %d", flows[0].ID, flows[1].ID)
	}
	if flows[0].Name != "Bienvenida actualizada" {
		t.Errorf("update not applied in place: %q", flows[0].Name)
	}
}

func TestInMemoryStore_DeleteFlow(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.SaveFlow(sampleFlow(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DeleteFlow(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetFlow(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("flow still present after delete")
	}
}

func TestInMemoryStore_ConversationHistoryOrderedPerUser(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Now().UTC()
	turns := []models.ConversationTurn{
		{UserID: "u1", Timestamp: base, UserMessage: "hola", BotReply: "¡Hola!"},
		{UserID: "u2", Timestamp: base, UserMessage: "precio", BotReply: "Depende del plan."},
		{UserID: "u1", Timestamp: base.Add(time.Minute), UserMessage: "gracias", BotReply: "De nada."},
	}
	for _, turn := range turns {
		if err := s.AddConversationTurn(turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	history, err := s.GetConversationHistory("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns for u1, got %d", len(history))
	}
	if history[0].UserMessage != "hola" || history[1].UserMessage != "gracias" {
		t.Errorf("history out of order: %+v", history)
	}
}

func TestInMemoryStore_AnalyticsIsolation(t *testing.T) {
	s := NewInMemoryStore()
	if got, err := s.GetSalesAnalytics(); err != nil || got != nil {
		t.Fatalf("expected (nil, nil) before save, got (%v, %v)", got, err)
	}

	analytics := models.NewSalesAnalytics()
	analytics.TotalConversations = 3
	analytics.CommonKeywordsBeforePurchase["precio"] = 2
	if err := s.SaveSalesAnalytics(analytics); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	analytics.CommonKeywordsBeforePurchase["precio"] = 99

	got, err := s.GetSalesAnalytics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CommonKeywordsBeforePurchase["precio"] != 2 {
		t.Errorf("stored analytics mutated through caller reference: %d", got.CommonKeywordsBeforePurchase["precio"])
	}
}

func TestSortedProductMentions(t *testing.T) {
	mentions := map[int64]int{4: 1, 2: 5, 9: 5, 1: 3}
	got := SortedProductMentions(mentions)
	want := []int64{2, 9, 1, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSQLiteStore_FlowAndTurnRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "chatbot.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	flow := sampleFlow(42)
	if err := s.SaveFlow(flow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetFlow(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("flow not found after save")
	}
	if got.Name != flow.Name || len(got.Steps) != 2 || len(got.TriggerWords) != 2 {
		t.Errorf("flow fields lost in round-trip: %+v", got)
	}
	if got.Steps[0].Options[1].NextStepID != nil {
		t.Error("nil NextStepID not preserved")
	}

	turn := models.ConversationTurn{
		UserID:      "u1",
		Timestamp:   time.Now().UTC(),
		UserMessage: "¿rakeback?",
		BotReply:    "¿Quieres conocer nuestro programa de rakeback?",
		FlowData:    &models.FlowCursor{Active: true, FlowID: 42, CurrentStepID: 1},
	}
	if err := s.AddConversationTurn(turn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history, err := s.GetConversationHistory("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(history))
	}
	if history[0].FlowData == nil || history[0].FlowData.FlowID != 42 {
		t.Errorf("flow cursor lost in round-trip: %+v", history[0].FlowData)
	}
}

func TestSQLiteStore_AnalyticsDocument(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "chatbot.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	if got, err := s.GetSalesAnalytics(); err != nil || got != nil {
		t.Fatalf("expected (nil, nil) before save, got (%v, %v)", got, err)
	}
	analytics := models.NewSalesAnalytics()
	analytics.TotalConversations = 7
	analytics.SalesStageTransitions[models.StageIntent] = 2
	if err := s.SaveSalesAnalytics(analytics); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetSalesAnalytics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalConversations != 7 || got.SalesStageTransitions[models.StageIntent] != 2 {
		t.Errorf("analytics document lost in round-trip: %+v", got)
	}
}

func TestPostgresStore_FlowRoundTrip(t *testing.T) {
	// Requires a running PostgreSQL instance; set DATABASE_URL to enable.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	s.db.Exec("DELETE FROM sales_flows")

	flow := sampleFlow(42)
	if err := s.SaveFlow(flow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetFlow(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Name != flow.Name {
		t.Errorf("flow not stored or retrieved correctly in Postgres: %+v", got)
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
