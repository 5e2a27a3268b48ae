package flow

import (
	"testing"

	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(store.NewInMemoryStore())
}

func mustAddFlow(t *testing.T, r *Repository, name string, triggers []string, steps []models.Step) *models.SalesFlow {
	t.Helper()
	flow, err := r.AddFlow(name, triggers, steps, nil)
	if err != nil {
		t.Fatalf("AddFlow(%q) failed: %v", name, err)
	}
	return flow
}

func stepID(id int64) *int64 { return &id }

func TestFindMatchingFlow_FirstMatchWins(t *testing.T) {
	r := newTestRepository(t)
	// Both flows trigger on "rakeback"; the first created one must win
	// even though the second has a more specific trigger.
	first := mustAddFlow(t, r, "General", []string{"rakeback"}, []models.Step{{ID: 1, Message: "A"}})
	mustAddFlow(t, r, "Específico", []string{"rakeback mensual", "rakeback"}, []models.Step{{ID: 1, Message: "B"}})

	got, err := r.FindMatchingFlow("Háblame del rakeback mensual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.ID != first.ID {
		t.Errorf("first-match-wins violated: got flow %q", got.Name)
	}
}

func TestFindMatchingFlow_CaseInsensitiveSubstring(t *testing.T) {
	r := newTestRepository(t)
	flow := mustAddFlow(t, r, "Bonos", []string{"BONOS"}, []models.Step{{ID: 1, Message: "A"}})

	got, err := r.FindMatchingFlow("quiero saber de los bonos de bienvenida")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != flow.ID {
		t.Error("trigger matching must be case-insensitive substring containment")
	}
}

func TestFindMatchingFlow_NoMatch(t *testing.T) {
	r := newTestRepository(t)
	mustAddFlow(t, r, "Bonos", []string{"bonos"}, []models.Step{{ID: 1, Message: "A"}})

	got, err := r.FindMatchingFlow("¿cómo juego mejor preflop?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no match, got flow %q", got.Name)
	}
}

func TestGetNextStep_NilCursorReturnsFirstStep(t *testing.T) {
	r := newTestRepository(t)
	flow := mustAddFlow(t, r, "Demo", []string{"demo"}, []models.Step{
		{ID: 1, Message: "A"},
		{ID: 2, Message: "B"},
	})

	// The option argument is ignored on entry.
	step, err := r.GetNextStep(flow.ID, nil, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step == nil || step.ID != 1 || step.Message != "A" {
		t.Errorf("expected first step, got %+v", step)
	}
}

func TestGetNextStep_FollowsSelectedOption(t *testing.T) {
	r := newTestRepository(t)
	flow := mustAddFlow(t, r, "Demo", []string{"demo"}, []models.Step{
		{ID: 1, Message: "A", Options: []models.Option{
			{Text: "Sí", NextStepID: stepID(2)},
			{Text: "No", NextStepID: nil},
		}},
		{ID: 2, Message: "B"},
	})

	step, err := r.GetNextStep(flow.ID, stepID(1), "Sí")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step == nil || step.ID != 2 {
		t.Errorf("expected step 2, got %+v", step)
	}
}

func TestGetNextStep_OptionTextIsCaseSensitive(t *testing.T) {
	r := newTestRepository(t)
	flow := mustAddFlow(t, r, "Demo", []string{"demo"}, []models.Step{
		{ID: 1, Message: "A", Options: []models.Option{{Text: "Sí", NextStepID: stepID(2)}}},
		{ID: 2, Message: "B"},
	})

	step, err := r.GetNextStep(flow.ID, stepID(1), "sí")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step != nil {
		t.Errorf("option matching must be exact and case-sensitive, got %+v", step)
	}
}

func TestGetNextStep_TerminalAndMissCasesReturnNil(t *testing.T) {
	r := newTestRepository(t)
	flow := mustAddFlow(t, r, "Demo", []string{"demo"}, []models.Step{
		{ID: 1, Message: "A", Options: []models.Option{
			{Text: "Fin", NextStepID: nil},
			{Text: "Roto", NextStepID: stepID(99)},
		}},
	})

	cases := []struct {
		name     string
		flowID   int64
		current  *int64
		selected string
	}{
		{"unknown flow", flow.ID + 1, nil, ""},
		{"unknown step", flow.ID, stepID(7), "Fin"},
		{"unmatched option", flow.ID, stepID(1), "Otra cosa"},
		{"nil next step id", flow.ID, stepID(1), "Fin"},
		{"dangling reference", flow.ID, stepID(1), "Roto"},
	}
	for _, tc := range cases {
		step, err := r.GetNextStep(tc.flowID, tc.current, tc.selected)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if step != nil {
			t.Errorf("%s: expected nil step, got %+v", tc.name, step)
		}
	}
}

func TestAddFlow_RoundTripAndValidation(t *testing.T) {
	r := newTestRepository(t)
	steps := []models.Step{{ID: 1, Message: "Hola", Options: []models.Option{{Text: "Ok", NextStepID: nil}}}}
	created := mustAddFlow(t, r, "Promo", []string{"promo"}, steps)
	if created.ID == 0 {
		t.Error("expected a generated id")
	}

	fetched, err := r.GetFlowByID(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched == nil {
		t.Fatal("created flow not found")
	}
	if fetched.Name != "Promo" || len(fetched.Steps) != 1 || fetched.Steps[0].Options[0].Text != "Ok" {
		t.Errorf("round-trip mismatch: %+v", fetched)
	}

	if _, err := r.AddFlow("", []string{"x"}, steps, nil); err != models.ErrEmptyFlowName {
		t.Errorf("expected ErrEmptyFlowName, got %v", err)
	}
	if _, err := r.AddFlow("X", nil, steps, nil); err != models.ErrNoTriggerWords {
		t.Errorf("expected ErrNoTriggerWords, got %v", err)
	}
	if _, err := r.AddFlow("X", []string{"x"}, nil, nil); err != models.ErrNoSteps {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
}

func TestAddFlow_GeneratedIDsAreUnique(t *testing.T) {
	r := newTestRepository(t)
	steps := []models.Step{{ID: 1, Message: "Hola"}}
	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		flow := mustAddFlow(t, r, "Promo", []string{"promo"}, steps)
		if seen[flow.ID] {
			t.Fatalf("duplicate generated id %d", flow.ID)
		}
		seen[flow.ID] = true
	}
}

func TestUpdateFlow_MergesPartialUpdate(t *testing.T) {
	r := newTestRepository(t)
	created := mustAddFlow(t, r, "Promo", []string{"promo"}, []models.Step{{ID: 1, Message: "Hola"}})

	newName := "Promo 2.0"
	updated, err := r.UpdateFlow(created.ID, FlowUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Promo 2.0" {
		t.Errorf("name not updated: %q", updated.Name)
	}
	if len(updated.TriggerWords) != 1 || updated.TriggerWords[0] != "promo" {
		t.Errorf("untouched fields must survive a partial update: %+v", updated.TriggerWords)
	}
}

func TestUpdateFlow_NotFound(t *testing.T) {
	r := newTestRepository(t)
	name := "X"
	if _, err := r.UpdateFlow(12345, FlowUpdate{Name: &name}); err != models.ErrFlowNotFound {
		t.Errorf("expected ErrFlowNotFound, got %v", err)
	}
}

func TestDeleteFlow(t *testing.T) {
	r := newTestRepository(t)
	created := mustAddFlow(t, r, "Promo", []string{"promo"}, []models.Step{{ID: 1, Message: "Hola"}})

	if err := r.DeleteFlow(created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.DeleteFlow(created.ID); err != models.ErrFlowNotFound {
		t.Errorf("expected ErrFlowNotFound on second delete, got %v", err)
	}
}
