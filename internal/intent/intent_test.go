package intent

import (
	"reflect"
	"testing"

	"github.com/pokerprotrack/chatbot/internal/models"
)

func TestDetectPurchaseIntent_HighConfidence(t *testing.T) {
	// Contains both a keyword ("precio") and an inquiry pattern.
	analysis := DetectPurchaseIntent("Hola, ¿qué productos tienen y cuál es el precio?")
	if !analysis.HasPurchaseIntent {
		t.Fatal("expected purchase intent")
	}
	if analysis.Confidence != models.ConfidenceHigh {
		t.Errorf("expected high confidence, got %q", analysis.Confidence)
	}
}

func TestDetectPurchaseIntent_MediumOnKeywordOnly(t *testing.T) {
	analysis := DetectPurchaseIntent("me interesa el club")
	if !analysis.HasPurchaseIntent {
		t.Fatal("expected purchase intent")
	}
	if analysis.Confidence != models.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %q", analysis.Confidence)
	}
	if !reflect.DeepEqual(analysis.DetectedKeywords, []string{"me interesa"}) {
		t.Errorf("unexpected keywords: %v", analysis.DetectedKeywords)
	}
}

func TestDetectPurchaseIntent_MediumOnPatternOnly(t *testing.T) {
	analysis := DetectPurchaseIntent("¿puedes mostrar los servicios?")
	if !analysis.HasPurchaseIntent {
		t.Fatal("expected purchase intent")
	}
	if analysis.Confidence != models.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %q", analysis.Confidence)
	}
	if len(analysis.DetectedKeywords) != 0 {
		t.Errorf("expected no keywords, got %v", analysis.DetectedKeywords)
	}
}

func TestDetectPurchaseIntent_NoMatch(t *testing.T) {
	analysis := DetectPurchaseIntent("buenas noches, ¿cómo estás?")
	if analysis.HasPurchaseIntent {
		t.Error("did not expect purchase intent")
	}
	if analysis.Confidence != models.ConfidenceLow {
		t.Errorf("expected low confidence, got %q", analysis.Confidence)
	}
	if len(analysis.DetectedKeywords) != 0 {
		t.Errorf("expected no keywords, got %v", analysis.DetectedKeywords)
	}
}

func TestDetectPurchaseIntent_KeywordOrderIsTableOrder(t *testing.T) {
	// "tarjeta" appears before "precio" in the message, but the keyword
	// table lists "precio" first.
	analysis := DetectPurchaseIntent("¿aceptan tarjeta? quiero saber el precio")
	want := []string{"precio", "aceptan", "tarjeta"}
	if !reflect.DeepEqual(analysis.DetectedKeywords, want) {
		t.Errorf("keywords not in table order: got %v, want %v", analysis.DetectedKeywords, want)
	}
}

func TestDetectPurchaseIntent_CaseInsensitive(t *testing.T) {
	analysis := DetectPurchaseIntent("CUÁNTO CUESTA el plan mensual")
	if !analysis.HasPurchaseIntent {
		t.Error("expected purchase intent on upper-cased message")
	}
}

func TestExtractProductCategory(t *testing.T) {
	categories := []string{"rakeback", "bonos", "torneos", "estrategia"}
	got := ExtractProductCategory("Me interesan los Torneos y el rakeback", categories)
	want := []string{"rakeback", "torneos"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractProductCategory_NoneMentioned(t *testing.T) {
	got := ExtractProductCategory("hola", []string{"rakeback"})
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestDetermineUserStage_Progression(t *testing.T) {
	intentMsg := func(text string) models.Message {
		return models.Message{Sender: models.SenderUser, Text: text}
	}

	conversation := []models.Message{
		{Sender: models.SenderUser, Text: "hola"},
		{Sender: models.SenderBot, Text: "¡Hola! ¿En qué puedo ayudarte?"},
	}
	if stage := DetermineUserStage(conversation); stage != models.StageAwareness {
		t.Errorf("expected awareness, got %q", stage)
	}

	conversation = append(conversation, intentMsg("¿cuánto cuesta el plan?"))
	if stage := DetermineUserStage(conversation); stage != models.StageInterest {
		t.Errorf("expected interest, got %q", stage)
	}

	conversation = append(conversation, intentMsg("¿qué ventajas tiene?"))
	if stage := DetermineUserStage(conversation); stage != models.StageConsideration {
		t.Errorf("expected consideration, got %q", stage)
	}
}

func TestDetermineUserStage_EvaluationWithoutPaymentMention(t *testing.T) {
	conversation := []models.Message{
		{Sender: models.SenderUser, Text: "¿precio del plan básico?"},
		{Sender: models.SenderUser, Text: "¿me interesa, hay disponibilidad?"},
		{Sender: models.SenderUser, Text: "dame detalles del rakeback"},
	}
	if stage := DetermineUserStage(conversation); stage != models.StageEvaluation {
		t.Errorf("expected evaluation, got %q", stage)
	}

	// A "compra" mention anywhere flips the stage to intent.
	conversation = append(conversation, models.Message{
		Sender: models.SenderUser,
		Text:   "quiero completar la compra",
	})
	if stage := DetermineUserStage(conversation); stage != models.StageIntent {
		t.Errorf("expected intent after compra mention, got %q", stage)
	}
}

func TestDetermineUserStage_ScansWholeConversation(t *testing.T) {
	// The payment mention sits in a bot message; the scan covers the entire
	// conversation, not just user turns.
	conversation := []models.Message{
		{Sender: models.SenderUser, Text: "¿precio?"},
		{Sender: models.SenderUser, Text: "¿disponibilidad?"},
		{Sender: models.SenderUser, Text: "¿detalles?"},
		{Sender: models.SenderBot, Text: "Puedes finalizar tu compra en la web."},
	}
	if stage := DetermineUserStage(conversation); stage != models.StageIntent {
		t.Errorf("expected intent, got %q", stage)
	}
}

func TestDetermineUserStage_NeverReturnsPurchase(t *testing.T) {
	conversation := []models.Message{
		{Sender: models.SenderUser, Text: "quiero comprar ya, formas de pago"},
		{Sender: models.SenderUser, Text: "compra confirmada, precio pagado"},
		{Sender: models.SenderUser, Text: "pago hecho, tarjeta aceptada"},
		{Sender: models.SenderUser, Text: "gracias por la compra"},
	}
	if stage := DetermineUserStage(conversation); stage == models.StagePurchase {
		t.Error("stage estimator must never return purchase")
	}
}

func TestKeywordsReturnsCopy(t *testing.T) {
	ks := Keywords()
	if len(ks) == 0 {
		t.Fatal("keyword table is empty")
	}
	ks[0] = "mutated"
	if Keywords()[0] == "mutated" {
		t.Error("Keywords must return a copy of the table")
	}
}
