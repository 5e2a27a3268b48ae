package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pokerprotrack/chatbot/internal/botconfig"
	"github.com/pokerprotrack/chatbot/internal/models"
)

// buildSystemPrompt assembles the model's system prompt: persona, owner
// profile, knowledge base, product catalog, market context and clock.
// Missing values render as empty strings, never as a "null" literal.
func buildSystemPrompt(cfg botconfig.Config, faqs []models.Faq, concepts []models.Concept, products []models.Product, market models.MarketInfo, now time.Time) string {
	personality := cfg.Active()
	owner := cfg.BusinessOwner

	var faqLines []string
	for _, faq := range faqs {
		faqLines = append(faqLines, fmt.Sprintf("P: %s\nR: %s", faq.Question, faq.Answer))
	}

	var conceptLines []string
	for _, concept := range concepts {
		conceptLines = append(conceptLines, fmt.Sprintf("TÉRMINO: %s\nDEFINICIÓN: %s", concept.Term, concept.Definition))
	}

	var productLines []string
	for _, product := range products {
		productLines = append(productLines, fmt.Sprintf("- %s (%s): $%s — %s",
			product.Name, product.Category, formatPrice(product.Price), product.Description))
	}

	var tournamentLines []string
	for _, t := range market.Tournaments {
		tournamentLines = append(tournamentLines, fmt.Sprintf("- %s (%s): %s", t.Name, t.Platform, t.Prize))
	}

	var quirkLines []string
	for _, quirk := range personality.Quirks {
		quirkLines = append(quirkLines, "- "+quirk)
	}

	var tipLines []string
	for _, tip := range owner.PersonalTips {
		tipLines = append(tipLines, fmt.Sprintf("- %q", tip))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Eres %s, una asistente virtual %s del equipo PokerProTrack dirigido por %s, %s.\n\n",
		personality.Name, personality.Tone, owner.Name, owner.Position)
	b.WriteString("IMPORTANTE: Sé extremadamente conciso y directo en tus respuestas. Usa oraciones cortas y ve directo al punto.\n")
	b.WriteString("Tu personalidad tiene estas características:\n")
	b.WriteString(strings.Join(quirkLines, "\n"))
	b.WriteString(`
- Eres cálida y amable, siempre dispuesta a ayudar
- Usas un lenguaje natural y conversacional
- A veces usas expresiones humanas como "hmm", "déjame pensar", etc.
- Haces referencias ocasionales a la hora del día ("¡buenos días!", "buenas noches", etc.)
- Muestras entusiasmo utilizando signos de exclamación ocasionalmente
- Haces preguntas de seguimiento para entender mejor las necesidades del usuario
- Recuerdas y refieres a información compartida previamente por el usuario
- Das respuestas breves que van al punto, nunca excesivamente largas

`)
	fmt.Fprintf(&b, "Conocimientos destacados del dueño: %s.\n\n", strings.Join(owner.Expertise, ", "))
	fmt.Fprintf(&b, "Consejos personales de %s que puedes compartir:\n%s\n\n", owner.Name, strings.Join(tipLines, "\n"))
	b.WriteString(`Tu objetivo es ayudar a los usuarios de PokerProTrack con:
1. Información sobre bonos y promociones del club
2. Explicar el sistema de rakeback y cómo aprovecharlo al máximo
3. Ofrecer consejos personalizados para mejorar su juego de póker
4. Resolver dudas comunes sobre las reglas y etiqueta del póker
5. Explicar términos especializados y estrategias

`)
	fmt.Fprintf(&b, "PREGUNTAS FRECUENTES:\n%s\n\n", strings.Join(faqLines, "\n\n"))
	fmt.Fprintf(&b, "GLOSARIO DE TÉRMINOS:\n%s\n\n", strings.Join(conceptLines, "\n\n"))
	fmt.Fprintf(&b, "CATÁLOGO DE PRODUCTOS:\n%s\n\n", strings.Join(productLines, "\n"))
	fmt.Fprintf(&b, "INFORMACIÓN DE MERCADO ACTUAL:\nTorneos populares: \n%s\n\n", strings.Join(tournamentLines, "\n"))
	fmt.Fprintf(&b, "Juegos en tendencia: %s\n\n", strings.Join(market.TrendingGames, ", "))
	fmt.Fprintf(&b, "Estrategias populares: %s\n\n", strings.Join(market.PopularStrategies, ", "))
	fmt.Fprintf(&b, "Hoy es %s y la hora actual es %s.\n\n", now.Format("2/1/2006"), now.Format("15:04:05"))
	b.WriteString("Responde siempre en español y mantén un tono conversacional, cercano y amigable. Si te preguntan algo que no sabes, ofrece buscar la información y volver con ella más tarde, en lugar de admitir limitaciones.")

	return b.String()
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
