// Package store provides storage backends for the support-chat service.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/pokerprotrack/chatbot/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store on a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveFlow(flow models.SalesFlow) error {
	triggerJSON, stepsJSON, productsJSON, err := flowColumns(flow)
	if err != nil {
		slog.Error("PostgresStore SaveFlow encode failed", "error", err, "flowID", flow.ID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sales_flows (id, name, trigger_words, steps, product_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger_words = EXCLUDED.trigger_words,
			steps = EXCLUDED.steps,
			product_ids = EXCLUDED.product_ids,
			updated_at = EXCLUDED.updated_at`,
		flow.ID, flow.Name, triggerJSON, stepsJSON, nilIfEmpty(productsJSON), flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlow failed", "error", err, "flowID", flow.ID)
		return fmt.Errorf("failed to save flow %d: %w", flow.ID, err)
	}
	slog.Debug("PostgresStore SaveFlow succeeded", "flowID", flow.ID, "name", flow.Name)
	return nil
}

func (s *PostgresStore) GetFlow(id int64) (*models.SalesFlow, error) {
	row := s.db.QueryRow(`SELECT id, name, trigger_words, steps, product_ids, created_at, updated_at
		FROM sales_flows WHERE id = $1`, id)
	flow, err := scanFlow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetFlow not found", "flowID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlow failed", "error", err, "flowID", id)
		return nil, err
	}
	return &flow, nil
}

func (s *PostgresStore) ListFlows() ([]models.SalesFlow, error) {
	rows, err := s.db.Query(`SELECT id, name, trigger_words, steps, product_ids, created_at, updated_at
		FROM sales_flows ORDER BY created_at, id`)
	if err != nil {
		slog.Error("PostgresStore ListFlows query failed", "error", err)
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var flows []models.SalesFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			slog.Error("PostgresStore ListFlows scan failed", "error", err)
			return nil, err
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slog.Debug("PostgresStore ListFlows succeeded", "count", len(flows))
	return flows, nil
}

func (s *PostgresStore) DeleteFlow(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sales_flows WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteFlow failed", "error", err, "flowID", id)
		return fmt.Errorf("failed to delete flow %d: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) AddConversationTurn(turn models.ConversationTurn) error {
	flowData, err := marshalCursor(turn.FlowData)
	if err != nil {
		slog.Error("PostgresStore AddConversationTurn encode failed", "error", err, "userID", turn.UserID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversation_turns (user_id, timestamp, user_message, bot_reply, flow_data)
		VALUES ($1, $2, $3, $4, $5)`,
		turn.UserID, turn.Timestamp, turn.UserMessage, turn.BotReply, nilIfEmpty(flowData))
	if err != nil {
		slog.Error("PostgresStore AddConversationTurn failed", "error", err, "userID", turn.UserID)
		return fmt.Errorf("failed to insert conversation turn for %s: %w", turn.UserID, err)
	}
	return nil
}

func (s *PostgresStore) GetConversationHistory(userID string) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(`SELECT user_id, timestamp, user_message, bot_reply, flow_data
		FROM conversation_turns WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		slog.Error("PostgresStore GetConversationHistory query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()

	var history []models.ConversationTurn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			slog.Error("PostgresStore GetConversationHistory scan failed", "error", err)
			return nil, err
		}
		history = append(history, turn)
	}
	return history, rows.Err()
}

func (s *PostgresStore) SaveConversation(conv models.SavedConversation) error {
	messagesJSON, err := marshalJSON(conv.Messages)
	if err != nil {
		slog.Error("PostgresStore SaveConversation encode failed", "error", err, "userID", conv.UserID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO saved_conversations (id, user_id, timestamp, messages, message_count, user_message_count, bot_message_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		conv.ID, conv.UserID, conv.Timestamp, messagesJSON,
		conv.Metadata.MessageCount, conv.Metadata.UserMessageCount, conv.Metadata.BotMessageCount)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "userID", conv.UserID)
		return fmt.Errorf("failed to save conversation %d: %w", conv.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetAllFaqs() ([]models.Faq, error) {
	rows, err := s.db.Query(`SELECT id, question, answer, category FROM faqs ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore GetAllFaqs query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var faqs []models.Faq
	for rows.Next() {
		var f models.Faq
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.Category); err != nil {
			return nil, err
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

func (s *PostgresStore) SaveFaq(faq models.Faq) error {
	_, err := s.db.Exec(`INSERT INTO faqs (id, question, answer, category) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET question = EXCLUDED.question, answer = EXCLUDED.answer, category = EXCLUDED.category`,
		faq.ID, faq.Question, faq.Answer, faq.Category)
	if err != nil {
		slog.Error("PostgresStore SaveFaq failed", "error", err, "faqID", faq.ID)
		return fmt.Errorf("failed to save faq %d: %w", faq.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetAllConcepts() ([]models.Concept, error) {
	rows, err := s.db.Query(`SELECT id, term, definition, category FROM concepts ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore GetAllConcepts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var concepts []models.Concept
	for rows.Next() {
		var c models.Concept
		if err := rows.Scan(&c.ID, &c.Term, &c.Definition, &c.Category); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *PostgresStore) SaveConcept(concept models.Concept) error {
	_, err := s.db.Exec(`INSERT INTO concepts (id, term, definition, category) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET term = EXCLUDED.term, definition = EXCLUDED.definition, category = EXCLUDED.category`,
		concept.ID, concept.Term, concept.Definition, concept.Category)
	if err != nil {
		slog.Error("PostgresStore SaveConcept failed", "error", err, "conceptID", concept.ID)
		return fmt.Errorf("failed to save concept %d: %w", concept.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetAllProducts() ([]models.Product, error) {
	rows, err := s.db.Query(`SELECT id, name, description, price, category, image_url FROM products ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore GetAllProducts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &imageURL); err != nil {
			return nil, err
		}
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) SaveProduct(product models.Product) error {
	_, err := s.db.Exec(`INSERT INTO products (id, name, description, price, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url`,
		product.ID, product.Name, product.Description, product.Price, product.Category, nilIfEmpty(product.ImageURL))
	if err != nil {
		slog.Error("PostgresStore SaveProduct failed", "error", err, "productID", product.ID)
		return fmt.Errorf("failed to save product %d: %w", product.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSalesAnalytics() (*models.SalesAnalytics, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sales_analytics WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSalesAnalytics failed", "error", err)
		return nil, err
	}
	var analytics models.SalesAnalytics
	if err := json.Unmarshal([]byte(data), &analytics); err != nil {
		slog.Error("PostgresStore GetSalesAnalytics decode failed", "error", err)
		return nil, fmt.Errorf("failed to decode analytics document: %w", err)
	}
	return &analytics, nil
}

func (s *PostgresStore) SaveSalesAnalytics(analytics *models.SalesAnalytics) error {
	data, err := marshalJSON(analytics)
	if err != nil {
		slog.Error("PostgresStore SaveSalesAnalytics encode failed", "error", err)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sales_analytics (id, data) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, data)
	if err != nil {
		slog.Error("PostgresStore SaveSalesAnalytics failed", "error", err)
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
