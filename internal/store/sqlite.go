// Package store provides storage backends for the support-chat service.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/pokerprotrack/chatbot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveFlow(flow models.SalesFlow) error {
	triggerJSON, stepsJSON, productsJSON, err := flowColumns(flow)
	if err != nil {
		slog.Error("SQLiteStore SaveFlow encode failed", "error", err, "flowID", flow.ID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO sales_flows (id, name, trigger_words, steps, product_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		flow.ID, flow.Name, triggerJSON, stepsJSON, nilIfEmpty(productsJSON), flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlow failed", "error", err, "flowID", flow.ID)
		return fmt.Errorf("failed to save flow %d: %w", flow.ID, err)
	}
	slog.Debug("SQLiteStore SaveFlow succeeded", "flowID", flow.ID, "name", flow.Name)
	return nil
}

func (s *SQLiteStore) GetFlow(id int64) (*models.SalesFlow, error) {
	row := s.db.QueryRow(`SELECT id, name, trigger_words, steps, product_ids, created_at, updated_at
		FROM sales_flows WHERE id = ?`, id)
	flow, err := scanFlow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetFlow not found", "flowID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlow failed", "error", err, "flowID", id)
		return nil, err
	}
	return &flow, nil
}

func (s *SQLiteStore) ListFlows() ([]models.SalesFlow, error) {
	rows, err := s.db.Query(`SELECT id, name, trigger_words, steps, product_ids, created_at, updated_at
		FROM sales_flows ORDER BY created_at, id`)
	if err != nil {
		slog.Error("SQLiteStore ListFlows query failed", "error", err)
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var flows []models.SalesFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			slog.Error("SQLiteStore ListFlows scan failed", "error", err)
			return nil, err
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListFlows rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore ListFlows succeeded", "count", len(flows))
	return flows, nil
}

func (s *SQLiteStore) DeleteFlow(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sales_flows WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlow failed", "error", err, "flowID", id)
		return fmt.Errorf("failed to delete flow %d: %w", id, err)
	}
	slog.Debug("SQLiteStore DeleteFlow succeeded", "flowID", id)
	return nil
}

func (s *SQLiteStore) AddConversationTurn(turn models.ConversationTurn) error {
	flowData, err := marshalCursor(turn.FlowData)
	if err != nil {
		slog.Error("SQLiteStore AddConversationTurn encode failed", "error", err, "userID", turn.UserID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversation_turns (user_id, timestamp, user_message, bot_reply, flow_data)
		VALUES (?, ?, ?, ?, ?)`,
		turn.UserID, turn.Timestamp, turn.UserMessage, turn.BotReply, nilIfEmpty(flowData))
	if err != nil {
		slog.Error("SQLiteStore AddConversationTurn failed", "error", err, "userID", turn.UserID)
		return fmt.Errorf("failed to insert conversation turn for %s: %w", turn.UserID, err)
	}
	slog.Debug("SQLiteStore AddConversationTurn succeeded", "userID", turn.UserID)
	return nil
}

func (s *SQLiteStore) GetConversationHistory(userID string) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(`SELECT user_id, timestamp, user_message, bot_reply, flow_data
		FROM conversation_turns WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		slog.Error("SQLiteStore GetConversationHistory query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()

	var history []models.ConversationTurn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			slog.Error("SQLiteStore GetConversationHistory scan failed", "error", err)
			return nil, err
		}
		history = append(history, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slog.Debug("SQLiteStore GetConversationHistory succeeded", "userID", userID, "count", len(history))
	return history, nil
}

func (s *SQLiteStore) SaveConversation(conv models.SavedConversation) error {
	messagesJSON, err := marshalJSON(conv.Messages)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation encode failed", "error", err, "userID", conv.UserID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO saved_conversations (id, user_id, timestamp, messages, message_count, user_message_count, bot_message_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Timestamp, messagesJSON,
		conv.Metadata.MessageCount, conv.Metadata.UserMessageCount, conv.Metadata.BotMessageCount)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "userID", conv.UserID)
		return fmt.Errorf("failed to save conversation %d: %w", conv.ID, err)
	}
	slog.Debug("SQLiteStore SaveConversation succeeded", "conversationID", conv.ID, "userID", conv.UserID)
	return nil
}

func (s *SQLiteStore) GetAllFaqs() ([]models.Faq, error) {
	rows, err := s.db.Query(`SELECT id, question, answer, category FROM faqs ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore GetAllFaqs query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var faqs []models.Faq
	for rows.Next() {
		var f models.Faq
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.Category); err != nil {
			slog.Error("SQLiteStore GetAllFaqs scan failed", "error", err)
			return nil, err
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

func (s *SQLiteStore) SaveFaq(faq models.Faq) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO faqs (id, question, answer, category) VALUES (?, ?, ?, ?)`,
		faq.ID, faq.Question, faq.Answer, faq.Category)
	if err != nil {
		slog.Error("SQLiteStore SaveFaq failed", "error", err, "faqID", faq.ID)
		return fmt.Errorf("failed to save faq %d: %w", faq.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAllConcepts() ([]models.Concept, error) {
	rows, err := s.db.Query(`SELECT id, term, definition, category FROM concepts ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore GetAllConcepts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var concepts []models.Concept
	for rows.Next() {
		var c models.Concept
		if err := rows.Scan(&c.ID, &c.Term, &c.Definition, &c.Category); err != nil {
			slog.Error("SQLiteStore GetAllConcepts scan failed", "error", err)
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *SQLiteStore) SaveConcept(concept models.Concept) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO concepts (id, term, definition, category) VALUES (?, ?, ?, ?)`,
		concept.ID, concept.Term, concept.Definition, concept.Category)
	if err != nil {
		slog.Error("SQLiteStore SaveConcept failed", "error", err, "conceptID", concept.ID)
		return fmt.Errorf("failed to save concept %d: %w", concept.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAllProducts() ([]models.Product, error) {
	rows, err := s.db.Query(`SELECT id, name, description, price, category, image_url FROM products ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore GetAllProducts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &imageURL); err != nil {
			slog.Error("SQLiteStore GetAllProducts scan failed", "error", err)
			return nil, err
		}
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLiteStore) SaveProduct(product models.Product) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO products (id, name, description, price, category, image_url)
		VALUES (?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.Price, product.Category, nilIfEmpty(product.ImageURL))
	if err != nil {
		slog.Error("SQLiteStore SaveProduct failed", "error", err, "productID", product.ID)
		return fmt.Errorf("failed to save product %d: %w", product.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSalesAnalytics() (*models.SalesAnalytics, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sales_analytics WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSalesAnalytics failed", "error", err)
		return nil, err
	}
	var analytics models.SalesAnalytics
	if err := json.Unmarshal([]byte(data), &analytics); err != nil {
		slog.Error("SQLiteStore GetSalesAnalytics decode failed", "error", err)
		return nil, fmt.Errorf("failed to decode analytics document: %w", err)
	}
	return &analytics, nil
}

func (s *SQLiteStore) SaveSalesAnalytics(analytics *models.SalesAnalytics) error {
	data, err := marshalJSON(analytics)
	if err != nil {
		slog.Error("SQLiteStore SaveSalesAnalytics encode failed", "error", err)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO sales_analytics (id, data) VALUES (1, ?)`, data)
	if err != nil {
		slog.Error("SQLiteStore SaveSalesAnalytics failed", "error", err)
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// marshalCursor encodes a flow cursor for a nullable JSON column.
func marshalCursor(cursor *models.FlowCursor) (string, error) {
	if cursor == nil {
		return "", nil
	}
	return marshalJSON(cursor)
}
