package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pokerprotrack/chatbot/internal/models"
)

// marshalJSON encodes v for a JSON text column. Nil and empty collections
// become the empty string so nullable columns stay NULL.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal for storage: %w", err)
	}
	return string(data), nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanFlow scans a sales flow row: id, name, trigger_words, steps,
// product_ids, created_at, updated_at.
func scanFlow(row rowScanner) (models.SalesFlow, error) {
	var f models.SalesFlow
	var triggerJSON, stepsJSON string
	var productsJSON sql.NullString
	err := row.Scan(&f.ID, &f.Name, &triggerJSON, &stepsJSON, &productsJSON, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal([]byte(triggerJSON), &f.TriggerWords); err != nil {
		return f, fmt.Errorf("failed to decode trigger words for flow %d: %w", f.ID, err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &f.Steps); err != nil {
		return f, fmt.Errorf("failed to decode steps for flow %d: %w", f.ID, err)
	}
	if productsJSON.Valid && productsJSON.String != "" {
		if err := json.Unmarshal([]byte(productsJSON.String), &f.ProductIDs); err != nil {
			return f, fmt.Errorf("failed to decode product ids for flow %d: %w", f.ID, err)
		}
	}
	return f, nil
}

// flowColumns encodes the JSON columns of a sales flow for insertion.
func flowColumns(f models.SalesFlow) (triggerJSON, stepsJSON, productsJSON string, err error) {
	triggerJSON, err = marshalJSON(f.TriggerWords)
	if err != nil {
		return
	}
	stepsJSON, err = marshalJSON(f.Steps)
	if err != nil {
		return
	}
	if len(f.ProductIDs) > 0 {
		productsJSON, err = marshalJSON(f.ProductIDs)
	}
	return
}

// scanTurn scans a conversation turn row: user_id, timestamp, user_message,
// bot_reply, flow_data.
func scanTurn(row rowScanner) (models.ConversationTurn, error) {
	var t models.ConversationTurn
	var flowData sql.NullString
	err := row.Scan(&t.UserID, &t.Timestamp, &t.UserMessage, &t.BotReply, &flowData)
	if err != nil {
		return t, err
	}
	if flowData.Valid && flowData.String != "" {
		var cursor models.FlowCursor
		if err := json.Unmarshal([]byte(flowData.String), &cursor); err != nil {
			return t, fmt.Errorf("failed to decode flow data: %w", err)
		}
		t.FlowData = &cursor
	}
	return t, nil
}
