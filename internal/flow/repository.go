// Package flow implements the sales-flow repository: scripted decision
// trees that pre-empt the language model when a user message matches a
// trigger word.
package flow

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pokerprotrack/chatbot/internal/models"
	"github.com/pokerprotrack/chatbot/internal/store"
)

// Repository resolves trigger matches and step transitions over stored
// sales flows. Flows are re-read from the store on every request; the
// repository holds no cache and no per-conversation state.
type Repository struct {
	st store.Store
}

// NewRepository creates a flow repository over the given store.
func NewRepository(st store.Store) *Repository {
	return &Repository{st: st}
}

// FindMatchingFlow returns the first stored flow (in creation order) with
// any trigger word contained in the message, case-insensitively.
//
// First match wins: there is no ranking by specificity or by number of
// matched triggers. Admins control precedence through creation order.
func (r *Repository) FindMatchingFlow(message string) (*models.SalesFlow, error) {
	flows, err := r.st.ListFlows()
	if err != nil {
		slog.Error("Repository.FindMatchingFlow: failed to list flows", "error", err)
		return nil, err
	}

	messageLower := strings.ToLower(message)
	for i := range flows {
		for _, word := range flows[i].TriggerWords {
			if word == "" {
				continue
			}
			if strings.Contains(messageLower, strings.ToLower(word)) {
				slog.Debug("Repository.FindMatchingFlow: trigger matched", "flowID", flows[i].ID, "trigger", word)
				return &flows[i], nil
			}
		}
	}
	return nil, nil
}

// GetNextStep resolves a step transition inside a flow.
//
// A nil currentStepID returns the flow's first step unconditionally,
// ignoring selectedOption. Otherwise the option whose text exactly equals
// selectedOption (case-sensitive) decides the transition. An unknown flow,
// unknown step, unmatched option, nil next-step id or dangling reference
// all yield (nil, nil): the flow ends and the caller falls through to the
// model. The cases are deliberately indistinguishable to the caller; only
// the logs tell them apart.
func (r *Repository) GetNextStep(flowID int64, currentStepID *int64, selectedOption string) (*models.Step, error) {
	flow, err := r.st.GetFlow(flowID)
	if err != nil {
		slog.Error("Repository.GetNextStep: failed to load flow", "error", err, "flowID", flowID)
		return nil, err
	}
	if flow == nil {
		slog.Debug("Repository.GetNextStep: unknown flow", "flowID", flowID)
		return nil, nil
	}

	if currentStepID == nil {
		return flow.FirstStep(), nil
	}

	currentStep := flow.FindStep(*currentStepID)
	if currentStep == nil {
		slog.Debug("Repository.GetNextStep: unknown step", "flowID", flowID, "stepID", *currentStepID)
		return nil, nil
	}

	var selected *models.Option
	for i := range currentStep.Options {
		if currentStep.Options[i].Text == selectedOption {
			selected = &currentStep.Options[i]
			break
		}
	}
	if selected == nil {
		slog.Debug("Repository.GetNextStep: option text did not match", "flowID", flowID, "stepID", *currentStepID, "selected", selectedOption)
		return nil, nil
	}
	if selected.NextStepID == nil {
		slog.Debug("Repository.GetNextStep: option ends the flow", "flowID", flowID, "stepID", *currentStepID)
		return nil, nil
	}

	next := flow.FindStep(*selected.NextStepID)
	if next == nil {
		slog.Warn("Repository.GetNextStep: dangling next step reference", "flowID", flowID, "nextStepID", *selected.NextStepID)
	}
	return next, nil
}

// FlowUpdate carries a partial update for a stored flow. Nil fields are
// left unchanged.
type FlowUpdate struct {
	Name         *string        `json:"name,omitempty"`
	TriggerWords *[]string      `json:"triggerWords,omitempty"`
	Steps        *[]models.Step `json:"steps,omitempty"`
	ProductIDs   *[]int64       `json:"productIds,omitempty"`
}

// AddFlow stores a new flow with a generated unique id and returns it.
// Ids are unix-millisecond timestamps, bumped on collision so creation
// order and id order coincide.
func (r *Repository) AddFlow(name string, triggerWords []string, steps []models.Step, productIDs []int64) (*models.SalesFlow, error) {
	now := time.Now().UTC()
	flow := models.SalesFlow{
		Name:         name,
		TriggerWords: triggerWords,
		Steps:        steps,
		ProductIDs:   productIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}

	id := now.UnixMilli()
	for {
		existing, err := r.st.GetFlow(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		id++
	}
	flow.ID = id

	if err := r.st.SaveFlow(flow); err != nil {
		slog.Error("Repository.AddFlow: save failed", "error", err, "name", name)
		return nil, err
	}
	slog.Info("Repository.AddFlow: flow created", "flowID", flow.ID, "name", name)
	return &flow, nil
}

// GetFlowByID returns the stored flow, or (nil, nil) when absent.
func (r *Repository) GetFlowByID(id int64) (*models.SalesFlow, error) {
	return r.st.GetFlow(id)
}

// ListFlows returns all flows in creation order.
func (r *Repository) ListFlows() ([]models.SalesFlow, error) {
	return r.st.ListFlows()
}

// UpdateFlow merges a partial update into the stored flow. Returns
// models.ErrFlowNotFound when the id is unknown.
func (r *Repository) UpdateFlow(id int64, update FlowUpdate) (*models.SalesFlow, error) {
	flow, err := r.st.GetFlow(id)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, models.ErrFlowNotFound
	}

	if update.Name != nil {
		flow.Name = *update.Name
	}
	if update.TriggerWords != nil {
		flow.TriggerWords = *update.TriggerWords
	}
	if update.Steps != nil {
		flow.Steps = *update.Steps
	}
	if update.ProductIDs != nil {
		flow.ProductIDs = *update.ProductIDs
	}
	flow.UpdatedAt = time.Now().UTC()

	if err := flow.Validate(); err != nil {
		return nil, err
	}
	if err := r.st.SaveFlow(*flow); err != nil {
		slog.Error("Repository.UpdateFlow: save failed", "error", err, "flowID", id)
		return nil, err
	}
	slog.Info("Repository.UpdateFlow: flow updated", "flowID", id)
	return flow, nil
}

// DeleteFlow removes a stored flow. Returns models.ErrFlowNotFound when
// the id is unknown.
func (r *Repository) DeleteFlow(id int64) error {
	flow, err := r.st.GetFlow(id)
	if err != nil {
		return err
	}
	if flow == nil {
		return models.ErrFlowNotFound
	}
	if err := r.st.DeleteFlow(id); err != nil {
		slog.Error("Repository.DeleteFlow: delete failed", "error", err, "flowID", id)
		return err
	}
	slog.Info("Repository.DeleteFlow: flow deleted", "flowID", id)
	return nil
}
