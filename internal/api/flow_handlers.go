package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pokerprotrack/chatbot/internal/flow"
	"github.com/pokerprotrack/chatbot/internal/models"
)

// createFlowRequest is the inbound payload of POST /flows.
type createFlowRequest struct {
	Name         string        `json:"name"`
	TriggerWords []string      `json:"triggerWords"`
	Steps        []models.Step `json:"steps"`
	ProductIDs   []int64       `json:"productIds,omitempty"`
}

// listFlowsHandler handles GET /flows.
func (s *Server) listFlowsHandler(w http.ResponseWriter, r *http.Request) {
	flows, err := s.flows.ListFlows()
	if err != nil {
		slog.Error("Server.listFlowsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list flows"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(flows))
}

// createFlowHandler handles POST /flows.
func (s *Server) createFlowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createFlowHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	created, err := s.flows.AddFlow(req.Name, req.TriggerWords, req.Steps, req.ProductIDs)
	if err != nil {
		slog.Warn("Server.createFlowHandler: validation failed", "error", err, "name", req.Name)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

// getFlowHandler handles GET /flows/{id}.
func (s *Server) getFlowHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	f, err := s.flows.GetFlowByID(id)
	if err != nil {
		slog.Error("Server.getFlowHandler: load failed", "error", err, "flowID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load flow"))
		return
	}
	if f == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Flow not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(f))
}

// updateFlowHandler handles PUT /flows/{id}.
func (s *Server) updateFlowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id, ok := flowID(w, r)
	if !ok {
		return
	}

	var update flow.FlowUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("Server.updateFlowHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	updated, err := s.flows.UpdateFlow(id, update)
	if errors.Is(err, models.ErrFlowNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Flow not found"))
		return
	}
	if err != nil {
		slog.Warn("Server.updateFlowHandler: update failed", "error", err, "flowID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(updated))
}

// deleteFlowHandler handles DELETE /flows/{id}.
func (s *Server) deleteFlowHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	err := s.flows.DeleteFlow(id)
	if errors.Is(err, models.ErrFlowNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Flow not found"))
		return
	}
	if err != nil {
		slog.Error("Server.deleteFlowHandler: delete failed", "error", err, "flowID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete flow"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Flow deleted", nil))
}

// flowID parses the {id} path segment, writing a 400 on malformed input.
func flowID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		slog.Warn("Server.flowID: invalid flow id", "raw", r.PathValue("id"))
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid flow id"))
		return 0, false
	}
	return id, true
}
