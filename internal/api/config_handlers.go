package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pokerprotrack/chatbot/internal/botconfig"
	"github.com/pokerprotrack/chatbot/internal/models"
)

// personalitiesResponse lists the selectable personas and which is active.
type personalitiesResponse struct {
	Personalities map[string]botconfig.Personality `json:"personalities"`
	Active        string                           `json:"active"`
}

// getPersonalitiesHandler handles GET /personalities.
func (s *Server) getPersonalitiesHandler(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Get()
	writeJSONResponse(w, http.StatusOK, models.Success(personalitiesResponse{
		Personalities: cfg.Personalities,
		Active:        cfg.ActivePersonality,
	}))
}

// setActivePersonalityHandler handles POST /personalities/active.
func (s *Server) setActivePersonalityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req struct {
		Personality string `json:"personality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.setActivePersonalityHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := s.config.SetActivePersonality(req.Personality); err != nil {
		if errors.Is(err, models.ErrInvalidPersonality) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid personality: "+req.Personality))
			return
		}
		slog.Error("Server.setActivePersonalityHandler: update failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to set personality"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Personality updated", map[string]string{"active": req.Personality}))
}

// getBusinessHandler handles GET /business.
func (s *Server) getBusinessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.config.Get().BusinessOwner))
}

// updateBusinessHandler handles POST /business with a partial owner
// profile update.
func (s *Server) updateBusinessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var update botconfig.OwnerUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("Server.updateBusinessHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	owner := s.config.UpdateOwner(update)
	writeJSONResponse(w, http.StatusOK, models.Success(owner))
}

// getHumanizationHandler handles GET /humanization.
func (s *Server) getHumanizationHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.config.Get().Humanization))
}

// updateHumanizationHandler handles POST /humanization, replacing the
// settings wholesale.
func (s *Server) updateHumanizationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var h botconfig.Humanization
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		slog.Warn("Server.updateHumanizationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	s.config.UpdateHumanization(h)
	writeJSONResponse(w, http.StatusOK, models.Success(s.config.Get().Humanization))
}

// analyticsHandler handles GET /analytics.
func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	data, err := s.recorder.GetSalesAnalytics()
	if err != nil {
		slog.Error("Server.analyticsHandler: load failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load analytics"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(data))
}

// recommendationsHandler handles GET /recommendations?message=.
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: message"))
		return
	}
	rec, err := s.recorder.Recommendations(message)
	if err != nil {
		slog.Error("Server.recommendationsHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute recommendations"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}
