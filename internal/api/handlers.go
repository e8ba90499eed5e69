// Package api provides HTTP handlers for FormForge endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/steps"
)

// nextStepsHandler runs one generation batch. Only malformed JSON and
// structural request errors produce a 400; everything the generation
// provider gets wrong degrades to a smaller (possibly empty) batch.
func (s *Server) nextStepsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.nextStepsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.nextStepsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.NextStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.nextStepsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	resp, err := s.orchestrator.GenerateBatch(r.Context(), req)
	if err != nil {
		slog.Warn("Server.nextStepsHandler: request validation failed", "error", err, "batchID", req.CurrentBatch.BatchID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.nextStepsHandler: batch generated", "requestID", resp.RequestID, "steps", len(resp.MiniSteps))
	writeJSONResponse(w, http.StatusOK, resp)
}

// capabilitiesHandler serves the step-type schema snapshot so clients can
// detect contract drift without parsing generation output.
func (s *Server) capabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.capabilitiesHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.capabilitiesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(steps.Capabilities(s.schema)))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
