package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/registry"
)

func (s *Server) createProvider(w http.ResponseWriter, r *http.Request) {
	var in registry.CreateProviderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := s.registry.CreateProvider(r.Context(), in)
	if err != nil {
		var cfgErr *provider.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(s.logger, w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, p)
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.registry.ListProviders(r.Context())
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"providers": providers})
}

func (s *Server) getProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider_id")
	p, err := s.registry.GetProvider(r.Context(), id)
	if err != nil {
		writeError(s.logger, w, statusFor(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, p)
}

func (s *Server) updateProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider_id")
	var in registry.UpdateProviderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := s.registry.UpdateProvider(r.Context(), id, in)
	if err != nil {
		var cfgErr *provider.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(s.logger, w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(s.logger, w, statusFor(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, p)
}

func (s *Server) deleteProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider_id")
	if err := s.registry.DeleteProvider(r.Context(), id); err != nil {
		writeError(s.logger, w, statusFor(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"provider_id": id, "status": "deleted"})
}

func (s *Server) syncMappings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider_id")
	updated, err := s.registry.SyncMappingPriority(r.Context(), id)
	if err != nil {
		writeError(s.logger, w, statusFor(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"provider_id": id, "updated": updated})
}

func (s *Server) syncAllMappings(w http.ResponseWriter, r *http.Request) {
	report, err := s.registry.BulkSyncAllMappingPriorities(r.Context())
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, report)
}

func (s *Server) checkLimits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider_id")
	operation := chi.URLParam(r, "operation")
	p, err := s.registry.GetProvider(r.Context(), id)
	if err != nil {
		writeError(s.logger, w, statusFor(err), err.Error())
		return
	}
	allowed := s.guard.CheckLimits(r.Context(), p, operation)
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"provider_id": id,
		"operation":   operation,
		"allowed":     allowed,
	})
}

type selectRequest struct {
	UserID string `json:"user_id,omitempty"`
}

func (s *Server) selectProvider(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")
	var req selectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	cand, err := s.selector.Select(r.Context(), operation, req.UserID)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	if cand == nil {
		// No eligible under-quota provider: a normal outcome, not a fault.
		writeJSON(s.logger, w, http.StatusOK, map[string]any{"provider": nil})
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"provider": cand.Provider})
}

type executeRequest struct {
	Payload map[string]any `json:"payload"`
}

func (s *Server) executeOperation(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.executor.Execute(r.Context(), operation, req.Payload)
	if err != nil {
		var exhausted *provider.ExhaustedError
		switch {
		case errors.Is(err, provider.ErrNoProviderAvailable):
			writeError(s.logger, w, http.StatusServiceUnavailable, err.Error())
		case errors.As(err, &exhausted):
			writeError(s.logger, w, http.StatusBadGateway, err.Error())
		default:
			writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

type scrapeRequest struct {
	URL      string   `json:"url,omitempty"`
	URLs     []string `json:"urls,omitempty"`
	Industry string   `json:"industry,omitempty"`
}

func (s *Server) scrapeURL(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "url is required")
		return
	}
	result := s.engine.ScrapeURL(r.Context(), req.URL, req.Industry)
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) scrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeError(s.logger, w, http.StatusBadRequest, "urls are required")
		return
	}
	job, err := s.engine.ScrapeBatch(r.Context(), req.URLs, req.Industry)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, job)
}

func (s *Server) getScrapeJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(s.logger, w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, job)
}

func statusFor(err error) int {
	if errors.Is(err, provider.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
