package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/analyzer"
	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/narrative"
	"github.com/Andrew-Sencil/GBP/internal/provider"
)

type analyzeOverrides struct {
	Address      *string  `json:"address"`
	Phone        *string  `json:"phone"`
	Rating       *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewsCount *int     `json:"reviews_count" validate:"omitempty,gte=0"`
}

// analyzeRequest identifies the listing by exactly one of query and
// place_id.
type analyzeRequest struct {
	Query            string            `json:"query" validate:"required_without=PlaceID,excluded_with=PlaceID"`
	PlaceID          string            `json:"place_id"`
	Force            bool              `json:"force"`
	IncludeNarrative bool              `json:"include_narrative"`
	NarrativeModel   string            `json:"narrative_model" validate:"omitempty,oneof=fast deep"`
	Overrides        *analyzeOverrides `json:"overrides"`
}

type narrativeRequest struct {
	PlaceID string `json:"place_id" validate:"required"`
	Model   string `json:"model" validate:"omitempty,oneof=fast deep"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Exactly one of query and place_id is required: "+err.Error())
		return
	}

	in := analyzer.Input{
		Query:            req.Query,
		PlaceID:          req.PlaceID,
		Force:            req.Force,
		IncludeNarrative: req.IncludeNarrative,
		NarrativeModel:   modelChoice(req.NarrativeModel),
	}
	if req.Overrides != nil {
		in.Overrides = provider.Overrides{
			Address:      req.Overrides.Address,
			Phone:        req.Overrides.Phone,
			Rating:       req.Overrides.Rating,
			ReviewsCount: req.Overrides.ReviewsCount,
		}
	}

	bundle, err := s.pipeline.Analyze(r.Context(), in)
	if err != nil {
		s.respondWithPipelineError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	placeID := r.URL.Query().Get("place_id")
	if placeID == "" {
		s.respondWithError(w, http.StatusBadRequest, "place_id query parameter is required")
		return
	}

	bundle, err := s.store.GetAnalysis(r.Context(), placeID)
	if errors.Is(err, domain.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "No analysis stored for this place")
		return
	}
	if err != nil {
		s.logger.Error("failed to load stored analysis", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve analysis")
		return
	}
	s.respondWithJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	var req narrativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "place_id is required: "+err.Error())
		return
	}

	text, err := s.pipeline.Narrative(r.Context(), req.PlaceID, modelChoice(req.Model))
	if errors.Is(err, domain.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "No analysis stored for this place")
		return
	}
	if err != nil {
		s.logger.Error("narrative generation failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not generate narrative")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"place_id":  req.PlaceID,
		"narrative": text,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.pgPing.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.redisPing.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// respondWithPipelineError maps pipeline failures onto status codes: a
// listing the provider cannot find is 404; a payload the normalizer rejects
// is 422; everything else is a server error.
func (s *Server) respondWithPipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrListingNotFound) {
		s.respondWithError(w, http.StatusNotFound, "No listing found for this query or place_id")
		return
	}
	var acqErr *domain.AcquisitionError
	if errors.As(err, &acqErr) {
		s.respondWithError(w, http.StatusUnprocessableEntity, acqErr.Error())
		return
	}
	s.logger.Error("analysis failed", zap.Error(err))
	s.respondWithError(w, http.StatusInternalServerError, "Analysis failed")
}

func modelChoice(model string) narrative.ModelChoice {
	if model == string(narrative.ModelDeep) {
		return narrative.ModelDeep
	}
	return narrative.ModelFast
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
