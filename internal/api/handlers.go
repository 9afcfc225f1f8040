package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/fetch"
	"github.com/autoscraper/scrapervault/internal/metrics"
	"github.com/autoscraper/scrapervault/internal/repository"
)

type saveScraperRequest struct {
	Code        string                 `json:"code"`
	URL         string                 `json:"url"`
	Selectors   repository.SelectorMap `json:"selectors"`
	SiteName    string                 `json:"site_name"`
	ScraperType string                 `json:"scraper_type"`
}

func (s *Server) saveScraper(w http.ResponseWriter, r *http.Request) {
	var req saveScraperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	saved, err := s.writer.SaveArtifact(r.Context(), repository.SaveRequest{
		Code:      req.Code,
		URL:       req.URL,
		Selectors: req.Selectors,
		SiteName:  req.SiteName,
		Type:      repository.ScraperType(req.ScraperType),
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveArtifactSaved(req.ScraperType)
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listScrapers(w http.ResponseWriter, r *http.Request) {
	metas, err := s.resolver.ListArtifacts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list scrapers")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"scrapers": metas, "count": len(metas)})
}

type scraperResponse struct {
	Metadata repository.ScraperMetadata `json:"metadata"`
	Code     string                     `json:"code"`
}

func (s *Server) getScraper(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	artifact, err := s.resolver.GetArtifact(r.Context(), domain)
	if err != nil {
		s.notFoundOrError(w, err, "scraper not found")
		return
	}
	meta, err := s.resolver.GetMetadata(r.Context(), domain)
	if err != nil {
		s.notFoundOrError(w, err, "scraper metadata not found")
		return
	}
	s.writeJSON(w, http.StatusOK, scraperResponse{Metadata: meta, Code: artifact.Code})
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}

	artifact, err := s.resolver.GetArtifactForURL(r.Context(), url)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.ObserveResolution("miss")
		}
		s.notFoundOrError(w, err, "no scraper matches URL")
		return
	}

	outcome := "pattern"
	if domain, derr := repository.DomainFromURL(url); derr == nil && domain == artifact.Domain {
		outcome = "exact"
	}
	metrics.ObserveResolution(outcome)

	s.writeJSON(w, http.StatusOK, map[string]string{
		"domain": artifact.Domain,
		"key":    artifact.Key,
		"code":   artifact.Code,
	})
}

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := s.resolver.ListPipelines(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list pipelines")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelines, "count": len(pipelines)})
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	pipeline, err := s.resolver.GetPipeline(r.Context(), domain)
	if err != nil {
		if errors.Is(err, repository.ErrIncompletePipeline) {
			s.writeError(w, http.StatusConflict, "pipeline incomplete")
			return
		}
		s.notFoundOrError(w, err, "pipeline not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"domain":  pipeline.Domain,
		"list":    pipeline.List.Code,
		"content": pipeline.Content.Code,
	})
}

type validateRequest struct {
	URL string `json:"url"`
}

func (s *Server) validateScraper(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "validation not configured")
		return
	}
	domain := chi.URLParam(r, "domain")

	var req validateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	result, err := s.validator.Validate(r.Context(), domain, req.URL)
	if err != nil {
		s.notFoundOrError(w, err, "scraper not found")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.histStore == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	domain := chi.URLParam(r, "domain")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := s.histStore.RecentRuns(r.Context(), domain, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

type probeRequest struct {
	URL       string                 `json:"url"`
	Selectors repository.SelectorMap `json:"selectors"`
}

func (s *Server) probeSelectors(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "fetching not configured")
		return
	}
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" || len(req.Selectors) == 0 {
		s.writeError(w, http.StatusBadRequest, "url and selectors required")
		return
	}

	resp, err := s.fetcher.Fetch(r.Context(), fetch.Request{URL: req.URL})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	results, err := fetch.ProbeSelectors(resp.Body, req.Selectors)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"url":      resp.URL,
		"status":   resp.StatusCode,
		"rendered": resp.Rendered,
		"results":  results,
	})
}

func (s *Server) notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if repository.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, msg)
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
