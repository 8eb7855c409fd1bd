package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/himanishpuri/ToneMatch/pkg/logger"
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/export"
	"github.com/himanishpuri/ToneMatch/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service tonematch.Service
	config  *ServerConfig
	log     tonematch.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	AllowedOrigins []string
	LogRequests    bool
	// MaxBodyBytes caps upload and JSON sample bodies; 0 means MaxUploadBytes.
	MaxBodyBytes int64
}

func NewServer(service tonematch.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.WithPrefix("[http]"),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors onto HTTP status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, export.ErrUnknownFormat):
		status = http.StatusBadRequest
	case errors.Is(err, tonematch.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		s.log.Errorf("Failed to %s: %v", action, err)
	} else {
		s.log.Warnf("Failed to %s: %v", action, err)
	}
	s.respondError(w, status, fmt.Sprintf("Failed to %s: %v", action, err))
}

func (s *Server) maxBodyBytes() int64 {
	if s.config.MaxBodyBytes > 0 {
		return s.config.MaxBodyBytes
	}
	return MaxUploadBytes
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "ToneMatch API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"profiles":        "GET /api/profiles",
			"analyzeUpload":   "POST /api/profiles (multipart audio)",
			"analyzeSamples":  "POST /api/profiles (JSON samples)",
			"analyzeYouTube":  "POST /api/profiles/youtube",
			"getProfile":      "GET /api/profiles/{id}",
			"deleteProfile":   "DELETE /api/profiles/{id}",
			"match":           "POST /api/match",
			"matchProfiles":   "POST /api/match/profiles",
			"matches":         "GET /api/matches",
			"getMatch":        "GET /api/matches/{id}",
			"exportMatch":     "GET /api/matches/{id}/export?format=reaper|json|txt",
			"supportedFormat": strings.Join(export.Formats(), ","),
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.respondServiceError(w, "retrieve metrics", err)
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		ProfileCount: stats.Profiles,
		MatchCount:   stats.Matches,
		SampleRate:   stats.SampleRate,
		FFTSize:      stats.FFTSize,
		Window:       stats.Window,
		Backend:      stats.Backend,
	})
}

// handleListProfiles handles GET /api/profiles
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.service.ListProfiles()
	if err != nil {
		s.respondServiceError(w, "list profiles", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ListProfilesResponse{Profiles: profiles, Count: len(profiles)})
}

// handleAnalyze handles POST /api/profiles. JSON bodies carry decoded
// samples; anything else is treated as a multipart upload.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		s.handleAnalyzeSamples(w, r)
		return
	}
	s.handleAnalyzeUpload(w, r)
}

func (s *Server) handleAnalyzeSamples(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	var req AnalyzeSamplesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.service.AnalyzeSamples(ctx, req.Name, req.Samples, req.SampleRate)
	if err != nil {
		s.respondServiceError(w, "analyze samples", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		s.respondServiceError(w, "prepare upload", err)
		return
	}
	tempFile := utils.TempPath(s.config.TempDir, "upload", header.Filename)
	out, err := os.Create(tempFile)
	if err != nil {
		s.respondServiceError(w, "process upload", err)
		return
	}
	defer os.Remove(tempFile)

	_, err = io.Copy(out, file)
	out.Close()
	if err != nil {
		s.respondServiceError(w, "save uploaded file", err)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, ".wav")
	}

	s.log.Infof("Analyzing upload: %s", header.Filename)
	rec, err := s.service.AnalyzeFile(ctx, tempFile, name)
	if err != nil {
		s.respondServiceError(w, "analyze upload", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

// handleAnalyzeYouTube handles POST /api/profiles/youtube
func (s *Server) handleAnalyzeYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req AnalyzeYouTubeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.service.AnalyzeYouTube(ctx, req.YouTubeURL, req.Name)
	if err != nil {
		s.respondServiceError(w, "analyze YouTube audio", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.service.GetProfile(id)
	if err != nil {
		s.respondServiceError(w, "get profile", err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteProfile(id); err != nil {
		s.respondServiceError(w, "delete profile", err)
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteProfileResponse{
		Message: "Profile deleted successfully",
		ID:      id,
	})
}

// handleMatch handles POST /api/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req MatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := req.Config.ToConfig()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.service.Match(r.Context(), req.ReferenceID, req.InputID, cfg)
	if err != nil {
		s.respondServiceError(w, "match profiles", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

// handleMatchProfiles handles POST /api/match/profiles. Nothing is stored.
func (s *Server) handleMatchProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req MatchProfilesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := req.Config.ToConfig()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.MatchProfiles(req.Reference, req.Input, cfg)
	if err != nil {
		s.respondServiceError(w, "match profiles", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleListMatches handles GET /api/matches
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	matches, err := s.service.ListMatches()
	if err != nil {
		s.respondServiceError(w, "list matches", err)
		return
	}
	dtos := make([]MatchSummaryDTO, len(matches))
	for i, m := range matches {
		dtos[i] = MatchSummaryDTO{
			ID:           m.ID,
			ReferenceID:  m.ReferenceID,
			InputID:      m.InputID,
			QualityScore: m.Result.QualityScore,
			Warnings:     len(m.Result.Warnings),
			CreatedAt:    m.CreatedAt,
		}
	}
	s.respondJSON(w, http.StatusOK, ListMatchesResponse{Matches: dtos, Count: len(dtos)})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.service.GetMatch(id)
	if err != nil {
		s.respondServiceError(w, "get match", err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExportMatch(w http.ResponseWriter, r *http.Request, id string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatText
	}

	body, err := s.service.Export(id, format)
	if err != nil {
		s.respondServiceError(w, "export match", err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if strings.EqualFold(format, export.FormatJSON) {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "tonematch-"+id+export.Extension(format)))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

// handleProfiles routes requests to /api/profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListProfiles(w, r)
	case http.MethodPost:
		s.handleAnalyze(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleProfile routes requests to /api/profiles/{id}
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/profiles/"), "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Profile ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetProfile(w, r, id)
	case http.MethodDelete:
		s.handleDeleteProfile(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMatchByID routes requests to /api/matches/{id} and
// /api/matches/{id}/export
func (s *Server) handleMatchByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/matches/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Match ID required")
		return
	}

	switch action {
	case "":
		s.handleGetMatch(w, r, id)
	case "export":
		s.handleExportMatch(w, r, id)
	default:
		http.NotFound(w, r)
	}
}
