package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/infra/redis"
	"m3u8-video-merger/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Available() bool
}

// Server exposes the merge job API over HTTP.
type Server struct {
	jobs    *usecase.JobUseCase
	rdb     redis.Client
	tool    HealthChecker
	limiter *redis.RateLimiter
	rate    int
	log     *zerolog.Logger
}

func NewServer(jobs *usecase.JobUseCase, rdb redis.Client, tool HealthChecker, limiter *redis.RateLimiter, ratePerMinute int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "api").Logger()
	return &Server{jobs: jobs, rdb: rdb, tool: tool, limiter: limiter, rate: ratePerMinute, log: &l}
}

// Router builds the full route tree with middleware applied.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(s.limiter, s.rate, s.log)).Post("/merge", s.handleMerge)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/download/{jobID}", s.handleDownload)
		r.Delete("/job/{jobID}", s.handleDelete)
	})
	return r
}

//
// ---------------- request/response shapes ----------------
//

type videoPayload struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type mergePayload struct {
	Videos             []videoPayload `json:"videos"`
	TransitionDuration float64        `json:"transition_duration"`
	OverlayDuration    float64        `json:"overlay_duration"`
}

type jobResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Progress    string `json:"progress,omitempty"`
	OutputFile  string `json:"output_file,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toJobResponse(rec *model.JobRecord) jobResponse {
	resp := jobResponse{
		JobID:      rec.ID,
		Status:     string(rec.Status),
		Progress:   rec.Progress,
		OutputFile: rec.OutputFile,
		Error:      rec.Error,
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.CompletedAt.IsZero() {
		resp.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

//
// ---------------- handlers ----------------
//

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "m3u8-video-merger",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	redisOK := s.rdb != nil && s.rdb.Ping(r.Context()) == nil
	toolOK := s.tool != nil && s.tool.Available()

	status := http.StatusOK
	overall := "healthy"
	if !redisOK || !toolOK {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"redis":  redisOK,
		"ffmpeg": toolOK,
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "missing request body")
		return
	}
	var payload mergePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := usecase.MergeRequest{
		TransitionDuration: payload.TransitionDuration,
		OverlayDuration:    payload.OverlayDuration,
	}
	for _, v := range payload.Videos {
		req.Videos = append(req.Videos, usecase.SourceInput{Title: v.Title, URL: v.URL})
	}

	rec, err := s.jobs.Create(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(rec))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.jobs.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(rec))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	path, err := s.jobs.Result(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="merged_reels_%s.mp4"`, id))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if err := s.jobs.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"job_id": id,
		"status": "deleted",
	})
}

//
// ---------------- response helpers ----------------
//

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrJobNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "processing queue is full, try again later")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
