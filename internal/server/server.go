package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/imagery"
	"github.com/local/imageplanner/internal/metrics"
	"github.com/local/imageplanner/internal/pipeline"
	"github.com/local/imageplanner/internal/store"
)

// Processor runs one acquisition-to-placement pass.
type Processor interface {
	Process(ctx context.Context, content imagery.Content, sections []imagery.Section, opts pipeline.Options) imagery.ProcessResult
}

// StatusStore persists job state and finished plans.
type StatusStore interface {
	SetStatus(ctx context.Context, jobID string, st store.Status) error
	GetStatus(ctx context.Context, jobID string) (store.Status, bool, error)
	SaveResult(ctx context.Context, jobID string, res imagery.ProcessResult) error
	GetResult(ctx context.Context, jobID string) (imagery.ProcessResult, bool, error)
}

// Archive keeps finished plans in long-term storage. Optional.
type Archive interface {
	Save(ctx context.Context, jobID string, res imagery.ProcessResult) (string, error)
}

// VideoEnricher fills missing video metadata (duration, transcript, key
// moments) before the pipeline plans screenshots. Optional.
type VideoEnricher interface {
	Enrich(ctx context.Context, v *imagery.Video) error
}

type Dependencies struct {
	Engine     Processor
	Status     StatusStore
	Archive    Archive
	Videos     VideoEnricher
	JobTimeout time.Duration
}

type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	if deps.JobTimeout <= 0 {
		deps.JobTimeout = 5 * time.Minute
	}
	return &Server{deps: deps}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/process_document", s.handleProcess)
	mux.HandleFunc("/progress/", s.handleProgress)
	mux.HandleFunc("/result/", s.handleResult)
}

type processReq struct {
	Content      imagery.Content   `json:"content"`
	Sections     []imagery.Section `json:"sections"`
	DocumentType string            `json:"document_type"`
	Options      json.RawMessage   `json:"options,omitempty"`
}

type processResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req processReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Content.HTML == "" && req.Content.Video == nil && len(req.Sections) == 0 {
		http.Error(w, "missing content or sections", http.StatusBadRequest)
		return
	}

	opts := pipeline.OptionsFor(req.DocumentType)
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			http.Error(w, "invalid options", http.StatusBadRequest)
			return
		}
	}

	jobID := uuid.NewString()
	start := time.Now()
	log.Info().Str("job_id", jobID).Str("document_type", req.DocumentType).
		Int("sections", len(req.Sections)).Msg("job created")
	if err := s.deps.Status.SetStatus(r.Context(), jobID, store.Status{
		Status: "queued", Progress: 0, Message: "queued", Start: &start,
		Metadata: map[string]interface{}{"document_type": req.DocumentType, "sections": len(req.Sections)},
	}); err != nil {
		http.Error(w, "status store unavailable", http.StatusServiceUnavailable)
		return
	}

	go s.runJob(jobID, start, req.Content, req.Sections, opts)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(processResp{Status: "ok", JobID: jobID, Message: "Document processing job created"})
}

// runJob drives one job to completion. It runs detached from the request
// context so a client disconnect does not abort the pipeline.
func (s *Server) runJob(jobID string, start time.Time, content imagery.Content, sections []imagery.Section, opts pipeline.Options) {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.JobTimeout)
	defer cancel()

	_ = s.deps.Status.SetStatus(ctx, jobID, store.Status{
		Status: "processing", Progress: 10, Message: "pipeline running", Start: &start,
	})

	if v := content.Video; v != nil && s.deps.Videos != nil &&
		(v.Duration == 0 || (v.Transcript == "" && len(v.KeyMoments) == 0)) {
		if err := s.deps.Videos.Enrich(ctx, v); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("video metadata enrichment failed")
		}
	}

	res := s.deps.Engine.Process(ctx, content, sections, opts)

	if err := s.deps.Status.SaveResult(ctx, jobID, res); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("save result failed")
		now := time.Now()
		_ = s.deps.Status.SetStatus(ctx, jobID, store.Status{
			Status: "error", Progress: 100, Message: "failed to persist result", Start: &start, End: &now,
		})
		metrics.IncJob("error")
		return
	}

	if s.deps.Archive != nil {
		if url, err := s.deps.Archive.Save(ctx, jobID, res); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("plan archive failed")
		} else {
			log.Info().Str("job_id", jobID).Str("url", url).Msg("plan archived")
		}
	}

	now := time.Now()
	meta := map[string]interface{}{
		"total_images":    len(res.ExtractedImages) + len(res.Screenshots),
		"placed_images":   len(res.Placement.Placements),
		"placement_score": res.Placement.Score,
		"errors":          len(res.Errors),
	}
	_ = s.deps.Status.SetStatus(ctx, jobID, store.Status{
		Status: "success", Progress: 100, Message: "completed", Start: &start, End: &now, Metadata: meta,
	})
	metrics.IncJob("success")
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/progress/")
	st, ok, err := s.deps.Status.GetStatus(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    st.Status == "success",
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/result/")
	res, ok, err := s.deps.Status.GetResult(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		// Distinguish a pending job from an unknown one.
		st, exists, err := s.deps.Status.GetStatus(r.Context(), id)
		if err == nil && exists && st.Status != "error" {
			http.Error(w, "not ready", http.StatusAccepted)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
