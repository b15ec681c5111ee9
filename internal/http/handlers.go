package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"doctorai/internal/core"
	"doctorai/internal/db"
	"doctorai/pkg"
)

// maxImageBytes caps uploaded image size (and multipart memory use).
const maxImageBytes = 16 << 20

// Consultant is the slice of the pipeline the handlers depend on.
type Consultant interface {
	Run(ctx context.Context, req core.Request) (*pkg.ConsultResult, error)
}

// Server bundles together the dependencies required by HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
// Repo and Notifier are optional; without them the consult log endpoints
// report unavailable and analyze responses are simply not recorded.
type Server struct {
	Consult  Consultant
	Repo     *db.Repository
	Notifier *db.Notifier
	Logger   *zap.Logger
}

// NewServer constructs a Server. A nil logger is replaced with a no-op.
func NewServer(consult Consultant, repo *db.Repository, notifier *db.Notifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Consult: consult, Repo: repo, Notifier: notifier, Logger: logger}
}

// ServeHTTP dispatches incoming requests based on the URL path. Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/health" && r.Method == http.MethodGet:
		s.handleHealth(w, r)
	case path == "/api/analyze" && r.Method == http.MethodPost:
		s.handleAnalyze(w, r)
	case path == "/api/consults" && r.Method == http.MethodGet:
		s.handleListConsults(w, r)
	case path == "/api/consults/stream" && r.Method == http.MethodGet:
		s.handleConsultStream(w, r)
	case strings.HasPrefix(path, "/api/consults/") && r.Method == http.MethodGet:
		s.handleGetConsult(w, r, strings.TrimPrefix(path, "/api/consults/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeResponse is the wire shape of a successful consult.
type analyzeResponse struct {
	Agent        string      `json:"agent"`
	Title        string      `json:"title"`
	Result       pkg.Payload `json:"result"`
	Verification pkg.Payload `json:"verification"`
	Meta         pkg.Meta    `json:"meta"`
}

// handleAnalyze runs one consult from a multipart form carrying the question,
// an optional agent selector, optional JSON history, and an optional image.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxImageBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	var history []pkg.HistoryEntry
	if raw := r.FormValue("history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			http.Error(w, "invalid history JSON", http.StatusBadRequest)
			return
		}
	}

	var image *core.Image
	if r.MultipartForm != nil {
		file, header, err := r.FormFile("image")
		if err == nil {
			data, readErr := io.ReadAll(io.LimitReader(file, maxImageBytes))
			_ = file.Close()
			if readErr != nil {
				http.Error(w, "could not read image", http.StatusBadRequest)
				return
			}
			image = &core.Image{Name: header.Filename, Data: data}
		} else if !errors.Is(err, http.ErrMissingFile) {
			http.Error(w, "invalid image upload", http.StatusBadRequest)
			return
		}
	}

	result, err := s.Consult.Run(ctx, core.Request{
		Question: question,
		Agent:    r.FormValue("agent"),
		Image:    image,
		History:  history,
	})
	if err != nil {
		// Provider internals stay in the log; the caller gets a generic notice.
		s.Logger.Error("consult failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not process the request"})
		return
	}

	s.recordConsult(result, question, image != nil)

	writeJSON(w, http.StatusOK, analyzeResponse{
		Agent:        result.Agent,
		Title:        result.Title,
		Result:       result.Analysis,
		Verification: result.Verified,
		Meta:         result.Meta,
	})
}

// recordConsult persists a completed consult and publishes its ID, without
// blocking the response.
func (s *Server) recordConsult(result *pkg.ConsultResult, question string, hasImage bool) {
	if s.Repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		analysis, err := json.Marshal(result.Analysis)
		if err != nil {
			s.Logger.Error("failed to encode analysis", zap.Error(err))
			return
		}
		verified, err := json.Marshal(result.Verified)
		if err != nil {
			s.Logger.Error("failed to encode verification", zap.Error(err))
			return
		}
		rec := &pkg.ConsultRecord{
			Agent:    result.Agent,
			Question: question,
			HasImage: hasImage,
			Analysis: analysis,
			Verified: verified,
			Model:    result.Meta.Model,
			Verifier: result.Meta.Verifier,
		}
		if err := s.Repo.RecordConsult(ctx, rec); err != nil {
			s.Logger.Error("failed to record consult", zap.Error(err))
			return
		}
		if s.Notifier != nil {
			if err := s.Notifier.Notify(ctx, rec.ID); err != nil {
				s.Logger.Warn("failed to notify consult", zap.String("id", rec.ID), zap.Error(err))
			}
		}
	}()
}

func (s *Server) handleListConsults(w http.ResponseWriter, r *http.Request) {
	if s.Repo == nil {
		http.Error(w, "consult log not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	records, err := s.Repo.ListConsults(r.Context(), limit)
	if err != nil {
		s.Logger.Error("failed to list consults", zap.Error(err))
		http.Error(w, "could not list consults", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []pkg.ConsultRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetConsult(w http.ResponseWriter, r *http.Request, id string) {
	if s.Repo == nil {
		http.Error(w, "consult log not configured", http.StatusServiceUnavailable)
		return
	}
	rec, err := s.Repo.GetConsult(r.Context(), id)
	if err != nil {
		s.Logger.Error("failed to load consult", zap.String("id", id), zap.Error(err))
		http.Error(w, "could not load consult", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleConsultStream streams newly recorded consults over SSE, driven by
// Postgres LISTEN/NOTIFY.
func (s *Server) handleConsultStream(w http.ResponseWriter, r *http.Request) {
	if s.Repo == nil || s.Notifier == nil {
		http.Error(w, "consult stream not configured", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	ids, err := s.Notifier.Listen(ctx)
	if err != nil {
		s.Logger.Error("failed to listen for consults", zap.Error(err))
		http.Error(w, "could not open consult stream", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	for id := range ids {
		rec, err := s.Repo.GetConsult(ctx, id)
		if err != nil || rec == nil {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if _, err := io.WriteString(w, "data: "+string(data)+"\n\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
