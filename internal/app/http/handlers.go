package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

// CheckStore is the change-detection service behind the API.
type CheckStore interface {
	Submit(ctx context.Context, batch []domain.CheckSubmission) (domain.SubmitResult, error)
	ReadCurrent(ctx context.Context, filter domain.CheckFilter) ([]domain.CheckRecord, error)
	LatestFailures(ctx context.Context) ([]domain.CheckRecord, error)
	ReadHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// ReadinessChecker reports the last known store health.
type ReadinessChecker interface {
	IsHealthy() (bool, error)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	sanitized := s.classifier.LogAndSanitize(r.Context(), s.classifier.Classify(err, operation))
	s.writeJSON(w, sanitized.StatusCode, errorBody{Error: sanitized.Message})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var batch []domain.CheckSubmission
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&batch); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, fmt.Errorf("body exceeds %d bytes: %w", tooLarge.Limit, app_errors.ErrInvalidInput), "Submit")
			return
		}
		s.writeError(w, r, fmt.Errorf("decode batch: %w: %w", app_errors.ErrInvalidInput, err), "Submit")
		return
	}

	res, err := s.store.Submit(r.Context(), batch)
	if err != nil {
		s.writeError(w, r, err, "Submit")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatestFailures(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.LatestFailures(r.Context())
	if err != nil {
		s.writeError(w, r, err, "LatestFailures")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CheckFilter{
		Status:   domain.CheckStatus(q.Get("status")),
		Hostname: q.Get("hostname"),
	}
	records, err := s.store.ReadCurrent(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err, "ReadCurrent")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("limit %q: %w", raw, app_errors.ErrInvalidInput), "ReadHistory")
			return
		}
		limit = n
	}

	entries, err := s.store.ReadHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err, "ReadHistory")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		if ok, err := s.readiness.IsHealthy(); !ok {
			if err == nil {
				err = errors.New("store unhealthy")
			}
			s.writeError(w, r, fmt.Errorf("readiness: %w: %w", app_errors.ErrUnavailable, err), "Readyz")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
