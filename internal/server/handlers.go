package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/models"
)

type trainRequest struct {
	Language  string `json:"language"`
	ModelType string `json:"model_type,omitempty"`
}

type syncRequest struct {
	Language *string `json:"language,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req models.LearnRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("learn request",
		zap.String("document_id", req.DocumentID),
		zap.String("primary_category_id", req.PrimaryCategoryID),
		zap.Int("keywords", len(req.Keywords)))
	learned, err := s.engine.LearnFromClassification(r.Context(), &req)
	if err != nil {
		s.fail(w, "learn", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"learned": learned})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if !s.decode(w, r, &req) {
		return
	}
	pred, err := s.engine.PredictCategory(r.Context(), &req)
	if err != nil {
		s.fail(w, "predict", err)
		return
	}
	s.respondJSON(w, http.StatusOK, pred)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if !s.decode(w, r, &req) {
		return
	}
	pred, err := s.engine.ClassifyText(r.Context(), &req)
	if err != nil {
		s.fail(w, "classify", err)
		return
	}
	s.respondJSON(w, http.StatusOK, pred)
}

func (s *Server) handleScoreEntity(w http.ResponseWriter, r *http.Request) {
	var req models.EntityRequest
	if !s.decode(w, r, &req) {
		return
	}
	score, err := s.engine.ScoreEntity(r.Context(), &req)
	if err != nil {
		s.fail(w, "score entity", err)
		return
	}
	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if !s.decode(w, r, &req) {
		return
	}
	version, err := s.engine.TrainModel(r.Context(), models.NormalizeLanguage(req.Language), req.ModelType)
	if err != nil {
		s.fail(w, "train", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"trained": version != nil, "version": version})
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	versions, err := s.engine.RetrainAll(r.Context())
	if err != nil {
		// Languages that trained are still reported.
		s.logger.Error("retrain failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "versions": versions})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	list, err := s.engine.Models(r.Context(), chi.URLParam(r, "language"), limit)
	if err != nil {
		s.fail(w, "list models", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"models": list})
}

func (s *Server) handleSyncBlacklist(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if req.Language != nil {
		lang := models.NormalizeLanguage(*req.Language)
		req.Language = &lang
	}
	n, err := s.engine.SyncBlacklist(r.Context(), req.Language)
	if err != nil {
		s.fail(w, "blacklist sync", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"synced": n})
}

func (s *Server) handleOverlaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	overlaps, err := s.engine.DetectOverlaps(r.Context(), q.Get("user_id"), models.NormalizeLanguage(q.Get("language")))
	if err != nil {
		s.fail(w, "overlaps", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"overlaps": overlaps})
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var in models.KeywordInput
	if !s.decode(w, r, &in) {
		return
	}
	row, err := s.engine.AddKeyword(r.Context(), &in)
	if err != nil {
		s.fail(w, "add keyword", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, row)
}

func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := s.engine.DeleteKeyword(r.Context(), userID, id); err != nil {
		s.fail(w, "delete keyword", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.fail(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail maps domain errors to status codes and logs unexpected ones.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrProtectedKeyword):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
