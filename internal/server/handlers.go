package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/ingest"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/vector"
)

// maxBodyBytes bounds request bodies; ingestion batches are the largest.
const maxBodyBytes = 32 << 20

const (
	defaultDocumentPage = 50
	maxDocumentPage     = 500
)

// EntryResponse is the body of GET /api/v1/entries.
type EntryResponse struct {
	Key      string            `json:"key"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse is the body of POST /api/v1/chunks.
type IngestResponse struct {
	Stats   ingest.Stats `json:"stats"`
	Entries int          `json:"entries"`
	Labels  int          `json:"labels"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	search.Status
	Documents      int64 `json:"documents,omitempty"`
	Chunks         int64 `json:"chunks,omitempty"`
	DiskUsageBytes int64 `json:"disk_usage_bytes,omitempty"`
}

// DocumentsResponse is the body of GET /api/v1/documents.
type DocumentsResponse struct {
	Documents []*models.Document `json:"documents"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.searchesTotal.WithLabelValues(strconv.FormatBool(response.Narrowed)).Inc()
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var chunks []models.Chunk
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&chunks); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(chunks) == 0 {
		s.respondError(w, http.StatusBadRequest, "no chunks given")
		return
	}
	s.logger.Debug("ingest request", zap.Int("chunks", len(chunks)))
	stats, err := s.engine.Ingest(r.Context(), chunks)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.ingestedTotal.Add(float64(stats.Chunks))
	st := s.engine.Status()
	s.respondJSON(w, http.StatusCreated, IngestResponse{Stats: stats, Entries: st.Entries, Labels: st.Labels})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.respondError(w, http.StatusBadRequest, "key is required")
		return
	}
	entry, ok := s.engine.Entry(key)
	if !ok {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.respondJSON(w, http.StatusOK, EntryResponse{Key: entry.Key, Vector: entry.Vector, Metadata: entry.Metadata})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"labels": s.engine.Labels()})
}

// handleListDocuments pages through the catalog, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotFound, "no catalog configured")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultDocumentPage)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxDocumentPage {
		limit = maxDocumentPage
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, DocumentsResponse{Documents: docs, Offset: offset, Limit: limit})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: s.engine.Status()}
	if s.storage != nil {
		ctx := r.Context()
		docCount, err := s.storage.CountDocuments(ctx)
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunkCount, err := s.storage.CountChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Documents, resp.Chunks = docCount, chunkCount
		if sized, ok := s.storage.(interface{ SizeBytes() (int64, error) }); ok {
			if n, err := sized.SizeBytes(); err == nil {
				resp.DiskUsageBytes = n
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidQuery), errors.Is(err, vector.ErrDegenerateVector):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, ingest.ErrIngestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
