package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/csvingest/internal/core"
	ingestmw "github.com/JonMunkholm/csvingest/internal/web/middleware"
)

const (
	msgUploaded  = "File uploaded and processed successfully."
	msgNoOutlier = "No outliers detected in file."

	// Multipart parts above this size spill to temp files.
	multipartMemory = 32 << 20

	healthTimeout = 3 * time.Second
)

// UploadResponse is returned by POST /api/files/upload.
type UploadResponse struct {
	Message    string          `json:"message"`
	UploadID   uuid.UUID       `json:"upload_id"`
	FileName   string          `json:"file_name"`
	Rows       int64           `json:"rows"`
	Stats      core.Statistics `json:"stats"`
	DurationMS int64           `json:"duration_ms"`
}

// CheckResponse is returned by POST /api/files/check-outlier.
type CheckResponse struct {
	Message  string          `json:"message"`
	FileName string          `json:"file_name"`
	Stats    core.Statistics `json:"stats"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, name, ok := s.receiveFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := s.service.Ingest(requestContext(r), name, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:    msgUploaded,
		UploadID:   result.UploadID,
		FileName:   result.FileName,
		Rows:       result.Rows,
		Stats:      result.Stats,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (s *Server) handleCheckOutlier(w http.ResponseWriter, r *http.Request) {
	file, name, ok := s.receiveFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	analysis, err := s.service.Check(requestContext(r), name, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Message:  msgNoOutlier,
		FileName: name,
		Stats:    analysis.Stats,
	})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "uploadID")
	id, err := uuid.Parse(raw)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("invalid upload ID %q", raw), http.StatusBadRequest)
		return
	}

	upload, err := s.service.Upload(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.UploadLimiterStatus())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errUnhealthy, err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// receiveFile reads the "file" part of a multipart body capped at the
// configured upload size. On failure the response is already written.
func (s *Server) receiveFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, errFileTooLarge, http.StatusBadRequest)
		} else {
			s.respondError(w, r, errNoFile, http.StatusBadRequest)
		}
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return nil, "", false
	}
	return file, header.Filename, true
}

func requestContext(r *http.Request) context.Context {
	return core.ContextWithClientIP(r.Context(), ingestmw.ClientIP(r))
}
