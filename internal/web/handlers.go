package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/mapload/internal/core"
	"github.com/JonMunkholm/mapload/internal/logging"
	"github.com/JonMunkholm/mapload/internal/web/templates"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to temporary files.
const multipartMemory = 32 << 20

// multipartOverhead allows for part headers and boundaries on top of the
// file bytes when bounding the request body.
const multipartOverhead = 64 << 10

// FileResponse describes one loaded file.
type FileResponse struct {
	Label  string      `json:"label"`
	Format core.Format `json:"format"`
	ID     string      `json:"id,omitempty"`
}

// LoadResponse describes the outcome of one uploaded file.
type LoadResponse struct {
	File    string      `json:"file"`
	Loaded  bool        `json:"loaded"`
	Format  core.Format `json:"format,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"loads":  s.service.LimiterStatus(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.service.CreateSession(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadFiles loads every multipart "file" part into the session.
// Per-file failures are reported in the body; the request only fails when
// the session or the form itself is unusable.
func (s *Server) handleLoadFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ingest := s.cfg.Ingest

	if ingest.MaxFileSize > 0 {
		limit := (ingest.MaxFileSize+multipartOverhead)*int64(ingest.MaxFiles) + multipartOverhead
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: request body over %d bytes", core.ErrFileTooLarge, tooLarge.Limit), 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid multipart form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	if len(headers) > ingest.MaxFiles {
		s.respondError(w, r, fmt.Errorf("%w: %d files, limit %d", errTooManyFiles, len(headers), ingest.MaxFiles), http.StatusBadRequest)
		return
	}

	files, closeAll, err := openParts(headers)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer closeAll()

	logger := logging.WithFields(r.Context(), "session", sessionID)
	logger.Info("loading files", "count", len(files))

	results, err := s.service.LoadFiles(r.Context(), sessionID, files)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		cache, err := s.service.Files(r.Context(), sessionID)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.LoadResults(resultRows(results), fileRows(cache)).Render(r.Context(), w); err != nil {
			logger.Error("render load results", "error", err)
		}
		return
	}

	resp := make([]LoadResponse, len(results))
	for i, res := range results {
		resp[i] = LoadResponse{
			File:    res.File,
			Loaded:  res.Loaded(),
			Format:  res.Format,
			Warning: res.Warning,
		}
		if res.Err != nil {
			msg := core.MapError(res.Err)
			resp[i].Error = msg.Message
			resp[i].Code = msg.Code
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": resp})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	cache, err := s.service.Files(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	files := make([]FileResponse, len(cache))
	for i, f := range cache {
		files[i] = FileResponse{Label: f.Info.Label, Format: f.Info.Format, ID: f.Info.ID}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.Payload(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	cache, err := s.service.Files(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.SessionPage(sessionID, fileRows(cache)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session page", "error", err)
	}
}

// openParts opens every uploaded part. Multipart files implement
// io.ReaderAt, so each can be read by offset without buffering.
func openParts(headers []*multipart.FileHeader) ([]core.FileHandle, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]core.FileHandle, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %s: %w", core.ErrUnreadableFile, h.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, core.NewFileHandle(h.Filename, h.Size, f))
	}
	return files, closeAll, nil
}

func fileRows(cache core.FileCache) []templates.FileRow {
	rows := make([]templates.FileRow, len(cache))
	for i, f := range cache {
		rows[i] = templates.FileRow{Label: f.Info.Label, Format: f.Info.Format, ID: f.Info.ID}
	}
	return rows
}

func resultRows(results []core.LoadResult) []templates.ResultRow {
	rows := make([]templates.ResultRow, len(results))
	for i, res := range results {
		row := templates.ResultRow{File: res.File, Format: res.Format, Status: "loaded"}
		switch {
		case res.Err != nil:
			row.Status = "failed"
			row.Message = core.FormatUserError(res.Err)
		case res.Warning != "":
			row.Status = "skipped"
			row.Message = res.Warning
		}
		rows[i] = row
	}
	return rows
}
