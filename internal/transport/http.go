// Package transport exposes the collaboration operations over HTTP with
// JSON bodies, plus spreadsheet import/export endpoints for the UI layer.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hartwell/gridsync/internal/codec/xlsx"
	"github.com/hartwell/gridsync/internal/domain/collab"
	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/domain/registry"
	"github.com/hartwell/gridsync/internal/httputil"
)

const maxUploadBytes = 32 << 20

// ProjectReader provides read access to full snapshots for export.
type ProjectReader interface {
	Read(ctx context.Context, projectID string) (*project.Project, error)
}

// Server wires HTTP handlers for the collaboration API.
type Server struct {
	collab   *collab.Service
	registry *registry.Service
	reader   ProjectReader
	logger   *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(collabSvc *collab.Service, registrySvc *registry.Service, reader ProjectReader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{collab: collabSvc, registry: registrySvc, reader: reader, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", srv.handleList)
		r.Post("/", srv.handleCreate)
		r.Post("/import", srv.handleImport)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Post("/join", srv.handleJoin)
			r.Put("/", srv.handleUpdate)
			r.Get("/sync", srv.handleSync)
			r.Get("/users", srv.handleUsers)
			r.Get("/export", srv.handleExport)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	summaries, err := s.registry.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []project.Summary{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"projects": summaries,
		"total":    len(summaries),
	})
}

type createRequest struct {
	Filename string             `json:"filename"`
	Document *document.Document `json:"document"`
}

type createResponse struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Version   int64  `json:"version"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.collab.CreateProject(r.Context(), collab.CreateRequest{
		Filename: req.Filename,
		Document: req.Document,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, createResponse{
		ProjectID: result.ProjectID,
		UserID:    result.UserID,
		Version:   result.Metadata.Version,
	})
}

// handleImport creates a project from an uploaded spreadsheet file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	doc, err := xlsx.Decode(file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.collab.CreateProject(r.Context(), collab.CreateRequest{
		Filename: header.Filename,
		Document: doc,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, createResponse{
		ProjectID: result.ProjectID,
		UserID:    result.UserID,
		Version:   result.Metadata.Version,
	})
}

type joinResponse struct {
	UserID  string           `json:"user_id"`
	Project *project.Project `json:"project"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	result, err := s.collab.JoinProject(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, joinResponse{
		UserID:  result.UserID,
		Project: result.Project,
	})
}

type updateRequest struct {
	UserID          string             `json:"user_id"`
	Document        *document.Document `json:"document"`
	LastSeenVersion int64              `json:"last_seen_version"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version, err := s.collab.SubmitUpdate(r.Context(), collab.UpdateRequest{
		ProjectID:       projectID,
		UserID:          req.UserID,
		Document:        req.Document,
		LastSeenVersion: req.LastSeenVersion,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"version": version})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid since version")
			return
		}
		since = parsed
	}

	result, err := s.collab.PollSync(r.Context(), projectID, since)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	users, err := s.collab.ActiveUsers(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}

// handleExport streams the current snapshot as an xlsx download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	proj, err := s.reader.Read(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", proj.Metadata.Filename))
	if err := xlsx.Encode(proj.Document, w); err != nil {
		s.logger.Error("export failed", "project_id", projectID, "error", err)
	}
}
