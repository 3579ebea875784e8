// Package httpapi exposes the engine over a local HTTP control surface, so
// editors, extensions or scripts can drive selection and edits without
// linking the engine in-process.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domedit"
)

// Server is the HTTP control surface for one engine.
type Server struct {
	engine *domedit.Engine
	logger *slog.Logger
	srv    *http.Server
	router chi.Router
}

// New creates the server. addr may be empty when the caller only wants the
// Handler (tests, embedding in another mux).
func New(engine *domedit.Engine, addr string, timeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/selection", s.handleSelectionList)
		r.Post("/selection", s.handleSelect)
		r.Delete("/selection", s.handleClear)
		r.Delete("/selection/{index}", s.handleRemove)
		r.Get("/selection/{index}/context", s.handleContext)
		r.Post("/picker", s.handlePicker)
		r.Post("/session", s.handleSession)
		r.Post("/session/style", s.handleStyle)
		r.Post("/session/text", s.handleText)
		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)
	})
	s.router = r

	if addr != "" {
		s.srv = &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s
}

// Handler returns the route tree for embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	if s.srv == nil {
		return fmt.Errorf("httpapi: no listen address configured")
	}
	s.logger.Info("httpapi: listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSelectionList(w http.ResponseWriter, _ *http.Request) {
	targets := s.engine.Selection()
	writeJSON(w, http.StatusOK, map[string]any{
		"targets": targets,
		"count":   len(targets),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag string `json:"tag"`
	}
	if !decode(w, r, &req) {
		return
	}
	index, err := s.engine.SelectTag(req.Tag)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": index})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.engine.ClearSelection()
	writeJSON(w, http.StatusOK, map[string]int{"count": 0})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("httpapi: bad index: %w", err))
		return
	}
	removed := s.engine.Remove(index)
	if !removed {
		writeErr(w, http.StatusNotFound, fmt.Errorf("httpapi: no selection at index %d", index))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":   true,
		"remaining": len(s.engine.Selection()),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("httpapi: bad index: %w", err))
		return
	}
	md, err := s.engine.ContextMarkdown(index)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markdown": md})
}

func (s *Server) handlePicker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Active {
		s.engine.StartPicking()
	} else {
		s.engine.StopPicking()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.engine.Picking()})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string `json:"action"`
		Indices []int  `json:"indices"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch req.Action {
	case "open":
		if err := s.engine.OpenSession(req.Indices...); err != nil {
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"open": true})
	case "apply":
		records := s.engine.ApplySession()
		writeJSON(w, http.StatusOK, map[string]any{"open": false, "committed": records})
	case "reset":
		s.engine.ResetSession()
		writeJSON(w, http.StatusOK, map[string]bool{"open": s.engine.SessionOpen()})
	case "cancel":
		s.engine.CancelSession()
		writeJSON(w, http.StatusOK, map[string]bool{"open": false})
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("httpapi: unknown action %q", req.Action))
	}
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Property string `json:"property"`
		Value    string `json:"value"`
		Label    string `json:"label"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.engine.SessionOpen() {
		writeErr(w, http.StatusConflict, fmt.Errorf("httpapi: no open session"))
		return
	}
	s.engine.SetProperty(req.Property, req.Value, req.Label)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.engine.SessionOpen() {
		writeErr(w, http.StatusConflict, fmt.Errorf("httpapi: no open session"))
		return
	}
	s.engine.SetText(req.Text, req.Label)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch req.Tier {
	case "", "step":
		writeJSON(w, http.StatusOK, map[string]bool{"done": s.engine.UndoStep()})
	case "commit":
		rec, ok := s.engine.Undo()
		writeJSON(w, http.StatusOK, map[string]any{"done": ok, "summary": rec.Summary})
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("httpapi: unknown tier %q", req.Tier))
	}
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request) {
	rec, ok := s.engine.Redo()
	writeJSON(w, http.StatusOK, map[string]any{"done": ok, "summary": rec.Summary})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("httpapi: decode request: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
