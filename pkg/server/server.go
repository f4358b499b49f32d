// Package server exposes the derived console projections as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source produces projections on demand. *console.Console implements it.
type Source interface {
	Snapshot(ctx context.Context, project, runID string) (derive.Projections, error)
	MarkRead(project string, ids ...string) (int, error)
}

type Config struct {
	Addr            string
	Source          Source
	ShutdownTimeout time.Duration
}

type Server struct {
	addr            string
	source          Source
	shutdownTimeout time.Duration
}

func New(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, errors.New("missing projection source")
	}
	if cfg.Addr == "" {
		return nil, errors.New("missing listen address")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &Server{addr: cfg.Addr, source: cfg.Source, shutdownTimeout: cfg.ShutdownTimeout}, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Route("/api/projects/{project}", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/inbox", s.handleInbox)
		r.Post("/inbox/read", s.handleMarkRead)
		r.Get("/progress", s.handleProgress)
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("serving projections")

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		log.Debug().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

type graphResponse struct {
	Project string                      `json:"project"`
	Phases  []derive.PipelineGraphPhase `json:"phases"`
	Nodes   []derive.PipelineGraphNode  `json:"nodes"`
	Errors  map[string]string           `json:"errors,omitempty"`
}

type inboxResponse struct {
	Project string              `json:"project"`
	Items   []derive.InboxEntry `json:"items"`
	Unread  int                 `json:"unread"`
	Errors  map[string]string   `json:"errors,omitempty"`
}

type progressResponse struct {
	Project    string              `json:"project"`
	RunID      string              `json:"run_id,omitempty"`
	Progress   string              `json:"progress"`
	StageOrder []string            `json:"stage_order,omitempty"`
	Concern    *derive.ConcernRole `json:"concern,omitempty"`
	Errors     map[string]string   `json:"errors,omitempty"`
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

const codeInternal = "E_INTERNAL"

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request, runID string) (derive.Projections, bool) {
	p, err := s.source.Snapshot(r.Context(), chi.URLParam(r, "project"), runID)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrMalformedPayload, err)
		return derive.Projections{}, false
	}
	return p, true
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	p, ok := s.snapshot(w, r, "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{Project: p.Project, Phases: p.Phases, Nodes: p.Nodes, Errors: p.Errors})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	p, ok := s.snapshot(w, r, "")
	if !ok {
		return
	}
	items := p.Inbox
	if r.URL.Query().Get("unread") != "" {
		items = make([]derive.InboxEntry, 0, p.Unread)
		for _, e := range p.Inbox {
			if !e.Read {
				items = append(items, e)
			}
		}
	}
	writeJSON(w, http.StatusOK, inboxResponse{Project: p.Project, Items: items, Unread: p.Unread, Errors: p.Errors})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := s.snapshot(w, r, r.URL.Query().Get("run_id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Project:    p.Project,
		RunID:      p.ActiveRunID,
		Progress:   p.Progress,
		StageOrder: p.StageOrder,
		Concern:    p.Concern,
		Errors:     p.Errors,
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrMalformedPayload, errors.Wrap(err, "decode body"))
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, protocol.ErrMalformedPayload, errors.New("ids must not be empty"))
		return
	}
	n, err := s.source.MarkRead(chi.URLParam(r, "project"), req.IDs...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
