package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/graph"
	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/observability"
	"github.com/cafour/helveg-sub001/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		autostart bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve a live layout over HTTP",
		Long: `Serve a live layout over HTTP.

The graph is loaded into memory and exposed through a small JSON API for
folding, cutting and driving the layout. Metrics are published on /metrics.
With --output the graph is written back, positions included, on shutdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			g, err := c.loadGraph(args[0])
			if err != nil {
				return err
			}
			layout.Scatter(g, pipeline.DefaultSeed)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			observability.Install(observability.NewPrometheus(reg))

			engine, err := layout.NewEngine(g, cfg.LayoutOptions(c.Logger))
			if err != nil {
				return err
			}
			defer engine.Kill()

			if autostart {
				if err := engine.Start(cmd.Context(), layout.Continuous); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServer(engine, reg, c.Logger).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			if err := serve(cmd.Context(), srv); err != nil {
				return err
			}

			if output != "" {
				if err := engine.Stop(context.Background()); err != nil {
					return err
				}
				if err := graph.WriteGraphFile(g, output); err != nil {
					return err
				}
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config)")
	cmd.Flags().BoolVar(&autostart, "start", false, "start a continuous layout immediately")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph here on shutdown")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	logger := loggerFromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// =============================================================================
// Operations API
// =============================================================================

type server struct {
	engine  *layout.Engine
	metrics http.Handler
	logger  *log.Logger
}

func newServer(engine *layout.Engine, reg *prometheus.Registry, logger *log.Logger) *server {
	return &server{
		engine:  engine,
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		logger:  logger,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/roots", s.handleRoots)
	r.Route("/layout", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
	})
	r.Post("/nodes/{id}/toggle", s.handleToggle)
	r.Post("/nodes/{id}/collapse", s.handleCollapse)
	r.Post("/nodes/{id}/expand", s.handleExpand)
	r.Delete("/nodes/{id}", s.handleCut)
	r.Handle("/metrics", s.metrics)

	return r
}

// instrument reports every response to the HTTP hooks, labelled by route
// pattern rather than raw path.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"id", middleware.GetReqID(r.Context()))
	})
}

func (s *server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *server) handleRoots(w http.ResponseWriter, r *http.Request) {
	relation := r.URL.Query().Get("relation")
	if relation == "" {
		relation = s.engine.Graph.MainRelation()
	}
	if _, ok := s.engine.Graph.Relation(relation); !ok {
		s.writeError(w, herrors.New(herrors.ErrCodeRelationNotFound, "relation %q not found", relation))
		return
	}
	roots := s.engine.FindRoots(relation)
	if roots == nil {
		roots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"relation": relation, "roots": roots})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	mode, err := layout.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Start(r.Context(), mode); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.engine.Status())
}

func (s *server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.respondNode(w, id, s.engine.ToggleNode(r.Context(), id))
}

func (s *server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.respondNode(w, id, s.engine.CollapseNode(r.Context(), id, r.URL.Query().Get("relation")))
}

func (s *server) handleExpand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	shallow, err := parseBool(q.Get("shallow"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := multigraph.ExpandOptions{Shallow: shallow, Relation: q.Get("relation")}
	s.respondNode(w, id, s.engine.ExpandNode(r.Context(), id, opts))
}

func (s *server) handleCut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	transitive, err := parseBool(q.Get("transitive"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	removed, err := s.engine.Cut(r.Context(), id, multigraph.CutOptions{
		IsTransitive: transitive,
		Relation:     q.Get("relation"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *server) respondNode(w http.ResponseWriter, id string, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	n, _ := s.engine.Graph.Node(id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "collapsed": n.Collapsed, "hidden": n.Hidden})
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "invalid boolean %q", s)
	}
	return b, nil
}

// =============================================================================
// Responses
// =============================================================================

// statusFor maps an error to an HTTP status by its code.
func statusFor(err error) int {
	if herrors.IsNotFound(err) {
		return http.StatusNotFound
	}
	switch herrors.GetCode(err) {
	case herrors.ErrCodeInvalidInput, herrors.ErrCodeInvalidSettings, herrors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case herrors.ErrCodeNotTransitive:
		return http.StatusUnprocessableEntity
	case herrors.ErrCodeKilled:
		return http.StatusConflict
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{
		"error": herrors.UserMessage(err),
		"code":  string(herrors.GetCode(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
