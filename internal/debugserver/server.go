// Package debugserver exposes frame statistics and scene summaries over
// HTTP. Handlers only read profiler snapshots and summaries taken at load
// time; they never touch GPU state.
package debugserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ship-renderer/internal/profiling"
	"ship-renderer/internal/scene"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var spewConfig = &spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true, SortKeys: true}

type Server struct {
	prof   *profiling.Profiler
	scenes map[string]scene.Summary
	log    *zap.Logger
	srv    *http.Server
	addr   net.Addr
}

func New(prof *profiling.Profiler, scenes map[string]scene.Summary, log *zap.Logger) *Server {
	return &Server{prof: prof, scenes: scenes, log: log}
}

// Handler returns the routed handler with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)
	r.HandleFunc("/frame/top/{n:[0-9]+}", s.handleTop).Methods(http.MethodGet)
	r.HandleFunc("/scenes", s.handleScenes).Methods(http.MethodGet)
	r.HandleFunc("/scenes/{name:.+}/dump", s.handleDump).Methods(http.MethodGet)
	r.HandleFunc("/scenes/{name:.+}", s.handleScene).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.LoggingHandler(zap.NewStdLog(s.log.Named("http")).Writer(), h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return h
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "debug server")
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("debug server stopped", zap.Error(err))
		}
	}()
	s.log.Info("debug server listening", zap.Stringer("addr", s.addr))
	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type frameJSON struct {
	Index      uint64             `json:"index"`
	DurationMs float64            `json:"duration_ms"`
	TimingsMs  map[string]float64 `json:"timings_ms"`
	Counters   map[string]int     `json:"counters"`
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.prof.Last()
	out := frameJSON{
		Index:      f.Index,
		DurationMs: ms(f.Duration),
		TimingsMs:  make(map[string]float64, len(f.Timings)),
		Counters:   f.Counters,
	}
	for k, v := range f.Timings {
		out.TimingsMs[k] = ms(v)
	}
	writeJSON(w, out)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.prof.TopN(n) + "\n"))
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.scenes))
	for name := range s.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, names)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) (scene.Summary, bool) {
	name := mux.Vars(r)["name"]
	sum, ok := s.scenes[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no scene %q", name))
	}
	return sum, ok
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summary(w, r); ok {
		writeJSON(w, sum)
	}
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summary(w, r); ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		spewConfig.Fdump(w, sum)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(data)
}
