package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/dag"
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

const maxBodyBytes = 1 << 20

type AppServer struct {
	db        *sql.DB // optional; nil keeps patterns in memory only
	automaton *dag.Automaton
	cfg       ir.Config
	mu        sync.RWMutex // protects automaton swap
}

// NewAppServer giữ a làm automaton hiện tại; a == nil thì bắt đầu với tập rỗng theo cfg.
func NewAppServer(db *sql.DB, a *dag.Automaton, cfg ir.Config) (*AppServer, error) {
	if a == nil {
		var err error
		if a, err = dag.New(nil, cfg); err != nil {
			return nil, err
		}
	}
	return &AppServer{db: db, automaton: a, cfg: a.Config()}, nil
}

// Router returns the HTTP handler with access logging.
func (s *AppServer) Router() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return handlers.LoggingHandler(log.Writer(), r)
}

// RegisterRoutes wires HTTP handlers.
func (s *AppServer) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/patterns", s.handleListPatterns).Methods(http.MethodGet)
	api.HandleFunc("/patterns", s.handleReplacePatterns).Methods(http.MethodPost)
	api.HandleFunc("/match", s.handleMatch).Methods(http.MethodPost)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/batch", s.handleBatch).Methods(http.MethodPost)
}

func (s *AppServer) currentAutomaton() *dag.Automaton {
	s.mu.RLock(); defer s.mu.RUnlock()
	return s.automaton
}

// swapAutomaton cũng ghi nhận config của a để các lần nạp lại sau dùng cùng config.
func (s *AppServer) swapAutomaton(a *dag.Automaton) {
	s.mu.Lock(); s.automaton = a; s.cfg = a.Config(); s.mu.Unlock()
}

func (s *AppServer) config() ir.Config {
	s.mu.RLock(); defer s.mu.RUnlock()
	return s.cfg
}

// ---- Handlers ----

func (s *AppServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *AppServer) handleStats(w http.ResponseWriter, r *http.Request) {
	type statsResp struct {
		PatternCount      int               `json:"pattern_count"`
		PrefilterPatterns int               `json:"prefilter_patterns"`
		Policy            ir.MatchPolicy    `json:"match_policy"`
		Graph             dag.DagStatistics `json:"graph"`
	}
	a := s.currentAutomaton()
	writeJSON(w, http.StatusOK, statsResp{
		PatternCount:      a.PatternCount(),
		PrefilterPatterns: a.PrefilterPatternCount(),
		Policy:            a.Config().Policy,
		Graph:             a.GetStatistics(),
	})
}

func (s *AppServer) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	ps := s.currentAutomaton().Patterns()
	if ps == nil {
		ps = []ir.Pattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": ps})
}

// handleReplacePatterns compiles the posted set, persists it and swaps the automaton.
// POST body: { "patterns": [{"name":..., "kind":"literal|regex", "text":...}], "config": {...} }
func (s *AppServer) handleReplacePatterns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Patterns []ir.Pattern `json:"patterns"`
		Config   *ir.Config   `json:"config"`
	}
	if err := decodeBody(w, r, &req); err != nil { writeErr(w, http.StatusBadRequest, err); return }

	cfg := s.config()
	if req.Config != nil {
		cfg = *req.Config
	}
	ps := ir.NumberPatterns(req.Patterns)
	a, err := dag.New(ps, cfg)
	if err != nil {
		var pce *matcher.PatternCompileError
		if errors.As(err, &pce) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "index": pce.Index})
			return
		}
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if s.db != nil {
		if err := s.ReplacePatterns(r.Context(), ps); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ErrDuplicatePatternID) {
				code = http.StatusConflict
			}
			writeErr(w, code, err)
			return
		}
	}
	s.swapAutomaton(a)
	log.Printf("patterns replaced: patterns=%d nodes=%d edges=%d", a.PatternCount(), a.NodeCount(), a.EdgeCount())
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "patterns": a.PatternCount(), "nodes": a.NodeCount()})
}

type matchStep struct {
	Offset  int             `json:"offset"`
	Char    string          `json:"char"`
	Outcome dag.StepOutcome `json:"outcome"`
}

type matchHit struct {
	Offset int `json:"offset"`
	dag.Match
}

// handleMatch streams the posted text through a fresh traversal.
func (s *AppServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Steps bool   `json:"steps"`
	}
	if err := decodeBody(w, r, &req); err != nil { writeErr(w, http.StatusBadRequest, err); return }

	a := s.currentAutomaton()
	hits := []matchHit{}
	var steps []matchStep
	noMatch := 0
	err := dag.Run(r.Context(), a, strings.NewReader(req.Text), func(off int, c rune, res dag.StepResult) error {
		if req.Steps {
			ch := string(c)
			if c == dag.EOF {
				ch = ""
			}
			steps = append(steps, matchStep{Offset: off, Char: ch, Outcome: res.Outcome})
		}
		if res.Outcome == dag.NoMatch {
			noMatch++
		}
		for _, m := range res.Matches {
			hits = append(hits, matchHit{Offset: off, Match: m})
		}
		return nil
	})
	if err != nil { writeErr(w, http.StatusRequestTimeout, err); return }

	resp := map[string]any{"matched": len(hits), "no_match": noMatch, "matches": hits}
	if req.Steps {
		resp["steps"] = steps
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *AppServer) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct{ Text string `json:"text"` }
	if err := decodeBody(w, r, &req); err != nil { writeErr(w, http.StatusBadRequest, err); return }

	a := s.currentAutomaton()
	if !a.Config().EnablePrefilter {
		writeErr(w, http.StatusConflict, errors.New("literal prefilter is disabled"))
		return
	}
	ms, complete := a.ScanLiterals(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{"matches": ms, "complete": complete})
}

// handleBatch chạy nhiều văn bản song song, mỗi văn bản một traversal.
func (s *AppServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts   []string `json:"texts"`
		Workers int      `json:"workers"`
	}
	if err := decodeBody(w, r, &req); err != nil { writeErr(w, http.StatusBadRequest, err); return }

	res, err := dag.NewBatchProcessor(s.currentAutomaton(), req.Workers).ProcessBatch(r.Context(), req.Texts)
	if err != nil { writeErr(w, http.StatusRequestTimeout, err); return }
	log.Printf("batch processed: texts=%d patterns_hit=%d took=%s", res.ProcessedTexts, len(res.MatchedPatterns), res.ProcessingTime)
	writeJSON(w, http.StatusOK, res)
}

// ---- Helpers ----

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON error: %v", err)
	}
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
