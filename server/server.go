package server

import (
	"connect4/config"
	"connect4/game"
	"connect4/meta"
	"connect4/searcher"
	"connect4/utils"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps request bodies. A full board is well under 1KB.
const maxBodyBytes = 1 << 16

// Server answers move requests over HTTP. Each search runs on its own
// engine, so concurrent requests share no state.
type Server struct {
	cfg    config.ServerConfig
	router chi.Router
}

func New(cfg config.ServerConfig) *Server {
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("req_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ai", func(r chi.Router) {
		r.Post("/move", s.handleMove)
		r.Post("/heuristic", s.handleHeuristic)
		r.Post("/mcts", s.handleMCTS)
		r.Post("/evaluate", s.handleEvaluate)
	})
	r.Route("/game", func(r chi.Router) {
		r.Get("/new", s.handleNewGame)
		r.Post("/new", s.handleNewGame)
		r.Post("/move", s.handlePlay)
		r.Post("/status", s.handleStatus)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()
	log.Info().Str("addr", s.cfg.Addr).Msg("server listening")

	select {
	case <-ctx.Done():
		log.Info().Err(ctx.Err()).Msg("shutdown requested")
	case err, ok := <-serverErrCh:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// cors allows any browser origin to call the API. Preflight requests are
// answered here and never reach a handler.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "86400")
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func millis(d time.Duration) int64 {
	return max(d.Milliseconds(), 1)
}

func (s *Server) depth(requested int) int {
	if requested == 0 {
		requested = s.cfg.DefaultDepth
	}
	return utils.Clamp(requested, 1, s.cfg.MaxDepth)
}

// decodeBody reads a JSON body into v and answers the request itself when
// that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return false
	}
	return true
}

func (s *Server) decodeMove(w http.ResponseWriter, r *http.Request) (MoveRequest, *game.GameState, bool) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return req, nil, false
	}
	state, err := decodeState(req.Board, req.CurrentPlayer, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, nil, false
	}
	return req, state, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: strconv.FormatInt(time.Now().UnixMilli(), 10),
		Version:   meta.Version,
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	handlerStart := time.Now()
	req, state, ok := s.decodeMove(w, r)
	if !ok {
		return
	}
	depth := s.depth(req.Depth)
	logger := hlog.FromRequest(r)

	searchStart := time.Now()
	engine := searcher.NewMinimax()
	col, evals := engine.BestMove(state, depth)
	evaluation := game.Evaluate(state)
	elapsed := time.Since(searchStart)

	stats := engine.Stats()
	observeSearch("minimax", elapsed, stats.NodesEvaluated, stats.CacheHits)
	countShortcut(evals)

	logger.Debug().
		Str("player", state.CurrentPlayer.String()).
		Int("move", col).
		Int("evaluation", evaluation).
		Dur("elapsed", elapsed).
		Int("nodes", stats.NodesEvaluated).
		Int("cache_hits", stats.CacheHits).
		Msg("minimax move")
	for i, e := range evals[:min(3, len(evals))] {
		logger.Trace().Int("rank", i+1).Int("column", e.Column).Int("score", e.Score).Str("type", string(e.Classification)).Msg("candidate")
	}

	writeJSON(w, http.StatusOK, MoveResponse{
		Move:       movePtr(col),
		Evaluation: evaluation,
		Thinking:   thinking("depth "+strconv.Itoa(depth), col, evals, stats.NodesEvaluated, stats.CacheHits),
		Timings: Timings{
			AIMoveCalculation: millis(elapsed),
			TotalHandlerTime:  millis(time.Since(handlerStart)),
		},
		Diagnostics: Diagnostics{
			SearchDepth:       depth,
			ValidMoves:        state.ValidMoves(),
			MoveEvaluations:   encodeEvaluations(evals),
			TranspositionHits: stats.CacheHits,
			NodesEvaluated:    stats.NodesEvaluated,
		},
	})
}

func (s *Server) handleHeuristic(w http.ResponseWriter, r *http.Request) {
	handlerStart := time.Now()
	_, state, ok := s.decodeMove(w, r)
	if !ok {
		return
	}

	searchStart := time.Now()
	h := searcher.NewHeuristic()
	col, evals := h.BestMove(state)
	evaluation := game.Evaluate(state)
	elapsed := time.Since(searchStart)

	observeSearch("heuristic", elapsed, h.NodesEvaluated(), 0)
	countShortcut(evals)

	writeJSON(w, http.StatusOK, MoveResponse{
		Move:       movePtr(col),
		Evaluation: evaluation,
		Thinking:   thinking("heuristic", col, evals, h.NodesEvaluated(), 0),
		Timings: Timings{
			AIMoveCalculation: millis(elapsed),
			TotalHandlerTime:  millis(time.Since(handlerStart)),
		},
		Diagnostics: Diagnostics{
			SearchDepth:     1,
			ValidMoves:      state.ValidMoves(),
			MoveEvaluations: encodeEvaluations(evals),
			NodesEvaluated:  h.NodesEvaluated(),
		},
	})
}

func (s *Server) handleMCTS(w http.ResponseWriter, r *http.Request) {
	handlerStart := time.Now()
	req, state, ok := s.decodeMove(w, r)
	if !ok {
		return
	}
	episodes := req.Episodes
	if episodes == 0 {
		episodes = s.cfg.Episodes
	}
	episodes = utils.Clamp(episodes, 1, s.cfg.Episodes)

	searchStart := time.Now()
	mcts := searcher.NewMCTS(s.cfg.Goroutines, searcher.WithEpisodes(episodes), searcher.WithMetrics())
	policy, metric := mcts.Simulate(state)
	col := searcher.BestMove(policy)
	evaluation := game.Evaluate(state)
	elapsed := time.Since(searchStart)

	evals := make([]searcher.MoveEvaluation, 0, len(policy))
	for c, visits := range policy {
		evals = append(evals, searcher.MoveEvaluation{Column: c, Score: int(visits), Classification: searcher.Normal})
	}
	sort.Slice(evals, func(i, j int) bool {
		if evals[i].Score != evals[j].Score {
			return evals[i].Score > evals[j].Score
		}
		return evals[i].Column < evals[j].Column
	})
	observeSearch("mcts", elapsed, metric.Episodes, 0)

	writeJSON(w, http.StatusOK, MoveResponse{
		Move:       movePtr(col),
		Evaluation: evaluation,
		Thinking:   thinking("mcts "+strconv.Itoa(metric.Episodes)+" episodes", col, evals, metric.Episodes, 0),
		Timings: Timings{
			AIMoveCalculation: millis(elapsed),
			TotalHandlerTime:  millis(time.Since(handlerStart)),
		},
		Diagnostics: Diagnostics{
			ValidMoves:      state.ValidMoves(),
			MoveEvaluations: encodeEvaluations(evals),
			NodesEvaluated:  metric.Episodes,
			Episodes:        metric.Episodes,
			Policy:          policy,
		},
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	_, state, ok := s.decodeMove(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Evaluation: game.Evaluate(state),
		Normalized: game.EvaluateNormalized(state),
		Player1:    game.ComputeFeatures(state, game.Player1),
		Player2:    game.ComputeFeatures(state, game.Player2),
	})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	first := game.Player1
	if q := r.URL.Query().Get("first"); q != "" {
		p, err := game.ParsePlayer(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		first = p
	}
	writeJSON(w, http.StatusOK, encodeState(game.NewGameState(first, game.DefaultConfig())))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := decodeState(req.Board, req.CurrentPlayer, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if state.IsTerminal() {
		writeJSON(w, http.StatusOK, PlayResponse{Success: false, Error: "game is over"})
		return
	}
	if _, err := state.Drop(req.Column); err != nil {
		writeJSON(w, http.StatusOK, PlayResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, PlayResponse{Success: true, NewState: encodeState(state)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req StateDTO
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := decodeState(req.Board, req.CurrentPlayer, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := StatusResponse{
		ValidMoves: state.ValidMoves(),
		Draw:       state.IsDraw() && !state.HasWinner(),
		Terminal:   state.IsTerminal(),
	}
	if winner, ok := state.Winner(); ok {
		resp.Winner = winner.String()
	}
	if state.IsTerminal() {
		resp.ValidMoves = []int{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func countShortcut(evals []searcher.MoveEvaluation) {
	if len(evals) == 1 && evals[0].Classification != searcher.Normal {
		searchShortcutsTotal.WithLabelValues(string(evals[0].Classification)).Inc()
	}
}
