package server

import (
	"bytes"
	"connect4/config"
	"connect4/game"
	"connect4/meta"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var drawMoves = []int{0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0,
	2, 3, 2, 3, 2, 3, 3, 2, 3, 2, 3, 2,
	4, 5, 4, 5, 4, 5, 5, 4, 5, 4, 5, 4,
	6, 6, 6, 6, 6, 6}

func testServer() *Server {
	cfg := config.Default().Server
	cfg.DefaultDepth = 3
	cfg.MaxDepth = 3
	cfg.Goroutines = 2
	cfg.Episodes = 200
	return New(cfg)
}

func stateAfter(t *testing.T, moves ...int) *game.GameState {
	t.Helper()
	gs, err := game.FromMoves(game.Player1, game.DefaultConfig(), moves)
	require.NoError(t, err)
	return gs
}

func moveRequest(t *testing.T, moves ...int) MoveRequest {
	gs := stateAfter(t, moves...)
	return MoveRequest{Board: encodeBoard(gs.Board), CurrentPlayer: gs.CurrentPlayer.String()}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, testServer(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, meta.Version, resp.Version)
	require.NotEmpty(t, resp.Timestamp)
}

func TestCORS(t *testing.T) {
	s := testServer()

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ai/move", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		require.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
		require.Zero(t, rec.Body.Len())
	})

	t.Run("no origin", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/health", nil)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMove(t *testing.T) {
	s := testServer()

	t.Run("empty board", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/ai/move", moveRequest(t))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[MoveResponse](t, rec)
		require.NotNil(t, resp.Move)
		require.Equal(t, 0, resp.Evaluation)
		require.Equal(t, 3, resp.Diagnostics.SearchDepth)
		require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, resp.Diagnostics.ValidMoves)
		require.Len(t, resp.Diagnostics.MoveEvaluations, game.Cols)
		require.Equal(t, *resp.Move, resp.Diagnostics.MoveEvaluations[0].Column)
		require.Positive(t, resp.Diagnostics.NodesEvaluated)
		require.GreaterOrEqual(t, resp.Timings.AIMoveCalculation, int64(1))
		require.GreaterOrEqual(t, resp.Timings.TotalHandlerTime, int64(1))
		require.True(t, strings.HasPrefix(resp.Thinking, "AI (depth 3) chose move"))
	})

	t.Run("immediate win", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/ai/move", moveRequest(t, 0, 6, 1, 6, 2, 5))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[MoveResponse](t, rec)
		require.NotNil(t, resp.Move)
		require.Equal(t, 3, *resp.Move)
		require.Equal(t, []MoveEvaluationDTO{{Column: 3, Score: 10000, MoveType: "win"}}, resp.Diagnostics.MoveEvaluations)
	})

	t.Run("block", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/ai/move", moveRequest(t, 1, 0, 2, 0, 6, 0))
		resp := decode[MoveResponse](t, rec)
		require.Equal(t, 0, *resp.Move)
		require.Equal(t, "block", resp.Diagnostics.MoveEvaluations[0].MoveType)
	})

	t.Run("depth is clamped", func(t *testing.T) {
		req := moveRequest(t, 3, 3)
		req.Depth = 50
		resp := decode[MoveResponse](t, do(t, s, http.MethodPost, "/ai/move", req))
		require.Equal(t, 3, resp.Diagnostics.SearchDepth)

		req.Depth = -2
		resp = decode[MoveResponse](t, do(t, s, http.MethodPost, "/ai/move", req))
		require.Equal(t, 1, resp.Diagnostics.SearchDepth)
	})

	t.Run("full board", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/ai/move", moveRequest(t, drawMoves...))
		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
		require.Equal(t, "null", string(raw["move"]))
	})

	t.Run("custom params", func(t *testing.T) {
		params := game.DefaultConfig()
		params.WinScore = 777
		params.LossScore = -777
		req := moveRequest(t, 0, 0, 1, 1, 2, 2, 3)
		req.Params = &params
		resp := decode[MoveResponse](t, do(t, s, http.MethodPost, "/ai/move", req))
		require.Equal(t, 777, resp.Evaluation)
	})
}

func TestMoveRejectsBadInput(t *testing.T) {
	valid := moveRequest(t, 3)
	s := testServer()

	shortBoard := valid
	shortBoard.Board = valid.Board[:6]

	shortColumn := moveRequest(t, 3)
	shortColumn.Board[2] = shortColumn.Board[2][:5]

	badToken := moveRequest(t, 3)
	badToken.Board[0][5] = "X"

	floating := moveRequest(t)
	floating.Board[0][0] = "Player1"

	badPlayer := moveRequest(t)
	badPlayer.CurrentPlayer = "Player3"

	tests := []struct {
		name string
		body any
	}{
		{"six columns", shortBoard},
		{"short column", shortColumn},
		{"unknown token", badToken},
		{"floating piece", floating},
		{"unknown player", badPlayer},
		{"malformed params", map[string]any{"board": valid.Board, "current_player": "Player1", "params": map[string]any{"threat_weight": "high"}}},
		{"not json", "board"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/ai/move", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestOversizedBody(t *testing.T) {
	s := testServer()
	body := `{"board":` + strings.Repeat(" ", maxBodyBytes+1) + `[]}`

	for _, path := range []string{"/ai/move", "/game/move", "/game/status"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			require.Equal(t, "payload too large", decode[errorResponse](t, rec).Error)
		})
	}
}

func TestHeuristicEndpoint(t *testing.T) {
	resp := decode[MoveResponse](t, do(t, testServer(), http.MethodPost, "/ai/heuristic", moveRequest(t, 3, 3)))
	require.NotNil(t, resp.Move)
	require.Equal(t, 1, resp.Diagnostics.SearchDepth)
	require.Equal(t, game.Cols, resp.Diagnostics.NodesEvaluated)
	require.Len(t, resp.Diagnostics.MoveEvaluations, game.Cols)
}

func TestMCTSEndpoint(t *testing.T) {
	s := testServer()

	t.Run("episodes", func(t *testing.T) {
		req := moveRequest(t, 3, 3)
		req.Episodes = 100
		resp := decode[MoveResponse](t, do(t, s, http.MethodPost, "/ai/mcts", req))
		require.NotNil(t, resp.Move)
		require.Equal(t, 100, resp.Diagnostics.Episodes)

		total := 0.0
		for _, visits := range resp.Diagnostics.Policy {
			total += visits
		}
		require.Equal(t, 100.0, total)
		require.Equal(t, *resp.Move, resp.Diagnostics.MoveEvaluations[0].Column)
	})

	t.Run("episodes are capped", func(t *testing.T) {
		req := moveRequest(t)
		req.Episodes = 1_000_000
		resp := decode[MoveResponse](t, do(t, s, http.MethodPost, "/ai/mcts", req))
		require.Equal(t, 200, resp.Diagnostics.Episodes)
	})
}

func TestEvaluateEndpoint(t *testing.T) {
	s := testServer()

	resp := decode[EvaluateResponse](t, do(t, s, http.MethodPost, "/ai/evaluate", moveRequest(t)))
	require.Zero(t, resp.Evaluation)
	require.Zero(t, resp.Normalized)

	resp = decode[EvaluateResponse](t, do(t, s, http.MethodPost, "/ai/evaluate", moveRequest(t, 3)))
	require.Positive(t, resp.Evaluation)
	require.Equal(t, 1, resp.Player1.PieceCount)
	require.Zero(t, resp.Player2.PieceCount)
	// Player2 is to move and Player1 is ahead.
	require.Negative(t, resp.Normalized)
}

func TestGameEndpoints(t *testing.T) {
	s := testServer()

	t.Run("new game", func(t *testing.T) {
		resp := decode[StateDTO](t, do(t, s, http.MethodGet, "/game/new", nil))
		require.Equal(t, "Player1", resp.CurrentPlayer)
		require.Len(t, resp.Board, game.Cols)
		for _, column := range resp.Board {
			require.Equal(t, make([]string, game.Rows), column)
		}

		resp = decode[StateDTO](t, do(t, s, http.MethodGet, "/game/new?first=Player2", nil))
		require.Equal(t, "Player2", resp.CurrentPlayer)

		rec := do(t, s, http.MethodGet, "/game/new?first=nobody", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("play", func(t *testing.T) {
		start := moveRequest(t)
		resp := decode[PlayResponse](t, do(t, s, http.MethodPost, "/game/move", PlayRequest{
			Board: start.Board, CurrentPlayer: start.CurrentPlayer, Column: 3,
		}))
		require.True(t, resp.Success)
		require.Equal(t, "Player2", resp.NewState.CurrentPlayer)
		require.Equal(t, "Player1", resp.NewState.Board[3][game.Rows-1])
	})

	t.Run("play into full column", func(t *testing.T) {
		full := moveRequest(t, 0, 0, 0, 0, 0, 0)
		resp := decode[PlayResponse](t, do(t, s, http.MethodPost, "/game/move", PlayRequest{
			Board: full.Board, CurrentPlayer: full.CurrentPlayer, Column: 0,
		}))
		require.False(t, resp.Success)
		require.Contains(t, resp.Error, "full")
		require.Nil(t, resp.NewState)
	})

	t.Run("play after a win", func(t *testing.T) {
		won := moveRequest(t, 0, 6, 1, 6, 2, 6, 3)
		resp := decode[PlayResponse](t, do(t, s, http.MethodPost, "/game/move", PlayRequest{
			Board: won.Board, CurrentPlayer: won.CurrentPlayer, Column: 5,
		}))
		require.False(t, resp.Success)
	})

	t.Run("status", func(t *testing.T) {
		open := moveRequest(t, 3)
		resp := decode[StatusResponse](t, do(t, s, http.MethodPost, "/game/status", StateDTO{open.Board, open.CurrentPlayer}))
		require.False(t, resp.Terminal)
		require.Empty(t, resp.Winner)
		require.Len(t, resp.ValidMoves, game.Cols)

		won := moveRequest(t, 0, 6, 1, 6, 2, 6, 3)
		resp = decode[StatusResponse](t, do(t, s, http.MethodPost, "/game/status", StateDTO{won.Board, won.CurrentPlayer}))
		require.True(t, resp.Terminal)
		require.Equal(t, "Player1", resp.Winner)
		require.False(t, resp.Draw)
		require.Empty(t, resp.ValidMoves)

		drawn := moveRequest(t, drawMoves...)
		resp = decode[StatusResponse](t, do(t, s, http.MethodPost, "/game/status", StateDTO{drawn.Board, drawn.CurrentPlayer}))
		require.True(t, resp.Terminal)
		require.True(t, resp.Draw)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer()
	do(t, s, http.MethodPost, "/ai/move", moveRequest(t))

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "connect4_search_nodes_total")
	require.Contains(t, rec.Body.String(), "connect4_http_requests_total")
}
