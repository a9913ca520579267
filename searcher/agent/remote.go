package agent

import (
	"bytes"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type remoteAgent struct {
	url    string
	depth  int
	client *http.Client
}

type remoteRequest struct {
	Board         [][]string             `json:"board"`
	CurrentPlayer string                 `json:"current_player"`
	Depth         int                    `json:"depth,omitempty"`
	Params        *game.EvaluationConfig `json:"params,omitempty"`
}

type remoteResponse struct {
	Move        *int `json:"move"`
	Diagnostics struct {
		SearchDepth       int `json:"search_depth"`
		TranspositionHits int `json:"transposition_hits"`
		NodesEvaluated    int `json:"nodes_evaluated"`
	} `json:"diagnostics"`
}

// NewRemoteAgent asks a move server at baseURL for every move. A zero depth
// leaves the choice to the server.
func NewRemoteAgent(baseURL string, depth int) Agent {
	return &remoteAgent{
		url:    strings.TrimRight(baseURL, "/") + "/ai/move",
		depth:  depth,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// FindMove returns NoMove when the server cannot be reached or answers with
// an error; the caller decides how to recover.
func (a *remoteAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	metric := metrics.SearchMetric{Algorithm: "remote", Goroutines: 1, Depth: a.depth}
	start := time.Now()

	resp, err := a.requestMove(state)
	metric.Duration = time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("url", a.url).Msg("remote move request failed")
		return searcher.NoMove, metric
	}

	metric.Depth = resp.Diagnostics.SearchDepth
	metric.NodesEvaluated = resp.Diagnostics.NodesEvaluated
	metric.CacheHits = resp.Diagnostics.TranspositionHits
	if resp.Move == nil {
		return searcher.NoMove, metric
	}
	return *resp.Move, metric
}

func (a *remoteAgent) requestMove(state *game.GameState) (*remoteResponse, error) {
	payload := remoteRequest{
		Board:         make([][]string, game.Cols),
		CurrentPlayer: state.CurrentPlayer.String(),
		Depth:         a.depth,
		Params:        &state.Config,
	}
	for col := range state.Board {
		payload.Board[col] = make([]string, game.Rows)
		for row, cell := range state.Board[col] {
			payload.Board[col][row] = cell.String()
		}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := a.client.Post(a.url, "application/json", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
