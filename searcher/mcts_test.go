package searcher

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func sum(policy map[int]float64) float64 {
	total := 0.0
	for _, visits := range policy {
		total += visits
	}
	return total
}

func TestNewMCTS(t *testing.T) {
	t.Run("panics without a budget", func(t *testing.T) {
		require.Panics(t, func() { NewMCTS(1) }, "Should require episodes or a duration")
	})

	t.Run("ignores invalid options", func(t *testing.T) {
		m := NewMCTS(0, WithEpisodes(10), WithCutoff(-1), WithExploration(0), WithEvaluationFn(nil))
		require.Equal(t, 1, m.Goroutines())
		require.Equal(t, MaxCutoff, m.cutoff)
		require.Equal(t, CSquared, m.cSquared)
		require.NotNil(t, m.evaluate)
	})
}

func TestSimulate(t *testing.T) {
	t.Run("every episode visits one root child", func(t *testing.T) {
		m := NewMCTS(4, WithEpisodes(200), WithSeed(1), WithMetrics())
		state := game.NewGameState(game.Player1, game.DefaultConfig())

		policy, metric := m.Simulate(state)

		require.Len(t, policy, game.Cols, "All root moves should be expanded")
		require.Equal(t, 200.0, sum(policy), "Virtual losses should all be reversed")
		require.Equal(t, 200, metric.Episodes)
		require.Equal(t, "mcts", metric.Algorithm)
		require.Equal(t, 4, metric.Goroutines)
	})

	t.Run("prefers the immediate win", func(t *testing.T) {
		m := NewMCTS(1, WithEpisodes(1500), WithSeed(3))
		state, err := game.FromMoves(game.Player1, game.DefaultConfig(), []int{0, 0, 1, 1, 2, 2})
		require.NoError(t, err)

		policy, _ := m.Simulate(state)

		require.Equal(t, 3, BestMove(policy))
	})

	t.Run("runs for a duration", func(t *testing.T) {
		m := NewMCTS(2, WithDuration(20*time.Millisecond), WithCutoff(4), WithMetrics())
		policy, metric := m.Simulate(game.NewGameState(game.Player1, game.DefaultConfig()))

		require.NotEmpty(t, policy)
		require.Positive(t, metric.Episodes)
		require.Equal(t, float64(metric.Episodes), sum(policy))
	})

	t.Run("terminal root has no policy", func(t *testing.T) {
		m := NewMCTS(1, WithEpisodes(5))
		state, err := game.FromMoves(game.Player1, game.DefaultConfig(), []int{0, 1, 0, 1, 0, 1, 0})
		require.NoError(t, err)

		policy, _ := m.Simulate(state)
		require.Empty(t, policy)
		require.Equal(t, NoMove, BestMove(policy))
	})
}

func TestRollout(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	collector := metrics.NewCollector()
	collector.Start("mcts", 1, 0)

	t.Run("terminal state returns the winner", func(t *testing.T) {
		state := mockState{player: game.Player2, moves: []int{0}, winner: game.Player1}
		player, score := rollout(state, 10, nil, collector, r)
		require.Equal(t, game.Player1, player)
		require.Equal(t, WinReward, score)
	})

	t.Run("full board is a draw", func(t *testing.T) {
		player, score := rollout(mockState{player: game.Player1}, 10, nil, collector, r)
		require.Equal(t, game.NoPlayer, player)
		require.Equal(t, DrawReward, score)
	})

	t.Run("cutoff uses the evaluation", func(t *testing.T) {
		evaluate := func(s game.State) float64 { return 0.5 }
		state := mockState{player: game.Player1, moves: []int{0, 1}}
		player, score := rollout(state, 3, evaluate, collector, r)
		require.Equal(t, game.Player2, player, "Three plies flip the mover")
		require.Equal(t, 0.5, score)
	})

	t.Run("cutoff with the position evaluator", func(t *testing.T) {
		var evaluate game.EvaluateFn = game.EvaluateNormalized
		state := game.NewGameState(game.Player1, game.DefaultConfig())
		player, score := rollout(state, 0, evaluate, collector, r)
		require.Equal(t, game.Player1, player)
		require.Zero(t, score, "Empty board is neutral")
	})

	require.Equal(t, 2, collector.Complete().FullPlayouts)
}

func TestBestMovePolicy(t *testing.T) {
	require.Equal(t, 2, BestMove(map[int]float64{1: 3, 2: 9, 5: 9}), "Ties go to the lower column")
	require.Equal(t, NoMove, BestMove(nil))
}
