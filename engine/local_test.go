package engine

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher/agent"
	"testing"

	"github.com/stretchr/testify/require"
)

// scripted plays a fixed list of columns and records the states it saw.
type scripted struct {
	columns []int
	seen    []game.Player
}

func (s *scripted) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	s.seen = append(s.seen, state.CurrentPlayer)
	col := s.columns[0]
	s.columns = s.columns[1:]
	return col, metrics.SearchMetric{Algorithm: "scripted"}
}

func split(moves []int) (even, odd []int) {
	for i, col := range moves {
		if i%2 == 0 {
			even = append(even, col)
		} else {
			odd = append(odd, col)
		}
	}
	return even, odd
}

func TestRun(t *testing.T) {
	t.Run("player one wins", func(t *testing.T) {
		p1 := &scripted{columns: []int{0, 1, 2, 3}}
		p2 := &scripted{columns: []int{6, 6, 6}}
		e := LocalEngine([2]agent.Agent{p1, p2}, game.Player1, game.DefaultConfig())

		winner, gameMetric, moveMetrics := e.Run()
		require.Equal(t, game.Player1, winner)
		require.Equal(t, game.Player1, gameMetric.Winner)
		require.Equal(t, game.Player1, gameMetric.StartingPlayer)
		require.Equal(t, 7, gameMetric.TotalMoves)
		require.Len(t, moveMetrics, 7)
		require.Equal(t, 1, moveMetrics[0].Step)
		require.Equal(t, game.Player2, moveMetrics[1].Player)
		require.Equal(t, 3, moveMetrics[6].Column)
		require.Equal(t, "scripted", moveMetrics[6].Algorithm)
		require.False(t, gameMetric.EndTime.Before(gameMetric.StartTime))
	})

	t.Run("player two starts", func(t *testing.T) {
		p1 := &scripted{columns: []int{6, 6, 6}}
		p2 := &scripted{columns: []int{0, 1, 2, 3}}
		e := LocalEngine([2]agent.Agent{p1, p2}, game.Player2, game.DefaultConfig())

		winner, _, moveMetrics := e.Run()
		require.Equal(t, game.Player2, winner)
		require.Equal(t, game.Player2, moveMetrics[0].Player)
		require.Equal(t, []game.Player{game.Player2, game.Player2, game.Player2, game.Player2}, p2.seen)
	})

	t.Run("draw", func(t *testing.T) {
		even, odd := split([]int{0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0,
			2, 3, 2, 3, 2, 3, 3, 2, 3, 2, 3, 2,
			4, 5, 4, 5, 4, 5, 5, 4, 5, 4, 5, 4,
			6, 6, 6, 6, 6, 6})
		e := LocalEngine([2]agent.Agent{&scripted{columns: even}, &scripted{columns: odd}}, game.Player1, game.DefaultConfig())

		winner, gameMetric, _ := e.Run()
		require.Equal(t, game.NoPlayer, winner)
		require.Equal(t, game.BoardSize, gameMetric.TotalMoves)
	})

	t.Run("invalid moves fall back to the first legal column", func(t *testing.T) {
		p1 := &scripted{columns: []int{9, -1, 0, 0}}
		p2 := &scripted{columns: []int{6, 6, 6}}
		e := LocalEngine([2]agent.Agent{p1, p2}, game.Player1, game.DefaultConfig())

		winner, _, moveMetrics := e.Run()
		require.Equal(t, game.Player1, winner)
		require.Equal(t, 0, moveMetrics[0].Column)
		require.Equal(t, 0, moveMetrics[2].Column)
	})

	t.Run("search agents finish a game", func(t *testing.T) {
		e := LocalEngine([2]agent.Agent{agent.NewMinimaxAgent(2, nil), agent.NewRandomAgent(1)}, game.Player1, game.DefaultConfig())
		_, gameMetric, moveMetrics := e.Run()
		require.LessOrEqual(t, gameMetric.TotalMoves, game.BoardSize)
		require.Len(t, moveMetrics, gameMetric.TotalMoves)
	})
}

func TestLocalEnginePanics(t *testing.T) {
	require.Panics(t, func() {
		LocalEngine([2]agent.Agent{&scripted{}, nil}, game.Player1, game.DefaultConfig())
	})
	require.Panics(t, func() {
		LocalEngine([2]agent.Agent{&scripted{}, &scripted{}}, game.NoPlayer, game.DefaultConfig())
	})
}
