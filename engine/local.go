package engine

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/meta"
	"connect4/searcher/agent"
	"connect4/utils"
	"time"

	"github.com/rs/zerolog/log"
)

type localEngine struct {
	state  *game.GameState
	agents [2]agent.Agent // indexed by player - 1
	first  game.Player
}

// LocalEngine seats agents[0] as Player1 and agents[1] as Player2. The
// game starts with first to move and evaluates positions with cfg unless an
// agent brings its own weights.
func LocalEngine(agents [2]agent.Agent, first game.Player, cfg game.EvaluationConfig) Engine {
	if agents[0] == nil || agents[1] == nil {
		panic("need two agents")
	}
	if first != game.Player1 && first != game.Player2 {
		panic("starting player must be Player1 or Player2")
	}
	return &localEngine{
		state:  game.NewGameState(first, cfg),
		agents: agents,
		first:  first,
	}
}

// Run executes the entire game loop until a winner is found or the board
// fills up.
func (e *localEngine) Run() (game.Player, metrics.GameMetric, []metrics.MoveMetric) {
	log.Debug().Msgf("%s is starting", e.first)

	gameMetric := metrics.GameMetric{StartingPlayer: e.first, StartTime: time.Now()}
	var moveMetrics []metrics.MoveMetric

	turnCount := 1
	for !e.state.IsTerminal() && turnCount <= meta.MAX_TURNS {
		player := e.state.CurrentPlayer
		col, searchMetric := e.agents[player-1].FindMove(e.state.Copy())

		moves := e.state.ValidMoves()
		if utils.FindIndex(moves, col) == -1 {
			log.Warn().Msgf("%s returned invalid column %d => playing column %d", player, col, moves[0])
			col = moves[0]
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         turnCount,
			Player:       player,
			Column:       col,
			SearchMetric: searchMetric,
		})

		if _, err := e.state.Drop(col); err != nil {
			log.Panic().Err(err).Int("column", col).Msg("failed to play a validated move")
		}
		turnCount++
	}

	winner, _ := e.state.Winner()
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.Winner = winner
	gameMetric.TotalMoves = len(moveMetrics)

	if winner != game.NoPlayer {
		log.Debug().Msgf("game ended due to a winner: %s after %d moves", winner, gameMetric.TotalMoves)
	} else {
		log.Debug().Msgf("game ended in a draw after %d moves", gameMetric.TotalMoves)
	}
	return winner, gameMetric, moveMetrics
}

func (e *localEngine) State() *game.GameState {
	return e.state
}
