package experiments

import (
	"connect4/config"
	"connect4/engine"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"connect4/searcher/agent"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type SelfPlayResult struct {
	Games     int
	Positions []metrics.PositionRecord
	Dir       string
}

// recorder wraps a training agent and keeps every position it was asked
// about together with the policy it searched there.
type recorder struct {
	*agent.TrainingAgent
	game      int
	positions *[]metrics.PositionRecord
}

func (r recorder) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	col, metric := r.TrainingAgent.FindMove(state)
	*r.positions = append(*r.positions, metrics.PositionRecord{
		Game:   r.game,
		Step:   len(*r.positions) + 1,
		Board:  state.Board,
		Player: state.CurrentPlayer,
		Policy: r.LastPolicy(),
	})
	return col, metric
}

// RunSelfPlay has MCTS training agents play each other and labels every
// searched position with the final result for the side to move.
func RunSelfPlay(ctx context.Context, cfg config.SelfPlayConfig) (SelfPlayResult, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info().Msgf("starting self-play: %d games, %d episodes per move", cfg.Games, cfg.Episodes)

	perGame := make([][]metrics.PositionRecord, cfg.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i := 0; i < cfg.Games; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perGame[i] = selfPlayGame(cfg, i+1, seed+uint64(2*i))
			log.Debug().Msgf("completed self-play game %d of %d with %d positions", i+1, cfg.Games, len(perGame[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SelfPlayResult{}, err
	}

	result := SelfPlayResult{Games: cfg.Games}
	for _, positions := range perGame {
		result.Positions = append(result.Positions, positions...)
	}
	log.Info().Msgf("completed self-play with %d positions", len(result.Positions))

	if cfg.Output == "" {
		return result, nil
	}
	writer, err := metrics.NewWriter(cfg.Output, "selfplay")
	if err != nil {
		return result, fmt.Errorf("failed to create experiment writer: %w", err)
	}
	result.Dir = writer.Dir()
	if err := writer.WritePositions(result.Positions); err != nil {
		return result, fmt.Errorf("failed to write positions: %w", err)
	}
	log.Info().Msgf("stored positions in %s", writer.Dir())
	return result, nil
}

func selfPlayGame(cfg config.SelfPlayConfig, id int, seed uint64) []metrics.PositionRecord {
	var positions []metrics.PositionRecord
	var agents [2]agent.Agent
	for i := range agents {
		mcts := searcher.NewMCTS(cfg.Goroutines,
			searcher.WithEpisodes(cfg.Episodes),
			searcher.WithSeed(seed+uint64(i)),
		)
		agents[i] = recorder{
			TrainingAgent: agent.NewTrainingAgent(mcts, cfg.Temperature, seed+uint64(i)+1),
			game:          id,
			positions:     &positions,
		}
	}

	winner, _, _ := engine.LocalEngine(agents, game.Player1, game.DefaultConfig()).Run()
	for i := range positions {
		positions[i].Outcome = outcome(winner, positions[i].Player)
	}
	return positions
}

func outcome(winner, player game.Player) float64 {
	switch winner {
	case game.NoPlayer:
		return 0
	case player:
		return 1
	default:
		return -1
	}
}
