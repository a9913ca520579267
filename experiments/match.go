package experiments

import (
	"connect4/config"
	"connect4/engine"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher/agent"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MatchResult tallies a match from the point of view of the two configured
// agents, whichever side they played.
type MatchResult struct {
	Games int
	Wins  [2]int
	Draws int
	Dir   string // empty when nothing was written
}

type gameResult struct {
	id          int
	swapped     bool // agent 1 played Player1
	record      metrics.GameRecord
	moveMetrics []metrics.MoveMetric
}

// RunMatch plays cfg.Games games between the two configured agents,
// swapping sides every game. Results are written as CSV under cfg.Output
// unless it is empty.
func RunMatch(ctx context.Context, name string, cfg config.MatchConfig) (MatchResult, error) {
	if len(cfg.Agents) != 2 {
		return MatchResult{}, fmt.Errorf("match needs 2 agents, got %d", len(cfg.Agents))
	}
	// Fail fast on configs that cannot build an agent.
	for _, c := range cfg.Agents {
		if _, err := NewAgent(c); err != nil {
			return MatchResult{}, err
		}
	}

	log.Info().Msgf("starting %s match of %d games between agent %d (%s) and agent %d (%s)...",
		name, cfg.Games, cfg.Agents[0].ID, cfg.Agents[0].Kind, cfg.Agents[1].ID, cfg.Agents[1].Kind)

	g, ctx := errgroup.WithContext(ctx)

	gameIDs := make(chan int)
	results := make(chan gameResult)

	g.Go(func() error {
		defer close(gameIDs)
		for id := 1; id <= cfg.Games; id++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case gameIDs <- id:
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < max(cfg.Concurrency, 1); i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for id := range gameIDs {
				res, err := playMatchGame(cfg.Agents, id)
				if err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case results <- res:
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})

	result := MatchResult{}
	gameRecords := make([]metrics.GameRecord, cfg.Games)
	moveRecords := make([][]metrics.MoveRecord, cfg.Games)
	for res := range results {
		result.Games++
		switch res.record.Winner {
		case game.NoPlayer:
			result.Draws++
		case game.Player1:
			result.Wins[seat(res.swapped, 0)]++
		case game.Player2:
			result.Wins[seat(res.swapped, 1)]++
		}
		gameRecords[res.id-1] = res.record
		for _, mm := range res.moveMetrics {
			moveRecords[res.id-1] = append(moveRecords[res.id-1], metrics.MoveRecord{Game: res.id, MoveMetric: mm})
		}
		log.Debug().Msgf("completed game %d of %d with winner: %s", res.id, cfg.Games, res.record.Winner)
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	log.Info().Msgf("completed %s match: agent %d won %d, agent %d won %d, %d draws",
		name, cfg.Agents[0].ID, result.Wins[0], cfg.Agents[1].ID, result.Wins[1], result.Draws)

	if cfg.Output == "" {
		return result, nil
	}
	var flat []metrics.MoveRecord
	for _, records := range moveRecords {
		flat = append(flat, records...)
	}
	dir, err := writeMatch(cfg.Output, name, cfg.Agents, gameRecords, flat)
	result.Dir = dir
	return result, err
}

// playMatchGame seats agent 0 as Player1 in odd games and as Player2 in
// even ones. Player1 always moves first.
func playMatchGame(configs []metrics.AgentConfig, id int) (gameResult, error) {
	first, second := configs[0], configs[1]
	swapped := id%2 == 0
	if swapped {
		first, second = second, first
	}

	var agents [2]agent.Agent
	for i, c := range []metrics.AgentConfig{first, second} {
		a, err := NewAgent(withSeed(c, id))
		if err != nil {
			return gameResult{}, err
		}
		agents[i] = a
	}

	_, gameMetric, moveMetrics := engine.LocalEngine(agents, game.Player1, game.DefaultConfig()).Run()
	return gameResult{
		id:      id,
		swapped: swapped,
		record: metrics.GameRecord{
			ID:         id,
			Agent1:     first.ID,
			Agent2:     second.ID,
			GameMetric: gameMetric,
		},
		moveMetrics: moveMetrics,
	}, nil
}

// seat maps a player index to the configured agent sitting there.
func seat(swapped bool, player int) int {
	if swapped {
		return 1 - player
	}
	return player
}

func writeMatch(root, name string, configs []metrics.AgentConfig, games []metrics.GameRecord, moves []metrics.MoveRecord) (string, error) {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}

	if err := writer.WriteAgentConfigs(configs); err != nil {
		return writer.Dir(), fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(games); err != nil {
		return writer.Dir(), fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(moves); err != nil {
		return writer.Dir(), fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msg("stored move records")
	return writer.Dir(), nil
}
