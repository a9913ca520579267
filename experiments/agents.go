package experiments

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/meta"
	"connect4/searcher"
	"connect4/searcher/agent"
	"fmt"
)

// NewAgent builds the agent an AgentConfig describes. Agents keep search
// state between moves, so every game gets its own.
func NewAgent(config metrics.AgentConfig) (agent.Agent, error) {
	var params *game.EvaluationConfig
	if config.ParamsPath != "" {
		loaded, err := game.LoadConfig(config.ParamsPath)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", config.ID, err)
		}
		params = &loaded
	}

	depth := config.Depth
	if depth <= 0 {
		depth = meta.DefaultSearchDepth
	}

	switch config.Kind {
	case "minimax":
		return agent.NewMinimaxAgent(depth, params), nil
	case "heuristic":
		return agent.NewHeuristicAgent(params), nil
	case "mcts":
		return agent.NewEvaluationAgent(createMCTS(config)), nil
	case "random":
		return agent.NewRandomAgent(config.Seed), nil
	case "remote":
		if config.URL == "" {
			return nil, fmt.Errorf("agent %d: remote agent needs a url", config.ID)
		}
		return agent.NewRemoteAgent(config.URL, config.Depth), nil
	default:
		return nil, fmt.Errorf("agent %d: unknown kind %q", config.ID, config.Kind)
	}
}

func createMCTS(config metrics.AgentConfig) *searcher.MCTS {
	options := []searcher.Option{}

	if config.Episodes > 0 {
		options = append(options, searcher.WithEpisodes(config.Episodes))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.Episodes <= 0 && config.Duration <= 0 {
		options = append(options, searcher.WithEpisodes(meta.EPISODES))
	}
	if config.Cutoff > 0 {
		options = append(options, searcher.WithCutoff(config.Cutoff))
	}
	if config.Seed > 0 {
		options = append(options, searcher.WithSeed(config.Seed))
	}

	goroutines := config.Goroutines
	if goroutines <= 0 {
		goroutines = meta.GO_ROUTINES
	}

	options = append(options, searcher.WithMetrics())
	return searcher.NewMCTS(goroutines, options...)
}

// withSeed offsets a non-zero seed per game so repeated games differ while
// a run stays reproducible.
func withSeed(config metrics.AgentConfig, game int) metrics.AgentConfig {
	if config.Seed != 0 {
		config.Seed += uint64(game)
	}
	return config
}
