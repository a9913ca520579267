package config

import (
	"connect4/experiments/metrics"
	"connect4/meta"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the file-backed configuration of every command.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Match     MatchConfig     `yaml:"match"`
	Evolution EvolutionConfig `yaml:"evolution"`
	SelfPlay  SelfPlayConfig  `yaml:"selfplay"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	DefaultDepth int           `yaml:"default_depth"`
	MaxDepth     int           `yaml:"max_depth"`
	Goroutines   int           `yaml:"goroutines"` // MCTS workers per request
	Episodes     int           `yaml:"episodes"`   // MCTS episode cap per request
}

type MatchConfig struct {
	Games       int                   `yaml:"games"`
	Concurrency int                   `yaml:"concurrency"`
	Output      string                `yaml:"output"`
	Agents      []metrics.AgentConfig `yaml:"agents"`
}

type EvolutionConfig struct {
	Population       int     `yaml:"population"`
	Generations      int     `yaml:"generations"`
	GamesPerEval     int     `yaml:"games_per_eval"`
	MutationRate     float64 `yaml:"mutation_rate"`
	MutationStrength float64 `yaml:"mutation_strength"`
	CrossoverRate    float64 `yaml:"crossover_rate"`
	EliteRatio       float64 `yaml:"elite_ratio"`
	TournamentSize   int     `yaml:"tournament_size"`
	Depth            int     `yaml:"depth"`
	ValidationGames  int     `yaml:"validation_games"`
	Concurrency      int     `yaml:"concurrency"`
	Seed             uint64  `yaml:"seed"`
	Output           string  `yaml:"output"`
	BestParams       string  `yaml:"best_params"`
}

type SelfPlayConfig struct {
	Games       int     `yaml:"games"`
	Concurrency int     `yaml:"concurrency"`
	Goroutines  int     `yaml:"goroutines"`
	Episodes    int     `yaml:"episodes"`
	Temperature float64 `yaml:"temperature"`
	Seed        uint64  `yaml:"seed"`
	Output      string  `yaml:"output"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			DefaultDepth: meta.DefaultSearchDepth,
			MaxDepth:     meta.MaxSearchDepth,
			Goroutines:   meta.GO_ROUTINES,
			Episodes:     meta.EPISODES,
		},
		Match: MatchConfig{
			Games:       100,
			Concurrency: 4,
			Output:      "results",
			Agents: []metrics.AgentConfig{
				{ID: 1, Kind: "minimax", Depth: meta.DefaultSearchDepth},
				{ID: 2, Kind: "random"},
			},
		},
		Evolution: EvolutionConfig{
			Population:       30,
			Generations:      50,
			GamesPerEval:     50,
			MutationRate:     0.6,
			MutationStrength: 2.0,
			CrossoverRate:    0.5,
			EliteRatio:       0.1,
			TournamentSize:   3,
			Depth:            meta.EvolutionSearchDepth,
			ValidationGames:  100,
			Concurrency:      4,
			Output:           "results",
			BestParams:       "best_params.json",
		},
		SelfPlay: SelfPlayConfig{
			Games:       100,
			Concurrency: 2,
			Goroutines:  meta.GO_ROUTINES,
			Episodes:    400,
			Temperature: 1.0,
			Output:      "results",
		},
	}
}

// Load overlays the YAML file at path onto the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Server.DefaultDepth < 1 || c.Server.DefaultDepth > c.Server.MaxDepth:
		return fmt.Errorf("%w: server.default_depth %d outside [1, %d]", ErrInvalid, c.Server.DefaultDepth, c.Server.MaxDepth)
	case c.Server.Goroutines < 1:
		return fmt.Errorf("%w: server.goroutines must be positive", ErrInvalid)
	case c.Server.Episodes < 1:
		return fmt.Errorf("%w: server.episodes must be positive", ErrInvalid)
	case c.Match.Games < 1 || c.Match.Concurrency < 1:
		return fmt.Errorf("%w: match.games and match.concurrency must be positive", ErrInvalid)
	case len(c.Match.Agents) != 2:
		return fmt.Errorf("%w: match needs exactly 2 agents, got %d", ErrInvalid, len(c.Match.Agents))
	case c.Evolution.Population < 2:
		return fmt.Errorf("%w: evolution.population must be at least 2", ErrInvalid)
	case c.Evolution.Generations < 1 || c.Evolution.GamesPerEval < 1:
		return fmt.Errorf("%w: evolution.generations and evolution.games_per_eval must be positive", ErrInvalid)
	case c.Evolution.TournamentSize < 1 || c.Evolution.Depth < 1:
		return fmt.Errorf("%w: evolution.tournament_size and evolution.depth must be positive", ErrInvalid)
	case c.Evolution.EliteRatio < 0 || c.Evolution.EliteRatio > 1:
		return fmt.Errorf("%w: evolution.elite_ratio must be in [0, 1]", ErrInvalid)
	case c.SelfPlay.Games < 1 || c.SelfPlay.Episodes < 1 || c.SelfPlay.Goroutines < 1:
		return fmt.Errorf("%w: selfplay games, episodes and goroutines must be positive", ErrInvalid)
	}
	for _, a := range c.Match.Agents {
		switch a.Kind {
		case "minimax", "heuristic", "mcts", "random", "remote":
		default:
			return fmt.Errorf("%w: unknown agent kind %q", ErrInvalid, a.Kind)
		}
	}
	return nil
}
