package metrics

import (
	"connect4/game"
	"sync/atomic"
	"time"
)

// AgentConfig describes one side of a match. Kind selects the agent; the
// remaining fields apply to the kinds that use them.
type AgentConfig struct {
	ID         int           `yaml:"id" json:"id"`
	Kind       string        `yaml:"kind" json:"kind"` // minimax, heuristic, mcts, random, remote
	Depth      int           `yaml:"depth" json:"depth"`
	Goroutines int           `yaml:"goroutines" json:"goroutines"`
	Duration   time.Duration `yaml:"duration" json:"duration"`
	Episodes   int           `yaml:"episodes" json:"episodes"`
	Cutoff     int           `yaml:"cutoff" json:"cutoff"`
	URL        string        `yaml:"url" json:"url"`
	ParamsPath string        `yaml:"params" json:"params"` // Optional JSON evaluation weights
	Seed       uint64        `yaml:"seed" json:"seed"`
}

type SearchMetric struct {
	Algorithm      string
	Goroutines     int
	Depth          int
	Duration       time.Duration
	Episodes       int
	Cutoff         int
	FullPlayouts   int
	NodesEvaluated int
	CacheHits      int
	CacheSize      int
}

type MoveMetric struct {
	Step   int
	Player game.Player
	Column int
	SearchMetric
}

type GameMetric struct {
	StartingPlayer game.Player
	Winner         game.Player // NoPlayer for a draw
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// Collector gathers statistics from concurrent search workers.
type Collector interface {
	Start(algorithm string, goroutines, cutoff int)
	AddFullPlayout()
	AddEpisode()
	Complete() SearchMetric
}

type collector struct {
	algorithm    string
	goroutines   int
	cutoff       int
	startTime    time.Time
	episodes     atomic.Int32
	fullPlayouts atomic.Int32
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(algorithm string, goroutines, cutoff int) {
	m.startTime = time.Now()
	m.algorithm = algorithm
	m.goroutines = goroutines
	m.cutoff = cutoff
	m.episodes.Store(0)
	m.fullPlayouts.Store(0)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Algorithm:    m.algorithm,
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Episodes:     int(m.episodes.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Cutoff:       m.cutoff,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(algorithm string, goroutines, cutoff int) {}
func (m *dummyCollector) AddFullPlayout()                                {}
func (m *dummyCollector) AddEpisode()                                    {}
func (m *dummyCollector) Complete() SearchMetric                         { return SearchMetric{} }
