package searcher

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// MaxCutoff lets rollouts run until the board fills.
const MaxCutoff = game.BoardSize

type Option func(mcts *MCTS)

type MCTS struct {
	goroutines int
	duration   time.Duration
	episodes   int
	cutoff     int
	cSquared   float64
	seed       uint64
	evaluate   game.EvaluateFn
	root       *decision
	metrics    metrics.Collector
}

func WithDuration(duration time.Duration) Option {
	return func(u *MCTS) {
		if duration > 0 {
			u.duration = duration
		}
	}
}

func WithEpisodes(episodes int) Option {
	return func(u *MCTS) {
		if episodes > 0 {
			u.episodes = episodes
		}
	}
}

func WithCutoff(depth int) Option {
	return func(u *MCTS) {
		if depth > 0 {
			u.cutoff = depth
		}
	}
}

func WithEvaluationFn(evaluate game.EvaluateFn) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

func WithExploration(cSquared float64) Option {
	return func(m *MCTS) {
		if cSquared > 0 {
			m.cSquared = cSquared
		}
	}
}

// WithSeed makes rollouts reproducible for a single goroutine. Each worker
// derives its own stream from the seed.
func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(goroutines int, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		goroutines: goroutines,
		cutoff:     MaxCutoff,
		cSquared:   CSquared,
		evaluate:   game.EvaluateNormalized,
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.goroutines < 1 {
		m.goroutines = 1
	}
	if m.episodes <= 0 && m.duration <= 0 {
		panic("Must specify search episodes or duration")
	}
	return m
}

func (m *MCTS) Goroutines() int {
	return m.goroutines
}

// Simulate grows a fresh tree from state and returns the visit count of
// every explored root move.
func (m *MCTS) Simulate(state game.State) (map[int]float64, metrics.SearchMetric) {
	m.root = newDecision(nil, state)

	m.metrics.Start("mcts", m.goroutines, m.cutoff)
	if m.episodes > 0 {
		m.iterate(state)
	} else {
		m.countdown(state)
	}
	metric := m.metrics.Complete()

	return m.root.Policy(), metric
}

func (m *MCTS) newRand(worker int) *rand.Rand {
	seed := m.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed + uint64(worker)))
}

func (m *MCTS) iterate(state game.State) {
	task := make(chan any, m.episodes)
	for i := 0; i < m.episodes; i++ {
		task <- nil
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(r *rand.Rand) {
			defer wg.Done()

			for range task {
				m.simulate(state, r)
				m.metrics.AddEpisode()
			}
		}(m.newRand(i))
	}

	wg.Wait()
}

func (m *MCTS) countdown(state game.State) {
	done := make(chan any)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(r *rand.Rand) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					m.simulate(state, r)
					m.metrics.AddEpisode()
				}
			}
		}(m.newRand(i))
	}

	<-time.After(m.duration)
	close(done)
	wg.Wait()
}

func (m *MCTS) simulate(state game.State, r *rand.Rand) {
	newNode, newState := selectThenExpand(m.root, state, m.cSquared)
	player, score := rollout(newState, m.cutoff, m.evaluate, m.metrics, r)
	backup(newNode, player, score)
}

func selectThenExpand(root *decision, state game.State, cSquared float64) (*decision, game.State) {
	parent := root
	child, state, expanded := parent.SelectOrExpand(state, cSquared)
	for !expanded && child != parent {
		parent = child
		child, state, expanded = parent.SelectOrExpand(state, cSquared)
	}
	return child, state
}

// rollout plays random moves until the game ends or cutoff moves were made.
// It returns the player the score is relative to.
func rollout(state game.State, cutoff int, evaluate game.EvaluateFn, metrics metrics.Collector, r *rand.Rand) (game.Player, float64) {
	depth := 0
	for {
		if winner, ok := state.Winner(); ok {
			metrics.AddFullPlayout()
			return winner, WinReward
		}
		moves := state.ValidMoves()
		if len(moves) == 0 { // Draw
			metrics.AddFullPlayout()
			return game.NoPlayer, DrawReward
		}
		if depth >= cutoff {
			break
		}
		state = state.Play(moves[r.Intn(len(moves))]) // Random rollout policy
		depth++
	}

	// At cutoff state, return an evaluation score from current player's perspective
	return state.Player(), evaluate(state)
}

func backup(newNode *decision, player game.Player, score float64) {
	node := newNode
	for node != nil {
		node = node.Backup(player, score)
	}
}

// BestMove returns the most visited column, preferring the lowest column on
// ties, or NoMove for an empty policy.
func BestMove(policy map[int]float64) int {
	best := NoMove
	maxVisits := -1.0
	for col := 0; col < game.Cols; col++ {
		if visits, ok := policy[col]; ok && visits > maxVisits {
			maxVisits = visits
			best = col
		}
	}
	return best
}
