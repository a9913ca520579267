package experiments

import (
	"connect4/config"
	"connect4/engine"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher/agent"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	eliteMutationRate     = 0.15
	eliteMutationStrength = 0.5
	staleWarnGenerations  = 5
)

type EvolutionResult struct {
	Best        game.EvaluationConfig
	BestFitness float64
	Validation  float64 // win rate of Best against the default weights
	Generations []metrics.GenerationRecord
	Dir         string
}

type evolution struct {
	cfg  config.EvolutionConfig
	rand *rand.Rand
}

// RunEvolution evolves evaluation weights. Every candidate of a generation
// is scored by playing the best weights of the previous generation.
func RunEvolution(ctx context.Context, cfg config.EvolutionConfig) (EvolutionResult, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	e := &evolution{cfg: cfg, rand: rand.New(rand.NewSource(seed))}

	log.Info().Msgf("starting evolution: population %d, %d generations, %d games per evaluation at depth %d",
		cfg.Population, cfg.Generations, cfg.GamesPerEval, cfg.Depth)

	population := e.initialPopulation()
	best := game.DefaultConfig()
	previousBest := best
	bestFitness := 0.0
	stale := 0
	var records []metrics.GenerationRecord

	for generation := 0; generation < cfg.Generations; generation++ {
		start := time.Now()
		fitness, err := e.evaluate(ctx, population, previousBest)
		if err != nil {
			return EvolutionResult{}, err
		}

		bestIdx := argmax(fitness)
		if perfect := perfectIndices(fitness); len(perfect) > 1 {
			if bestIdx, err = e.breakTie(ctx, population, perfect); err != nil {
				return EvolutionResult{}, err
			}
		}

		if fitness[bestIdx] > bestFitness {
			bestFitness = fitness[bestIdx]
			best = population[bestIdx]
			stale = 0
			log.Info().Msgf("generation %d: new best fitness %.3f", generation+1, bestFitness)
		} else {
			stale++
			if stale%staleWarnGenerations == 0 {
				log.Warn().Msgf("generation %d: no improvement for %d generations", generation+1, stale)
			}
		}

		avg := 0.0
		for _, f := range fitness {
			avg += f
		}
		avg /= float64(len(fitness))
		records = append(records, metrics.GenerationRecord{
			Generation:  generation + 1,
			BestFitness: fitness[bestIdx],
			AvgFitness:  avg,
			Best:        best,
		})
		log.Info().Msgf("generation %d of %d done in %s: best %.3f avg %.3f",
			generation+1, cfg.Generations, time.Since(start).Round(time.Millisecond), fitness[bestIdx], avg)

		population = e.nextGeneration(population, fitness)
		previousBest = best
	}

	validation, err := e.fitness(ctx, best, game.DefaultConfig(), cfg.ValidationGames, e.rand.Uint64())
	if err != nil {
		return EvolutionResult{}, err
	}
	log.Info().Msgf("validation against default weights: %.3f", validation)

	result := EvolutionResult{
		Best:        best,
		BestFitness: bestFitness,
		Validation:  validation,
		Generations: records,
	}
	return result, e.save(&result)
}

// initialPopulation seeds the defaults, five extreme and five
// centre-heavy variants, then fills up with random weights.
func (e *evolution) initialPopulation() []game.EvaluationConfig {
	population := []game.EvaluationConfig{game.DefaultConfig()}

	for i := 0; i < 5; i++ {
		c := game.DefaultConfig()
		c.WinScore = 5000 + i*2000
		c.LossScore = -15000 + i*2000
		c.CenterColumnValue = 50 + i*30
		c.ThreatWeight = 0.5 + float64(i)*0.5
		c.CenterControlWeight = float64(i)
		population = append(population, c)
	}

	for i := 0; i < 5; i++ {
		c := game.DefaultConfig()
		c.CenterColumnValue = 200 + i*20
		c.AdjacentCenterValue = 150 + i*15
		c.OuterColumnValue = 30 + i*5
		c.DefensiveWeight = 3.0 + float64(i)*0.5
		c.MobilityWeight = float64(i) * 0.8
		population = append(population, c)
	}

	for len(population) < e.cfg.Population {
		population = append(population, game.RandomConfig(e.rand))
	}
	return population[:e.cfg.Population]
}

func (e *evolution) evaluate(ctx context.Context, population []game.EvaluationConfig, opponent game.EvaluationConfig) ([]float64, error) {
	fitness := make([]float64, len(population))
	seeds := make([]uint64, len(population))
	for i := range seeds {
		seeds[i] = e.rand.Uint64()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Concurrency, 1))
	for i, candidate := range population {
		g.Go(func() error {
			f, err := e.fitness(ctx, candidate, opponent, e.cfg.GamesPerEval, seeds[i])
			if err != nil {
				return err
			}
			fitness[i] = f
			log.Debug().Msgf("candidate %d of %d: fitness %.3f", i+1, len(population), f)
			return nil
		})
	}
	return fitness, g.Wait()
}

// fitness is the share of games candidate wins against opponent. Sides are
// drawn at random per game.
func (e *evolution) fitness(ctx context.Context, candidate, opponent game.EvaluationConfig, games int, seed uint64) (float64, error) {
	if games <= 0 {
		return 0, nil
	}
	r := rand.New(rand.NewSource(seed))
	wins := 0
	for i := 0; i < games; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if duel(candidate, opponent, r.Intn(2) == 1, e.cfg.Depth) {
			wins++
		}
	}
	return float64(wins) / float64(games), nil
}

// duel plays one minimax game and reports whether candidate earned the
// point. A drawn game still counts when both weight sets judge the final
// position to favour the candidate's side.
func duel(candidate, opponent game.EvaluationConfig, candidateIsPlayer2 bool, depth int) bool {
	p1, p2 := candidate, opponent
	side := game.Player1
	if candidateIsPlayer2 {
		p1, p2 = opponent, candidate
		side = game.Player2
	}

	agents := [2]agent.Agent{agent.NewMinimaxAgent(depth, &p1), agent.NewMinimaxAgent(depth, &p2)}
	e := engine.LocalEngine(agents, game.Player1, candidate)
	winner, _, _ := e.Run()
	if winner != game.NoPlayer {
		return winner == side
	}

	final := e.State().Copy()
	final.Config = candidate
	candidateEval := game.Evaluate(final)
	final.Config = opponent
	opponentEval := game.Evaluate(final)
	if side == game.Player2 {
		return candidateEval < 0 && opponentEval < 0
	}
	return candidateEval > 0 && opponentEval > 0
}

// breakTie ranks candidates that all scored perfectly by a round robin
// among themselves.
func (e *evolution) breakTie(ctx context.Context, population []game.EvaluationConfig, perfect []int) (int, error) {
	gamesPerPair := max(2, e.cfg.GamesPerEval/len(perfect))
	log.Info().Msgf("%d perfect candidates, breaking the tie with %d games per pairing", len(perfect), gamesPerPair)

	bestIdx, bestScore := perfect[0], -1.0
	for _, i := range perfect {
		total := 0.0
		for _, j := range perfect {
			if i == j {
				continue
			}
			f, err := e.fitness(ctx, population[i], population[j], gamesPerPair, e.rand.Uint64())
			if err != nil {
				return 0, err
			}
			total += f
		}
		score := total / float64(len(perfect)-1)
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return bestIdx, nil
}

// nextGeneration keeps lightly mutated elites and fills the rest by
// tournament selection, crossover and mutation.
func (e *evolution) nextGeneration(population []game.EvaluationConfig, fitness []float64) []game.EvaluationConfig {
	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fitness[order[a]] > fitness[order[b]] })

	eliteCount := int(float64(len(population)) * e.cfg.EliteRatio)
	next := make([]game.EvaluationConfig, 0, len(population))
	for _, i := range order[:eliteCount] {
		next = append(next, population[i].Mutate(e.rand, eliteMutationRate, eliteMutationStrength))
	}

	for len(next) < len(population) {
		selected := population[e.tournament(fitness)]
		if e.rand.Float64() < e.cfg.CrossoverRate {
			selected = selected.Crossover(e.rand, population[e.rand.Intn(len(population))], e.cfg.CrossoverRate)
		}
		next = append(next, selected.Mutate(e.rand, e.cfg.MutationRate, e.cfg.MutationStrength))
	}
	return next
}

func (e *evolution) tournament(fitness []float64) int {
	winner := e.rand.Intn(len(fitness))
	for k := 1; k < e.cfg.TournamentSize; k++ {
		if idx := e.rand.Intn(len(fitness)); fitness[idx] > fitness[winner] {
			winner = idx
		}
	}
	return winner
}

func (e *evolution) save(result *EvolutionResult) error {
	if e.cfg.Output != "" {
		writer, err := metrics.NewWriter(e.cfg.Output, "evolution")
		if err != nil {
			return fmt.Errorf("failed to create experiment writer: %w", err)
		}
		result.Dir = writer.Dir()
		if err := writer.WriteGenerations(result.Generations); err != nil {
			return fmt.Errorf("failed to write generations: %w", err)
		}
		if err := result.Best.Save(filepath.Join(writer.Dir(), "best_params.json")); err != nil {
			return err
		}
		log.Info().Msgf("stored generations in %s", writer.Dir())
	}
	if e.cfg.BestParams != "" {
		if err := result.Best.Save(e.cfg.BestParams); err != nil {
			return err
		}
		log.Info().Msgf("stored best weights in %s", e.cfg.BestParams)
	}
	return nil
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func perfectIndices(fitness []float64) []int {
	var perfect []int
	for i, f := range fitness {
		if f >= 1.0 {
			perfect = append(perfect, i)
		}
	}
	return perfect
}
