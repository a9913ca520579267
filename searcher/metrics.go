package searcher

import (
	"connect4/experiments/metrics"
	"time"
)

// Metric reports the last BestMove call in the shape shared with MCTS.
func (m *Minimax) Metric(depth int, elapsed time.Duration) metrics.SearchMetric {
	return metrics.SearchMetric{
		Algorithm:      "minimax",
		Goroutines:     1,
		Depth:          depth,
		Duration:       elapsed,
		NodesEvaluated: m.stats.NodesEvaluated,
		CacheHits:      m.stats.CacheHits,
		CacheSize:      m.cache.Size(),
	}
}

func (h *Heuristic) Metric(elapsed time.Duration) metrics.SearchMetric {
	return metrics.SearchMetric{
		Algorithm:      "heuristic",
		Goroutines:     1,
		Depth:          1,
		Duration:       elapsed,
		NodesEvaluated: h.nodesEvaluated,
	}
}
