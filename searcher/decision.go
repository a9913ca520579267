package searcher

import (
	"connect4/game"
	"math"
	"sync"
)

// decision is a tree node shared by all search goroutines. Rewards are kept
// from the perspective of mover, the player whose move led here.
type decision struct {
	sync.RWMutex
	parent     *decision
	mover      game.Player
	hash       game.StateHash
	unexplored []int
	explored   []int
	children   []*decision
	rewards    float64
	visits     float64
}

func newDecision(parent *decision, state game.State) *decision {
	moves := state.ValidMoves()
	if _, ok := state.Winner(); ok {
		moves = nil
	}
	return &decision{
		parent:     parent,
		mover:      state.Player().Opponent(),
		hash:       state.Hash(),
		unexplored: moves,
		explored:   make([]int, 0, len(moves)),
		children:   make([]*decision, 0, len(moves)),
	}
}

// SelectOrExpand descends one level. It expands the next unexplored move if
// any, otherwise selects the child with the highest UCT value. Both paths
// apply a virtual loss to the returned child. Terminal nodes return
// themselves.
func (d *decision) SelectOrExpand(state game.State, cSquared float64) (*decision, game.State, bool) {
	d.Lock()
	defer d.Unlock()

	if len(d.unexplored) == 0 && len(d.children) == 0 { // Terminal node
		return d, state, false
	}

	if len(d.unexplored) > 0 { // Expandable node
		move := d.unexplored[0]
		d.unexplored = d.unexplored[1:]
		next := state.Play(move)
		child := newDecision(d, next)
		d.explored = append(d.explored, move)
		d.children = append(d.children, child)
		child.applyLoss()
		return child, next, true
	}

	// Fully expanded node
	ith := d.pickChild(cSquared)
	child := d.children[ith]
	child.applyLoss()
	return child, state.Play(d.explored[ith]), false
}

func (d *decision) pickChild(cSquared float64) int {
	// Children may be expanded before any backup reaches this node.
	policy := newUCT(cSquared, math.Max(d.visits, 1))

	maxIndex := -1
	maxScore := math.Inf(-1)
	for i, child := range d.children {
		score := child.score(policy)
		if score > maxScore {
			maxScore = score
			maxIndex = i
		}
	}
	return maxIndex
}

func (d *decision) applyLoss() {
	d.Lock()
	defer d.Unlock()

	d.rewards += LossReward
	d.visits++
}

func (d *decision) reverseLoss() {
	d.rewards -= LossReward
	d.visits--
}

func (d *decision) score(policy *uct) float64 {
	d.RLock()
	defer d.RUnlock()

	return policy.evaluate(d.rewards, d.visits)
}

// Backup records an outcome worth value to player and returns the parent.
func (d *decision) Backup(player game.Player, value float64) *decision {
	d.Lock()
	defer d.Unlock()

	if d.parent != nil { // Non-root node
		d.reverseLoss()
	}

	switch d.mover {
	case player:
		d.rewards += value
	case player.Opponent():
		d.rewards -= value
	}
	d.visits++

	return d.parent
}

func (d *decision) Visits() float64 {
	d.RLock()
	defer d.RUnlock()

	return d.visits
}

// Policy maps each explored column to its child's visit count.
func (d *decision) Policy() map[int]float64 {
	d.RLock()
	defer d.RUnlock()

	policy := make(map[int]float64, len(d.children))
	for i, child := range d.children {
		policy[d.explored[i]] = child.Visits()
	}
	return policy
}
