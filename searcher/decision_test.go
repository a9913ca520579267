package searcher

import (
	"connect4/game"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

/**
Tests parallel MCTS (tree parallelization with virtual loss) on decision nodes
sequential:
- selection:
	- happy path: fully expanded node -> max UCT child + loss, child state
	- edge case: no backup yet -> still selects
	- edge case: terminal node -> same node, same state
- expansion:
	- happy path: expandable node -> new added child + loss, child state
- backup:
	- win, loss, draw and cutoff values, with and without virtual loss
concurrent: 3 race conditions
- shared expansion
- shared backup
- shared selection + backup
*/

type mockState struct {
	player game.Player
	moves  []int
	played []int
	winner game.Player
}

func (s mockState) Player() game.Player { return s.player }
func (s mockState) ValidMoves() []int   { return s.moves }
func (s mockState) Hash() game.StateHash {
	return game.StateHash(len(s.played))
}
func (s mockState) Winner() (game.Player, bool) {
	return s.winner, s.winner != game.NoPlayer
}
func (s mockState) Play(col int) game.State {
	played := append(append([]int{}, s.played...), col)
	return mockState{player: s.player.Opponent(), moves: s.moves, played: played, winner: s.winner}
}

func TestDecisionSelectOrExpand(t *testing.T) {
	t.Run("selecting fully expanded node", func(t *testing.T) {
		maxChild := &decision{mover: game.Player1, rewards: 1, visits: 1}
		otherChild := &decision{mover: game.Player1, rewards: 0, visits: 1}
		node := &decision{
			mover:    game.Player2,
			explored: []int{0, 1},
			children: []*decision{otherChild, maxChild},
			rewards:  1,
			visits:   2,
		}
		state := mockState{player: game.Player1}

		gotChild, gotState, gotExpanded := node.SelectOrExpand(state, CSquared)

		require.Equal(t, maxChild, gotChild, "Node should select child with max policy value")
		require.Equal(t, 1+LossReward, gotChild.rewards, "Child should apply a temporary loss")
		require.Equal(t, 2.0, gotChild.visits, "Child should apply a temporary loss")
		require.Equal(t, []int{1}, gotState.(mockState).played, "State should update by the move to the max policy child")
		require.False(t, gotExpanded, "Node should perform selection")
		require.Equal(t, 1.0, node.rewards, "Node stats should not change")
		require.Equal(t, 2.0, node.visits, "Node stats should not change")
	})

	t.Run("selecting before any backup reached the node", func(t *testing.T) {
		node := &decision{
			explored: []int{4},
			children: []*decision{{rewards: LossReward, visits: 1}},
		}

		require.NotPanics(t, func() {
			gotChild, _, _ := node.SelectOrExpand(mockState{player: game.Player1}, CSquared)
			require.Equal(t, node.children[0], gotChild)
		})
	})

	t.Run("expanding node with unexplored moves", func(t *testing.T) {
		node := &decision{
			unexplored: []int{1},
			explored:   []int{0},
			children:   []*decision{{rewards: 1, visits: 1}},
			visits:     1,
		}
		state := mockState{player: game.Player1, moves: []int{}}

		gotChild, gotState, gotExpanded := node.SelectOrExpand(state, CSquared)

		require.Equal(t, LossReward, gotChild.rewards, "Child should apply a temporary loss")
		require.Equal(t, 1.0, gotChild.visits, "Child should apply a temporary loss")
		require.Equal(t, game.Player1, gotChild.mover, "Child records the player who moved into it")
		require.Equal(t, node, gotChild.parent)
		require.Equal(t, 2, len(node.children), "Node should add a new child")
		require.Equal(t, []int{0, 1}, node.explored)
		require.Empty(t, node.unexplored)
		require.Equal(t, []int{1}, gotState.(mockState).played, "State should update by the move to the unexplored child")
		require.True(t, gotExpanded, "Node should perform expansion")
	})

	t.Run("won positions are terminal", func(t *testing.T) {
		node := newDecision(nil, mockState{player: game.Player2, moves: []int{0, 1}, winner: game.Player1})
		require.Empty(t, node.unexplored)
	})

	t.Run("stagnating on terminal node", func(t *testing.T) {
		node := &decision{}
		state := mockState{}

		gotChild, gotState, gotExpanded := node.SelectOrExpand(state, CSquared)

		require.Equal(t, node, gotChild, "Should return the same node")
		require.Equal(t, mockState{}, gotState, "Should return the same state")
		require.False(t, gotExpanded, "Should not select any child or expand")
	})
}

func TestDecisionBackup(t *testing.T) {
	t.Run("recording win on root node", func(t *testing.T) {
		node := &decision{mover: game.Player1}

		got := node.Backup(game.Player1, WinReward)

		require.Nil(t, got, "Should return no parent")
		require.Equal(t, WinReward, node.rewards, "Should apply a win reward")
		require.Equal(t, 1.0, node.visits, "Should add a visit")
	})

	t.Run("recording win on child node", func(t *testing.T) {
		parent := &decision{}
		node := &decision{parent: parent, mover: game.Player1, rewards: LossReward, visits: 1}

		got := node.Backup(game.Player1, WinReward)

		require.Equal(t, parent, got, "Should return the parent node")
		require.Equal(t, WinReward, node.rewards, "Should reverse virtual loss and add a win")
		require.Equal(t, 1.0, node.visits, "Should reverse virtual loss and add a visit")
	})

	t.Run("recording loss on child node", func(t *testing.T) {
		parent := &decision{}
		node := &decision{parent: parent, mover: game.Player1, rewards: LossReward, visits: 1}

		node.Backup(game.Player2, WinReward)

		require.Equal(t, LossReward, node.rewards, "Should reverse virtual loss and add a loss")
		require.Equal(t, 1.0, node.visits, "Should reverse virtual loss and add a visit")
	})

	t.Run("recording draw", func(t *testing.T) {
		node := &decision{parent: &decision{}, mover: game.Player2, rewards: LossReward, visits: 1}

		node.Backup(game.NoPlayer, DrawReward)

		require.Equal(t, 0.0, node.rewards)
		require.Equal(t, 1.0, node.visits)
	})

	t.Run("recording cutoff evaluation for the opponent", func(t *testing.T) {
		node := &decision{mover: game.Player1}

		node.Backup(game.Player2, 0.25)

		require.Equal(t, -0.25, node.rewards, "Value for the opponent is negated")
	})
}

func TestDecisionPolicy(t *testing.T) {
	node := &decision{
		explored: []int{2, 5},
		children: []*decision{{visits: 3}, {visits: 7}},
	}
	require.Equal(t, map[int]float64{2: 3, 5: 7}, node.Policy())
}

func TestDecisionRaceConditions(t *testing.T) {
	t.Run("concurrent expansion", func(t *testing.T) {
		node := &decision{
			unexplored: []int{0, 1},
			explored:   []int{},
			children:   []*decision{},
		}

		var wg sync.WaitGroup
		type result struct {
			child    *decision
			state    mockState
			expanded bool
		}
		var got [2]result

		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				state := mockState{player: game.Player1, moves: []int{}}
				gotChild, gotState, gotExpanded := node.SelectOrExpand(state, CSquared)
				got[i] = result{gotChild, gotState.(mockState), gotExpanded}
			}(i)
		}
		wg.Wait()

		require.Equal(t, 2, len(node.children), "Node should have two children")
		for i := 0; i < 2; i++ {
			require.Equal(t, LossReward, got[i].child.rewards, "Child should apply a temporary loss")
			require.Equal(t, 1.0, got[i].child.visits, "Child should apply a temporary loss")
			require.True(t, got[i].expanded, "Node should be expanded")
			require.Contains(t, []int{0, 1}, got[i].state.played[0], "Node should expand with a legal move")
		}
		require.NotEqual(t, got[0].state.played[0], got[1].state.played[0],
			"Node should expand with different moves")
	})

	t.Run("concurrent backup", func(t *testing.T) {
		parent := &decision{}
		node := &decision{
			parent:  parent,
			mover:   game.Player1,
			rewards: LossReward * 2, // 2 virtual losses
			visits:  2,
		}

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				node.Backup(game.Player1, WinReward)
			}()
		}
		wg.Wait()

		require.Equal(t, WinReward*2, node.rewards, "Node should reverse virtual losses and add two wins")
		require.Equal(t, 2.0, node.visits, "Node should reverse virtual losses and add two visits")
	})

	t.Run("concurrent selection and backup", func(t *testing.T) {
		parent := &decision{}
		node := &decision{
			parent:  parent,
			mover:   game.Player1,
			rewards: LossReward, // Virtual loss
			visits:  3,
		}
		child := &decision{parent: node, visits: 1}
		node.explored = []int{0}
		node.children = []*decision{child}
		state := mockState{player: game.Player2, moves: []int{}}

		var wg sync.WaitGroup
		wg.Add(2)

		var gotChild *decision
		var gotState game.State
		go func() {
			defer wg.Done()
			gotChild, gotState, _ = node.SelectOrExpand(state, CSquared)
		}()

		go func() {
			defer wg.Done()
			node.Backup(game.Player1, WinReward)
		}()

		wg.Wait()

		require.Equal(t, child, gotChild, "Node should select the child")
		require.Equal(t, []int{0}, gotState.(mockState).played, "State should update by the move to the child")
		require.Equal(t, LossReward, child.rewards, "Child should apply a temporary loss")
		require.Equal(t, 2.0, child.visits, "Child should apply a temporary loss")
		require.Equal(t, WinReward, node.rewards, "Node should reverse virtual loss and add a win")
		require.Equal(t, 3.0, node.visits, "Node should reverse virtual loss and add a visit")
	})
}
