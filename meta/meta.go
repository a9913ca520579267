// meta/meta.go
package meta

// Version is reported by the health endpoint.
const Version = "0.3.0"

// DefaultSearchDepth is the minimax depth used when a request names none.
const DefaultSearchDepth = 4

// MaxSearchDepth bounds request-supplied depths.
const MaxSearchDepth = 10

// EvolutionSearchDepth is the fixed depth candidate configs play at.
const EvolutionSearchDepth = 5

// GO_ROUTINES defines the number of goroutines to use for MCTS.
const GO_ROUTINES = 8

// EPISODES defines the number of episodes for MCTS.
const EPISODES = 2000

// MAX_TURNS caps a game at one move per cell.
const MAX_TURNS = 42
