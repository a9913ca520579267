package main

import (
	"connect4/game"
	"connect4/searcher"
	"connect4/utils"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runBestMove(cmd *cobra.Command, args []string) error {
	moves, _ := cmd.Flags().GetIntSlice("moves")
	depth, _ := cmd.Flags().GetInt("depth")
	paramsPath, _ := cmd.Flags().GetString("params")
	firstFlag, _ := cmd.Flags().GetString("first")

	first, err := game.ParsePlayer(firstFlag)
	if err != nil {
		return err
	}
	params := game.DefaultConfig()
	if paramsPath != "" {
		if params, err = game.LoadConfig(paramsPath); err != nil {
			return err
		}
	}
	if depth == 0 {
		depth = cfg.Server.DefaultDepth
	}
	depth = utils.Clamp(depth, 1, cfg.Server.MaxDepth)

	state, err := game.FromMoves(first, params, moves)
	if err != nil {
		return err
	}

	engine := searcher.NewMinimax()
	start := time.Now()
	col, evals := engine.BestMove(state, depth)
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, state)
	fmt.Fprintf(out, "evaluation: %d\n", game.Evaluate(state))
	if col == searcher.NoMove {
		fmt.Fprintln(out, "no legal move")
		return nil
	}
	fmt.Fprintf(out, "best move: %d (depth %d, %d nodes, %d cache hits, %s)\n",
		col, depth, engine.Stats().NodesEvaluated, engine.Stats().CacheHits, elapsed.Round(time.Microsecond))
	for i, e := range evals {
		fmt.Fprintf(out, "%d. column %d score %d %s\n", i+1, e.Column, e.Score, e.Classification)
	}
	return nil
}
