package main

import (
	"connect4/experiments"
	"fmt"

	"github.com/spf13/cobra"
)

func runMatch(cmd *cobra.Command, args []string) error {
	matchCfg := cfg.Match
	if games, _ := cmd.Flags().GetInt("games"); games > 0 {
		matchCfg.Games = games
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		matchCfg.Output = output
	}
	name := fmt.Sprintf("%s_vs_%s", matchCfg.Agents[0].Kind, matchCfg.Agents[1].Kind)
	if len(args) == 1 {
		name = args[0]
	}

	result, err := experiments.RunMatch(cmd.Context(), name, matchCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %d: %d wins, agent %d: %d wins, draws: %d\n",
		matchCfg.Agents[0].ID, result.Wins[0], matchCfg.Agents[1].ID, result.Wins[1], result.Draws)
	if result.Dir != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "results: %s\n", result.Dir)
	}
	return nil
}

func runEvolve(cmd *cobra.Command, args []string) error {
	evolutionCfg := cfg.Evolution
	if generations, _ := cmd.Flags().GetInt("generations"); generations > 0 {
		evolutionCfg.Generations = generations
	}
	if seed, _ := cmd.Flags().GetUint64("seed"); seed > 0 {
		evolutionCfg.Seed = seed
	}

	result, err := experiments.RunEvolution(cmd.Context(), evolutionCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "best fitness %.3f, validation vs default %.3f\n", result.BestFitness, result.Validation)
	if result.Dir != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "results: %s\n", result.Dir)
	}
	return nil
}

func runSelfPlay(cmd *cobra.Command, args []string) error {
	selfPlayCfg := cfg.SelfPlay
	if games, _ := cmd.Flags().GetInt("games"); games > 0 {
		selfPlayCfg.Games = games
	}

	result, err := experiments.RunSelfPlay(cmd.Context(), selfPlayCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d games, %d positions\n", result.Games, len(result.Positions))
	if result.Dir != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "results: %s\n", result.Dir)
	}
	return nil
}
