package main

import (
	"connect4/config"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	pretty     bool

	cfg config.Config
)

var (
	rootCmd = &cobra.Command{
		Use:           "connect4",
		Short:         "Connect Four engine: move server, matches and weight tuning",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if logLevel == "" {
				logLevel = cfg.LogLevel
			}
			return setupLogging(logLevel, pretty)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve moves over HTTP",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	matchCmd = &cobra.Command{
		Use:   "match [name]",
		Short: "Play the configured agents against each other",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMatch, // Defined in cmd_experiments.go
	}

	evolveCmd = &cobra.Command{
		Use:   "evolve",
		Short: "Evolve evaluation weights with a genetic algorithm",
		RunE:  runEvolve, // Defined in cmd_experiments.go
	}

	selfPlayCmd = &cobra.Command{
		Use:   "selfplay",
		Short: "Generate MCTS self-play training positions",
		RunE:  runSelfPlay, // Defined in cmd_experiments.go
	}

	bestMoveCmd = &cobra.Command{
		Use:   "bestmove",
		Short: "Search a position and print the ranked moves",
		RunE:  runBestMove, // Defined in cmd_bestmove.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error (overrides the config)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Human readable console logs")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().Int("games", 0, "Number of games (overrides match.games)")
	matchCmd.Flags().String("output", "", "Results directory (overrides match.output)")

	rootCmd.AddCommand(evolveCmd)
	evolveCmd.Flags().Int("generations", 0, "Number of generations (overrides evolution.generations)")
	evolveCmd.Flags().Uint64("seed", 0, "Random seed (overrides evolution.seed)")

	rootCmd.AddCommand(selfPlayCmd)
	selfPlayCmd.Flags().Int("games", 0, "Number of games (overrides selfplay.games)")

	rootCmd.AddCommand(bestMoveCmd)
	bestMoveCmd.Flags().IntSlice("moves", nil, "Columns played from the empty board, e.g. 3,3,4")
	bestMoveCmd.Flags().Int("depth", 0, "Search depth (defaults to server.default_depth)")
	bestMoveCmd.Flags().String("params", "", "JSON evaluation weights")
	bestMoveCmd.Flags().String("first", "Player1", "Player to move first")
}

func setupLogging(level string, pretty bool) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}
