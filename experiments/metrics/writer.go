package metrics

import (
	"connect4/game"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID playing Player1
	Agent2 int // AgentConfig.ID playing Player2
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

// GenerationRecord summarises one generation of parameter evolution.
type GenerationRecord struct {
	Generation  int
	BestFitness float64
	AvgFitness  float64
	Best        game.EvaluationConfig
}

// PositionRecord is one self-play training sample: a position, the visit
// distribution searched from it, and the final result for the mover.
type PositionRecord struct {
	Game    int
	Step    int
	Board   game.Board
	Player  game.Player
	Policy  [game.Cols]float64
	Outcome float64 // 1 win, 0 draw, -1 loss for Player
}

type Writer struct {
	baseDir string
}

// NewWriter creates <root>/<name>/<timestamp>-<uuid> for a fresh run.
func NewWriter(root, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, name, timestamp+"-"+uuid.NewString())
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) writeCSV(file string, header []string, rows func(emit func([]string) error) error) error {
	path := filepath.Join(w.baseDir, file)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", file, err)
	}
	if err := rows(writer.Write); err != nil {
		return fmt.Errorf("failed to write %s row: %w", file, err)
	}
	writer.Flush()
	return writer.Error()
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "kind", "depth", "goroutines", "duration", "episodes", "cutoff", "params"}
	return w.writeCSV("agent_configs.csv", header, func(emit func([]string) error) error {
		for _, config := range configs {
			err := emit([]string{
				strconv.Itoa(config.ID),
				config.Kind,
				strconv.Itoa(config.Depth),
				strconv.Itoa(config.Goroutines),
				config.Duration.String(),
				strconv.Itoa(config.Episodes),
				strconv.Itoa(config.Cutoff),
				config.ParamsPath,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "start_time", "end_time", "duration", "total_moves"}
	return w.writeCSV("game_records.csv", header, func(emit func([]string) error) error {
		for _, record := range records {
			err := emit([]string{
				strconv.Itoa(record.ID),
				strconv.Itoa(record.Agent1),
				strconv.Itoa(record.Agent2),
				record.StartingPlayer.String(),
				record.Winner.String(),
				record.StartTime.Format(time.RFC3339),
				record.EndTime.Format(time.RFC3339),
				record.Duration.String(),
				strconv.Itoa(record.TotalMoves),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "column", "algorithm", "depth", "duration",
		"episodes", "full_playouts", "nodes_evaluated", "cache_hits", "cache_size"}
	return w.writeCSV("move_records.csv", header, func(emit func([]string) error) error {
		for _, record := range records {
			err := emit([]string{
				strconv.Itoa(record.Game),
				strconv.Itoa(record.Step),
				record.Player.String(),
				strconv.Itoa(record.Column),
				record.Algorithm,
				strconv.Itoa(record.Depth),
				record.Duration.String(),
				strconv.Itoa(record.Episodes),
				strconv.Itoa(record.FullPlayouts),
				strconv.Itoa(record.NodesEvaluated),
				strconv.Itoa(record.CacheHits),
				strconv.Itoa(record.CacheSize),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Writer) WriteGenerations(records []GenerationRecord) error {
	header := []string{"generation", "best_fitness", "avg_fitness", "win_score", "loss_score",
		"center_column_value", "adjacent_center_value", "outer_column_value", "edge_column_value",
		"row_height_weight", "center_control_weight", "piece_count_weight", "threat_weight",
		"mobility_weight", "vertical_control_weight", "horizontal_control_weight", "defensive_weight"}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return w.writeCSV("generations.csv", header, func(emit func([]string) error) error {
		for _, r := range records {
			c := r.Best
			err := emit([]string{
				strconv.Itoa(r.Generation), f(r.BestFitness), f(r.AvgFitness),
				strconv.Itoa(c.WinScore), strconv.Itoa(c.LossScore),
				strconv.Itoa(c.CenterColumnValue), strconv.Itoa(c.AdjacentCenterValue),
				strconv.Itoa(c.OuterColumnValue), strconv.Itoa(c.EdgeColumnValue),
				f(c.RowHeightWeight), f(c.CenterControlWeight), f(c.PieceCountWeight), f(c.ThreatWeight),
				f(c.MobilityWeight), f(c.VerticalControlWeight), f(c.HorizontalControlWeight), f(c.DefensiveWeight),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// EncodeBoard flattens a board column by column into 0/1/2 digits.
func EncodeBoard(b game.Board) string {
	var sb strings.Builder
	sb.Grow(game.BoardSize)
	for col := 0; col < game.Cols; col++ {
		for row := 0; row < game.Rows; row++ {
			sb.WriteByte('0' + byte(b[col][row]))
		}
	}
	return sb.String()
}

func (w *Writer) WritePositions(records []PositionRecord) error {
	header := []string{"game", "step", "board", "player"}
	for col := 0; col < game.Cols; col++ {
		header = append(header, fmt.Sprintf("policy_%d", col))
	}
	header = append(header, "outcome")

	return w.writeCSV("positions.csv", header, func(emit func([]string) error) error {
		for _, r := range records {
			row := []string{
				strconv.Itoa(r.Game),
				strconv.Itoa(r.Step),
				EncodeBoard(r.Board),
				r.Player.String(),
			}
			for _, p := range r.Policy {
				row = append(row, strconv.FormatFloat(p, 'f', 4, 64))
			}
			row = append(row, strconv.FormatFloat(r.Outcome, 'f', 0, 64))
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	})
}
