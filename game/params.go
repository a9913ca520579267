package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/rand"
)

var ErrInvalidConfig = errors.New("invalid evaluation config")

// EvaluationConfig is the flat record of evaluation weights. The JSON field
// names are the persisted format and must stay stable.
type EvaluationConfig struct {
	WinScore                int     `json:"win_score" yaml:"win_score"`
	LossScore               int     `json:"loss_score" yaml:"loss_score"`
	CenterColumnValue       int     `json:"center_column_value" yaml:"center_column_value"`
	AdjacentCenterValue     int     `json:"adjacent_center_value" yaml:"adjacent_center_value"`
	OuterColumnValue        int     `json:"outer_column_value" yaml:"outer_column_value"`
	EdgeColumnValue         int     `json:"edge_column_value" yaml:"edge_column_value"`
	RowHeightWeight         float64 `json:"row_height_weight" yaml:"row_height_weight"`
	CenterControlWeight     float64 `json:"center_control_weight" yaml:"center_control_weight"`
	PieceCountWeight        float64 `json:"piece_count_weight" yaml:"piece_count_weight"`
	ThreatWeight            float64 `json:"threat_weight" yaml:"threat_weight"`
	MobilityWeight          float64 `json:"mobility_weight" yaml:"mobility_weight"`
	VerticalControlWeight   float64 `json:"vertical_control_weight" yaml:"vertical_control_weight"`
	HorizontalControlWeight float64 `json:"horizontal_control_weight" yaml:"horizontal_control_weight"`
	DefensiveWeight         float64 `json:"defensive_weight" yaml:"defensive_weight"`
}

func DefaultConfig() EvaluationConfig {
	return EvaluationConfig{
		WinScore:                10000,
		LossScore:               -10000,
		CenterColumnValue:       100,
		AdjacentCenterValue:     50,
		OuterColumnValue:        10,
		EdgeColumnValue:         1,
		RowHeightWeight:         1.0,
		CenterControlWeight:     1.0,
		PieceCountWeight:        0.5,
		ThreatWeight:            2.0,
		MobilityWeight:          0.8,
		VerticalControlWeight:   1.2,
		HorizontalControlWeight: 1.0,
		DefensiveWeight:         1.0,
	}
}

func (c EvaluationConfig) weights() map[string]float64 {
	return map[string]float64{
		"row_height_weight":         c.RowHeightWeight,
		"center_control_weight":     c.CenterControlWeight,
		"piece_count_weight":        c.PieceCountWeight,
		"threat_weight":             c.ThreatWeight,
		"mobility_weight":           c.MobilityWeight,
		"vertical_control_weight":   c.VerticalControlWeight,
		"horizontal_control_weight": c.HorizontalControlWeight,
		"defensive_weight":          c.DefensiveWeight,
	}
}

// Validate rejects non-finite weights. Any finite values are accepted.
func (c EvaluationConfig) Validate() error {
	for name, w := range c.weights() {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s is %v: %w", name, w, ErrInvalidConfig)
		}
	}
	return nil
}

// ColumnValue maps a column to its positional value, tapering from the
// centre to the edges.
func (c EvaluationConfig) ColumnValue(col int) int {
	switch col {
	case 3:
		return c.CenterColumnValue
	case 2, 4:
		return c.AdjacentCenterValue
	case 1, 5:
		return c.OuterColumnValue
	default:
		return c.EdgeColumnValue
	}
}

func uniformInt(r *rand.Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo)
}

func uniformFloat(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// RandomConfig draws every field uniformly from a plausible range.
func RandomConfig(r *rand.Rand) EvaluationConfig {
	return EvaluationConfig{
		WinScore:                uniformInt(r, 5000, 15000),
		LossScore:               uniformInt(r, -15000, -5000),
		CenterColumnValue:       uniformInt(r, 50, 200),
		AdjacentCenterValue:     uniformInt(r, 25, 100),
		OuterColumnValue:        uniformInt(r, 5, 25),
		EdgeColumnValue:         uniformInt(r, 1, 10),
		RowHeightWeight:         uniformFloat(r, 0.5, 2.0),
		CenterControlWeight:     uniformFloat(r, 0.0, 3.0),
		PieceCountWeight:        uniformFloat(r, 0.0, 2.0),
		ThreatWeight:            uniformFloat(r, 0.5, 5.0),
		MobilityWeight:          uniformFloat(r, 0.0, 2.0),
		VerticalControlWeight:   uniformFloat(r, 0.5, 3.0),
		HorizontalControlWeight: uniformFloat(r, 0.5, 3.0),
		DefensiveWeight:         uniformFloat(r, 0.5, 3.0),
	}
}

// Mutate perturbs each field independently with probability rate. Deltas
// are scaled by strength.
func (c EvaluationConfig) Mutate(r *rand.Rand, rate, strength float64) EvaluationConfig {
	mutateInt := func(v *int, delta float64) {
		if r.Float64() < rate {
			*v = int(float64(*v) + uniformFloat(r, -delta, delta)*strength)
		}
	}
	mutateFloat := func(v *float64, delta float64) {
		if r.Float64() < rate {
			*v += uniformFloat(r, -delta, delta) * strength
		}
	}

	mutateInt(&c.WinScore, 500)
	mutateInt(&c.LossScore, 500)
	mutateInt(&c.CenterColumnValue, 20)
	mutateInt(&c.AdjacentCenterValue, 10)
	mutateInt(&c.OuterColumnValue, 5)
	mutateInt(&c.EdgeColumnValue, 2)
	mutateFloat(&c.RowHeightWeight, 0.2)
	mutateFloat(&c.CenterControlWeight, 1.0)
	mutateFloat(&c.PieceCountWeight, 0.5)
	mutateFloat(&c.ThreatWeight, 1.0)
	mutateFloat(&c.MobilityWeight, 0.5)
	mutateFloat(&c.VerticalControlWeight, 0.5)
	mutateFloat(&c.HorizontalControlWeight, 0.5)
	mutateFloat(&c.DefensiveWeight, 0.5)
	return c
}

// Crossover returns a child that takes each field from other with
// probability rate and from c otherwise.
func (c EvaluationConfig) Crossover(r *rand.Rand, other EvaluationConfig, rate float64) EvaluationConfig {
	child := c
	pickInt := func(dst *int, src int) {
		if r.Float64() < rate {
			*dst = src
		}
	}
	pickFloat := func(dst *float64, src float64) {
		if r.Float64() < rate {
			*dst = src
		}
	}

	pickInt(&child.WinScore, other.WinScore)
	pickInt(&child.LossScore, other.LossScore)
	pickInt(&child.CenterColumnValue, other.CenterColumnValue)
	pickInt(&child.AdjacentCenterValue, other.AdjacentCenterValue)
	pickInt(&child.OuterColumnValue, other.OuterColumnValue)
	pickInt(&child.EdgeColumnValue, other.EdgeColumnValue)
	pickFloat(&child.RowHeightWeight, other.RowHeightWeight)
	pickFloat(&child.CenterControlWeight, other.CenterControlWeight)
	pickFloat(&child.PieceCountWeight, other.PieceCountWeight)
	pickFloat(&child.ThreatWeight, other.ThreatWeight)
	pickFloat(&child.MobilityWeight, other.MobilityWeight)
	pickFloat(&child.VerticalControlWeight, other.VerticalControlWeight)
	pickFloat(&child.HorizontalControlWeight, other.HorizontalControlWeight)
	pickFloat(&child.DefensiveWeight, other.DefensiveWeight)
	return child
}

// LoadConfig reads a JSON evaluation record. Missing fields keep their
// default values.
func LoadConfig(path string) (EvaluationConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read evaluation config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse evaluation config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c EvaluationConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write evaluation config: %w", err)
	}
	return nil
}
