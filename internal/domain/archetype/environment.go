package archetype

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Environment labels for a matchup.
const (
	EnvForming = "Forming"
	EnvClean   = "Clean"
	EnvMixed   = "Mixed"
	EnvNoisy   = "Noisy"
)

// EnvironmentConfig holds the matchup risk-blend tunables.
type EnvironmentConfig struct {
	CleanMax float64 `yaml:"clean_max"`
	NoisyMin float64 `yaml:"noisy_min"`

	// MinGamesMature is the per-team prior-game count below which the
	// matchup is Forming regardless of score.
	MinGamesMature int `yaml:"min_games_mature"`

	FatigueWeight   float64 `yaml:"fatigue_weight"`
	VolWeight       float64 `yaml:"vol_weight"`
	AsymmetryWeight float64 `yaml:"asymmetry_weight"`

	// Normalization anchors mapping raw metric ranges into [0,1].
	FatigueNormMin   float64 `yaml:"fatigue_norm_min"`
	FatigueNormSpan  float64 `yaml:"fatigue_norm_span"`
	VolNormMin       float64 `yaml:"vol_norm_min"`
	VolNormSpan      float64 `yaml:"vol_norm_span"`
	AsymFatigueSpan  float64 `yaml:"asym_fatigue_span"`
	AsymConsistSpan  float64 `yaml:"asym_consistency_span"`

	// DriverMin is the normalized risk above which a component is named
	// as a driver in the summary string.
	DriverMin float64 `yaml:"driver_min"`
}

// DefaultEnvironmentConfig returns the reference blend:
// 0.45 fatigue, 0.35 volatility, 0.20 asymmetry.
func DefaultEnvironmentConfig() EnvironmentConfig {
	return EnvironmentConfig{
		CleanMax:        0.35,
		NoisyMin:        0.65,
		MinGamesMature:  10,
		FatigueWeight:   0.45,
		VolWeight:       0.35,
		AsymmetryWeight: 0.20,
		FatigueNormMin:  30.0,
		FatigueNormSpan: 50.0,
		VolNormMin:      8.0,
		VolNormSpan:     12.0,
		AsymFatigueSpan: 40.0,
		AsymConsistSpan: 0.30,
		DriverMin:       0.60,
	}
}

// Validate rejects unusable environment configurations.
func (c EnvironmentConfig) Validate() error {
	if !(c.CleanMax < c.NoisyMin) {
		return fmt.Errorf("clean_max must be below noisy_min")
	}
	sum := c.FatigueWeight + c.VolWeight + c.AsymmetryWeight
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("environment risk weights sum to %.3f, expected 1.000", sum)
	}
	if c.FatigueNormSpan <= 0 || c.VolNormSpan <= 0 || c.AsymFatigueSpan <= 0 || c.AsymConsistSpan <= 0 {
		return fmt.Errorf("environment normalization spans must be positive")
	}
	return nil
}

// GameEnvironment is the per-game classification row, pairing the two team
// rows that share a game id.
type GameEnvironment struct {
	GameID   int64
	GameDate time.Time
	Matchup  string

	NoiseScore *float64
	Label      string
	Drivers    string

	FatigueHome    float64
	FatigueAway    float64
	FatigueRiskAvg *float64

	VolHome    *float64
	VolAway    *float64
	VolRiskAvg *float64

	AsymmetryScore *float64

	ExpectedMarginHome *float64
	ExpectedMarginAway *float64

	GamesPlayedHome int
	GamesPlayedAway int
	Mature          bool
}

// Classifier builds per-game environment rows from the finished metric
// table.
type Classifier struct {
	cfg EnvironmentConfig
}

// NewClassifier creates an environment classifier with the given
// configuration.
func NewClassifier(cfg EnvironmentConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// BuildEnvironments pairs team rows by game id and classifies each matchup.
// Games without exactly one home and one away row are integrity violations:
// they are logged and skipped, never fatal.
func (c *Classifier) BuildEnvironments(rows []table.Row) []GameEnvironment {
	var out []GameEnvironment

	for gameID, idx := range table.GroupByGame(rows) {
		var home, away *table.Row
		for _, i := range idx {
			switch rows[i].HomeAway {
			case facts.Home:
				home = &rows[i]
			case facts.Away:
				away = &rows[i]
			}
		}
		if len(idx) != 2 || home == nil || away == nil {
			log.Warn().Int64("game_id", gameID).Int("rows", len(idx)).
				Msg("game skipped by environment classifier: not a home/away pair")
			continue
		}
		out = append(out, c.classifyPair(home, away))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].GameDate.Equal(out[j].GameDate) {
			return out[i].GameDate.Before(out[j].GameDate)
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

func (c *Classifier) classifyPair(home, away *table.Row) GameEnvironment {
	env := GameEnvironment{
		GameID:             home.GameID,
		GameDate:           home.GameDate,
		Matchup:            fmt.Sprintf("%s @ %s", away.TeamName, home.TeamName),
		FatigueHome:        home.FatigueIndex,
		FatigueAway:        away.FatigueIndex,
		VolHome:            home.PvEVolatility,
		VolAway:            away.PvEVolatility,
		ExpectedMarginHome: home.ExpectedMargin,
		ExpectedMarginAway: away.ExpectedMargin,
		GamesPlayedHome:    priorGames(home),
		GamesPlayedAway:    priorGames(away),
	}

	env.Mature = env.GamesPlayedHome >= c.cfg.MinGamesMature &&
		env.GamesPlayedAway >= c.cfg.MinGamesMature

	fatigueAvg := avg2(
		c.normFatigue(home.FatigueIndex),
		c.normFatigue(away.FatigueIndex),
	)
	env.FatigueRiskAvg = round3p(fatigueAvg)

	volAvg := avg2(c.normVol(home.PvEVolatility), c.normVol(away.PvEVolatility))
	env.VolRiskAvg = round3p(volAvg)

	asym := avg2(
		clip01p(math.Abs(home.FatigueIndex-away.FatigueIndex)/c.cfg.AsymFatigueSpan),
		c.normAsymConsistency(home.Consistency, away.Consistency),
	)
	env.AsymmetryScore = round3p(asym)

	noise := weightedAvg(
		[]*float64{fatigueAvg, volAvg, asym},
		[]float64{c.cfg.FatigueWeight, c.cfg.VolWeight, c.cfg.AsymmetryWeight},
	)
	env.NoiseScore = round3p(noise)

	env.Label = c.labelFor(noise, env.Mature)
	env.Drivers = c.driversFor(fatigueAvg, volAvg, asym, env.Mature)
	return env
}

func (c *Classifier) labelFor(noise *float64, mature bool) string {
	if !mature || noise == nil {
		return EnvForming
	}
	switch {
	case *noise <= c.cfg.CleanMax:
		return EnvClean
	case *noise >= c.cfg.NoisyMin:
		return EnvNoisy
	default:
		return EnvMixed
	}
}

func (c *Classifier) driversFor(fatigue, vol, asym *float64, mature bool) string {
	if !mature {
		return "early-season/low-history"
	}
	var drivers string
	add := func(s string) {
		if drivers != "" {
			drivers += ", "
		}
		drivers += s
	}
	if fatigue != nil && *fatigue >= c.cfg.DriverMin {
		add("high fatigue load")
	}
	if vol != nil && *vol >= c.cfg.DriverMin {
		add("high volatility")
	}
	if asym != nil && *asym >= c.cfg.DriverMin {
		add("asymmetry mismatch")
	}
	if drivers == "" {
		return "stable conditions"
	}
	return drivers
}

func (c *Classifier) normFatigue(index float64) *float64 {
	return clip01p((index - c.cfg.FatigueNormMin) / c.cfg.FatigueNormSpan)
}

func (c *Classifier) normVol(vol *float64) *float64 {
	if vol == nil {
		return nil
	}
	return clip01p((*vol - c.cfg.VolNormMin) / c.cfg.VolNormSpan)
}

func (c *Classifier) normAsymConsistency(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return clip01p(math.Abs(*a-*b) / c.cfg.AsymConsistSpan)
}

// priorGames is the team's completed-game count strictly before this row.
func priorGames(r *table.Row) int {
	if r.GamesPlayed > 0 {
		return r.GamesPlayed - 1
	}
	return 0
}

func clip01p(v float64) *float64 {
	v = math.Max(0, math.Min(1, v))
	return &v
}

// avg2 averages the present values, nil when both are missing. Missing
// inputs shrink the evidence, they do not count as zero risk.
func avg2(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := (*a + *b) / 2
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	default:
		return nil
	}
}

// weightedAvg blends present values with renormalized weights.
func weightedAvg(values []*float64, weights []float64) *float64 {
	var sum, wsum float64
	for i, v := range values {
		if v == nil {
			continue
		}
		sum += *v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return nil
	}
	v := sum / wsum
	return &v
}

func round3p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1000) / 1000
	return &r
}
