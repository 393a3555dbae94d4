// Package pipeline orders and runs the derived-statistics stages over a
// batch of game records. The order is a hard contract: facts, fatigue,
// expectation, pve, momentum, consistency, classification, environment.
// Each stage only appends columns; nothing is recomputed out of order and
// no stage ever sees a future game.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/signalnoise/nbasignal/internal/config"
	"github.com/signalnoise/nbasignal/internal/domain/archetype"
	"github.com/signalnoise/nbasignal/internal/domain/consistency"
	"github.com/signalnoise/nbasignal/internal/domain/expectation"
	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/fatigue"
	"github.com/signalnoise/nbasignal/internal/domain/momentum"
	"github.com/signalnoise/nbasignal/internal/domain/pve"
	"github.com/signalnoise/nbasignal/internal/domain/table"
	"github.com/signalnoise/nbasignal/internal/metrics"
)

// Result is a completed pipeline run.
type Result struct {
	RunID          string
	Rows           []table.Row
	Environments   []archetype.GameEnvironment
	Excluded       []facts.IntegrityError
	StageDurations map[string]time.Duration
}

// Pipeline wires the stage engines together under one configuration.
type Pipeline struct {
	cfg       config.Config
	collector *metrics.Collector
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.collector = c }
}

// New creates a pipeline from a validated configuration.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage over the given records and returns the finished
// table plus per-game environments.
func (p *Pipeline) Run(records []facts.GameRecord) (*Result, error) {
	res := &Result{
		RunID:          uuid.NewString(),
		StageDurations: make(map[string]time.Duration),
	}
	logger := log.With().Str("run_id", res.RunID).Logger()
	start := time.Now()

	// Facts.
	stageStart := time.Now()
	built := facts.Build(records)
	res.Excluded = built.Excluded
	res.Rows = table.FromFacts(built.Facts)
	p.observe(res, "facts", stageStart, len(res.Rows))
	if p.collector != nil {
		p.collector.AddIntegrityDrops(len(built.Excluded))
	}
	if len(records) > 0 && len(res.Rows) == 0 {
		return res, p.fail(res, &StageError{Stage: "facts", Err: ErrEmptyStageOutput})
	}

	logger.Info().
		Int("records", len(records)).
		Int("facts", len(res.Rows)).
		Int("excluded_games", len(built.Excluded)).
		Msg("fact table built")

	type stage struct {
		name  string
		check func() error
		run   func()
	}
	stages := []stage{
		{
			name: "fatigue",
			run:  func() { fatigue.NewEngine(p.cfg.Fatigue).Apply(res.Rows) },
		},
		{
			name:  "expectation",
			check: func() error { return p.requireFatigue(res.Rows) },
			run:   func() { expectation.NewEngine(p.cfg.Expectation).Apply(res.Rows) },
		},
		{
			name:  "pve",
			check: func() error { return p.requireExpectation(res.Rows) },
			run:   func() { pve.NewEngine(p.cfg.PvE).Apply(res.Rows) },
		},
		{
			name: "momentum",
			run:  func() { momentum.NewEngine(p.cfg.Momentum).Apply(res.Rows) },
		},
		{
			name: "consistency",
			run:  func() { consistency.NewEngine(p.cfg.Consistency).Apply(res.Rows) },
		},
		{
			name: "classification",
			run:  func() { p.cfg.Archetype.Apply(res.Rows) },
		},
	}

	for _, s := range stages {
		if s.check != nil {
			if err := s.check(); err != nil {
				return res, p.fail(res, &StageError{Stage: s.name, Err: err})
			}
		}
		stageStart = time.Now()
		s.run()
		p.observe(res, s.name, stageStart, len(res.Rows))
		logger.Info().
			Str("stage", s.name).
			Dur("duration", res.StageDurations[s.name]).
			Int("rows", len(res.Rows)).
			Msg("pipeline stage completed")
	}

	// Zero-margin rows legitimately carry no PvE, but a table where nothing
	// does means the filters ate the dataset.
	if len(res.Rows) > 0 && countPvE(res.Rows) == 0 {
		return res, p.fail(res, &StageError{Stage: "pve", Err: ErrEmptyStageOutput})
	}

	stageStart = time.Now()
	res.Environments = archetype.NewClassifier(p.cfg.Environment).BuildEnvironments(res.Rows)
	p.observe(res, "environment", stageStart, len(res.Environments))

	if p.collector != nil {
		p.collector.RecordRun(true)
	}
	logger.Info().
		Dur("total_duration", time.Since(start)).
		Int("rows", len(res.Rows)).
		Int("environments", len(res.Environments)).
		Msg("pipeline run completed")

	return res, nil
}

func (p *Pipeline) requireFatigue(rows []table.Row) error {
	for i := range rows {
		if rows[i].FatigueTier == "" {
			return ErrMissingStageInput
		}
	}
	return nil
}

func (p *Pipeline) requireExpectation(rows []table.Row) error {
	for i := range rows {
		if rows[i].ExpectedMargin == nil {
			return ErrMissingStageInput
		}
	}
	return nil
}

func (p *Pipeline) observe(res *Result, stage string, start time.Time, rows int) {
	d := time.Since(start)
	res.StageDurations[stage] = d
	if p.collector != nil {
		p.collector.ObserveStage(stage, d.Seconds(), rows)
	}
}

func (p *Pipeline) fail(res *Result, err *StageError) error {
	if p.collector != nil {
		p.collector.RecordRun(false)
	}
	log.Error().Str("run_id", res.RunID).Str("stage", err.Stage).Err(err.Err).
		Msg("pipeline run failed")
	return err
}

func countPvE(rows []table.Row) int {
	n := 0
	for i := range rows {
		if rows[i].PvE != nil {
			n++
		}
	}
	return n
}
