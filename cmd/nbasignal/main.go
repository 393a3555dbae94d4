package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/signalnoise/nbasignal/internal/application/pipeline"
	"github.com/signalnoise/nbasignal/internal/config"
	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/ingest"
	"github.com/signalnoise/nbasignal/internal/metrics"
	"github.com/signalnoise/nbasignal/internal/report"
	"github.com/signalnoise/nbasignal/internal/store"
)

const (
	appName = "nbasignal"
	version = "v1.2.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "NBA derived-statistics batch pipeline",
		Version: version,
		Long: `nbasignal turns raw NBA game results into per-team derived statistics:
fatigue load, expected margin, performance vs expectation, momentum,
consistency, and archetype labels, plus per-game environment scores.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults apply when omitted)")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch completed games into a fact table CSV",
		RunE:  runIngest,
	}
	ingestCmd.Flags().String("start", "", "Range start date (YYYY-MM-DD, required)")
	ingestCmd.Flags().String("end", "", "Range end date (YYYY-MM-DD, required)")
	ingestCmd.Flags().String("out", "data/core/team_game_facts.csv", "Output fact table path")

	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run all derivation stages over a fact table",
		Long:  "Reads a fact table CSV, runs every stage in order, and writes the metric and environment tables.",
		RunE:  runPipeline,
	}
	pipelineCmd.Flags().String("facts", "data/core/team_game_facts.csv", "Input fact table path")
	pipelineCmd.Flags().String("out-dir", "data/derived", "Output directory for derived tables")
	pipelineCmd.Flags().String("metrics-addr", "", "Serve /metrics and /health on this address during the run")
	pipelineCmd.Flags().Bool("postgres", false, "Also persist the run to PostgreSQL (store.postgres_dsn)")
	pipelineCmd.Flags().Bool("sanity", true, "Run sanity checks on the finished table")

	boardCmd := &cobra.Command{
		Use:   "board [fatigue|momentum|consistency|environment]",
		Short: "Render a board for a given date",
		Args:  cobra.ExactArgs(1),
		RunE:  runBoard,
	}
	boardCmd.Flags().String("facts", "data/core/team_game_facts.csv", "Input fact table path")
	boardCmd.Flags().String("date", "", "Board date (YYYY-MM-DD, default today)")

	tweetsCmd := &cobra.Command{
		Use:   "tweets [pregame|postgame]",
		Short: "Render matchup lens tweets for a given date",
		Args:  cobra.ExactArgs(1),
		RunE:  runTweets,
	}
	tweetsCmd.Flags().String("facts", "data/core/team_game_facts.csv", "Input fact table path")
	tweetsCmd.Flags().String("date", "", "Target date (YYYY-MM-DD, default today)")

	rootCmd.AddCommand(ingestCmd, pipelineCmd, boardCmd, tweetsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	out, _ := cmd.Flags().GetString("out")
	if startStr == "" || endStr == "" {
		return fmt.Errorf("--start and --end are required")
	}
	start, err := parseDay(startStr)
	if err != nil {
		return fmt.Errorf("bad --start: %w", err)
	}
	end, err := parseDay(endStr)
	if err != nil {
		return fmt.Errorf("bad --end: %w", err)
	}

	client := ingest.NewClient(ingest.Options{
		BaseURL:        cfg.Ingest.BaseURL,
		APIKey:         os.Getenv(cfg.Ingest.APIKeyEnv),
		PerPage:        cfg.Ingest.PerPage,
		RequestsPerSec: cfg.Ingest.RequestsPerSec,
		MaxRetries:     cfg.Ingest.MaxRetries,
		Timeout:        time.Duration(cfg.Ingest.TimeoutSeconds) * time.Second,
	})

	records, err := client.FetchGamesRange(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	built := facts.Build(records)
	if err := store.WriteFactsCSV(out, built.Facts); err != nil {
		return fmt.Errorf("write fact table: %w", err)
	}

	log.Info().
		Str("path", out).
		Int("facts", len(built.Facts)).
		Int("excluded_games", len(built.Excluded)).
		Msg("fact table written")
	return nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factsPath, _ := cmd.Flags().GetString("facts")
	outDir, _ := cmd.Flags().GetString("out-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	usePostgres, _ := cmd.Flags().GetBool("postgres")
	sanity, _ := cmd.Flags().GetBool("sanity")

	factRows, err := store.ReadFactsCSV(factsPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(metricsAddr, reg); err != nil {
				log.Warn().Err(err).Str("addr", metricsAddr).Msg("metrics server stopped")
			}
		}()
	}

	p := pipeline.New(cfg, pipeline.WithMetrics(collector))
	res, err := p.Run(facts.ToRecords(factRows))
	if err != nil {
		return err
	}

	if sanity {
		findings := pipeline.SanityCheck(res.Rows, cfg.Fatigue.MaxIndex)
		for _, f := range findings {
			log.Warn().Str("check", f.Check).Int64("game_id", f.GameID).
				Int64("team_id", f.TeamID).Str("detail", f.Detail).
				Msg("sanity finding")
		}
		if len(findings) > 0 {
			return fmt.Errorf("sanity checks reported %d findings", len(findings))
		}
	}

	metricsPath := filepath.Join(outDir, "team_game_metrics.csv")
	if err := store.WriteMetricsCSV(metricsPath, res.Rows); err != nil {
		return fmt.Errorf("write metric table: %w", err)
	}
	envPath := filepath.Join(outDir, "game_environments.csv")
	if err := store.WriteEnvironmentsCSV(envPath, res.Environments); err != nil {
		return fmt.Errorf("write environment table: %w", err)
	}

	if usePostgres {
		if cfg.Store.PostgresDSN == "" {
			return fmt.Errorf("--postgres requires store.postgres_dsn in config")
		}
		ctx := cmd.Context()
		pg, err := store.OpenPostgres(ctx, cfg.Store.PostgresDSN, 10*time.Second)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.UpsertFacts(ctx, factRows); err != nil {
			return err
		}
		if err := pg.InsertMetrics(ctx, res.RunID, res.Rows); err != nil {
			return err
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("metrics", metricsPath).
		Str("environments", envPath).
		Msg("pipeline outputs written")
	return nil
}

// runFromFacts re-derives the full table for read-only commands. The batch
// is small enough that recomputing beats persisting intermediate state.
func runFromFacts(cfg config.Config, factsPath string) (*pipeline.Result, error) {
	factRows, err := store.ReadFactsCSV(factsPath)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg).Run(facts.ToRecords(factRows))
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	factsPath, _ := cmd.Flags().GetString("facts")
	dateStr, _ := cmd.Flags().GetString("date")
	day, err := parseDay(dateStr)
	if err != nil {
		return fmt.Errorf("bad --date: %w", err)
	}

	res, err := runFromFacts(cfg, factsPath)
	if err != nil {
		return err
	}

	var board string
	switch args[0] {
	case "fatigue":
		board = report.FatigueBoard(res.Rows, day)
	case "momentum":
		board = report.MomentumBoard(res.Rows, day)
	case "consistency":
		board = report.ConsistencyBoard(res.Rows)
	case "environment":
		board = report.EnvironmentBoard(res.Environments, day)
	default:
		return fmt.Errorf("unknown board %q", args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), board)
	return nil
}

func runTweets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	factsPath, _ := cmd.Flags().GetString("facts")
	dateStr, _ := cmd.Flags().GetString("date")
	day, err := parseDay(dateStr)
	if err != nil {
		return fmt.Errorf("bad --date: %w", err)
	}

	res, err := runFromFacts(cfg, factsPath)
	if err != nil {
		return err
	}

	lenses, err := report.DailyLenses(res.Rows, day, args[0] == "postgame")
	if err != nil {
		return err
	}
	if len(lenses) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No games found for", day.Format("2006-01-02"))
		return nil
	}

	for _, lens := range lenses {
		tweet := report.Compose(lens.Mode, lens.BoardName, lens.Header, lens.Body, "")
		fmt.Fprintln(cmd.OutOrStdout(), tweet.Main)
		fmt.Fprintln(cmd.OutOrStdout(), "\n----------------------------------------")
	}
	return nil
}
