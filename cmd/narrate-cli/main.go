package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"placetale/internal/adapter/narrate_http"
	"placetale/internal/di"
	"placetale/internal/domain"
	"placetale/internal/infra/config"
	"placetale/internal/infra/logger"
	"placetale/internal/usecase"
)

var (
	version = "dev"

	// Global flags
	lat      float64
	lon      float64
	budgetMs int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "narrate-cli",
	Short:   "Resolve nearby points of interest and narrate a location",
	Version: version,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve and curate nearby POIs for a point",
	Long: `Resolve nearby points of interest for a coordinate and print the
curated result as JSON.

Examples:
  # Resolve POIs around Mousehole harbour
  narrate-cli resolve --lat 50.0820 --lon -5.4265

  # Tighten the wall-clock search budget
  narrate-cli resolve --lat 50.0820 --lon -5.4265 --budget-ms 5000`,
	RunE: runResolve,
}

var narrateCmd = &cobra.Command{
	Use:   "narrate",
	Short: "Run the full narration pipeline and print the framed stream",
	RunE:  runNarrate,
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	rootCmd.PersistentFlags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	rootCmd.PersistentFlags().IntVar(&budgetMs, "budget-ms", 0, "resolution budget in milliseconds (0 = config default)")
	_ = rootCmd.MarkPersistentFlagRequired("lat")
	_ = rootCmd.MarkPersistentFlagRequired("lon")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(narrateCmd)
}

func setup() (*di.ApplicationComponents, *config.Config, context.Context, context.CancelFunc) {
	cfg := config.Load()
	log := logger.New()
	slog.SetDefault(log)
	components := di.NewApplicationComponents(cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return components, cfg, ctx, cancel
}

func runResolve(cmd *cobra.Command, args []string) error {
	components, cfg, ctx, cancel := setup()
	defer cancel()

	budget := time.Duration(cfg.ResolveBudgetMs) * time.Millisecond
	if budgetMs > 0 {
		budget = time.Duration(budgetMs) * time.Millisecond
	}

	resolved := components.ResolveUsecase.Execute(ctx, pointFlag(), budget)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resolved)
}

func runNarrate(cmd *cobra.Command, args []string) error {
	components, _, ctx, cancel := setup()
	defer cancel()

	framer := narrate_http.Framer{}
	events := components.NarrateUsecase.Stream(ctx, usecase.NarrateInput{
		Point:    pointFlag(),
		BudgetMs: budgetMs,
	})

	for event := range events {
		switch event.Kind {
		case usecase.StreamEventKindMeta:
			payload, err := json.Marshal(event.Meta)
			if err != nil {
				return err
			}
			os.Stdout.WriteString(framer.EncodeFrame(narrate_http.MetaPrefix + string(payload)))
		case usecase.StreamEventKindContent:
			os.Stdout.WriteString(framer.EncodeFrame(event.Text))
		case usecase.StreamEventKindError:
			os.Stdout.WriteString(framer.EncodeFrame(event.Message))
		}
	}

	os.Stdout.WriteString(framer.EncodeFrame(narrate_http.EndSentinel))
	return nil
}

func pointFlag() domain.GeoPoint {
	return domain.GeoPoint{Lat: lat, Lon: lon}
}
