package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cognicore/triplan/pkg/triplan"
	"github.com/cognicore/triplan/pkg/triplan/config"
	"github.com/cognicore/triplan/pkg/triplan/places"
)

var (
	policyPath  string
	catalogPath string
	factsPath   string
	dbPath      string
	placesPath  string
	logLevel    string
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "triplan",
		Short:         "Plan flight, hotel and taxi legs with explained constraint relaxation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&policyPath, "policy", os.Getenv("TRIPLAN_POLICY"), "Relaxation policy YAML (default: built-in policy)")
	flags.StringVar(&catalogPath, "catalog", os.Getenv("TRIPLAN_CATALOG"), "Catalog seed YAML")
	flags.StringVar(&factsPath, "facts", os.Getenv("TRIPLAN_FACTS"), "Catalog as relation(subject, object) facts")
	flags.StringVar(&dbPath, "db", os.Getenv("TRIPLAN_DB"), "SQLite catalog database")
	flags.StringVar(&placesPath, "places", os.Getenv("TRIPLAN_PLACES"), "Place-name aliases YAML (default: built-in aliases)")
	flags.StringVar(&logLevel, "log-level", envOr("TRIPLAN_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	root.AddCommand(
		newPlanCmd(),
		newServeCmd(),
		newSeedCmd(),
		newCheckPolicyCmd(),
		newExportFactsCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadPlanner builds a planner from the persistent flags. Without any catalog
// source the bundled demo catalog is used.
func loadPlanner(ctx context.Context, log zerolog.Logger) (*triplan.Planner, *config.Components, error) {
	loader := config.Loader{
		PolicyPath:  policyPath,
		CatalogPath: catalogPath,
		FactsPath:   factsPath,
		DBPath:      dbPath,
		PlacesPath:  placesPath,
		UseSeed:     true,
	}
	comp, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	planner, err := triplan.New(triplan.Options{
		Catalog: comp.Catalog,
		Policy:  comp.Policy,
		Places:  comp.Places,
		Logger:  &log,
	})
	if err != nil {
		comp.Close()
		return nil, nil, err
	}
	return planner, comp, nil
}

func loadPlaces() (*places.Gazetteer, error) {
	if placesPath == "" {
		return places.Default(), nil
	}
	return places.Load(placesPath)
}
