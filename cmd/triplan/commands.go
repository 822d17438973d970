package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/triplan/internal/feed"
	"github.com/cognicore/triplan/internal/server"
	"github.com/cognicore/triplan/pkg/triplan"
	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/factcatalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/sqlite"
	"github.com/cognicore/triplan/pkg/triplan/config"
	"github.com/cognicore/triplan/pkg/triplan/explain"
	"github.com/cognicore/triplan/pkg/triplan/itinerary"
	"github.com/cognicore/triplan/pkg/triplan/policy"
)

func newPlanCmd() *cobra.Command {
	var req triplan.Request
	var asJSON, listFlights bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip and explain every relaxation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			planner, comp, err := loadPlanner(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer comp.Close()

			out := cmd.OutOrStdout()
			if listFlights {
				cs, err := planner.Normalize(req).FlightConstraints()
				if err != nil {
					return err
				}
				offers, err := planner.Candidates(cmd.Context(), cs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d flight candidates\n", len(offers))
				for _, o := range offers {
					fmt.Fprintf(out, "  %s\n", explain.Offer(o))
				}
				fmt.Fprintln(out)
			}

			it, err := planner.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(it.Summary())
			}
			printItinerary(out, it)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Origin, "from", "", "Departure city")
	f.StringVar(&req.Destination, "to", "", "Destination city")
	f.StringVar(&req.Date, "date", "", "Travel date (YYYY-MM-DD)")
	f.IntVar(&req.Budget, "budget", 0, "Per-leg budget (0 = none)")
	f.BoolVar(&asJSON, "json", false, "Print the itinerary summary as JSON")
	f.BoolVar(&listFlights, "candidates", false, "List exact flight candidates first")
	return cmd
}

func printItinerary(w io.Writer, it *itinerary.Itinerary) {
	s := it.Summary()
	fmt.Fprintf(w, "Itinerary %s: %s (total %d", s.ID, s.Status, s.TotalCost)
	if s.Budget > 0 {
		fmt.Fprintf(w, ", budget %d", s.Budget)
	}
	fmt.Fprintln(w, ")")
	for _, leg := range it.Legs {
		if leg.Found() {
			fmt.Fprintf(w, "  %-6s %s\n", leg.Kind, explain.Offer(*leg.Chosen))
		} else {
			fmt.Fprintf(w, "  %-6s none\n", leg.Kind)
		}
	}
	fmt.Fprintln(w, "\nWhy:")
	for _, line := range it.Explanation {
		fmt.Fprintf(w, "  - %s\n", line)
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	var timeout time.Duration
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			planner, comp, err := loadPlanner(ctx, log)
			if err != nil {
				return err
			}
			defer comp.Close()

			srv := server.New(server.Config{
				Addr:           addr,
				Log:            log,
				Planner:        planner,
				Timeout:        timeout,
				AllowedOrigins: origins,
			})
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("TRIPLAN_ADDR", ":8080"), "Listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin, repeatable (default: any)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [feed files...]",
		Short: "Load offers from YAML, JSONL, HTML or fact feeds into the SQLite catalog",
		Long: "Load offers into the database named by --db. Without feed files the\n" +
			"bundled demo catalog is loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("seed needs --db or TRIPLAN_DB")
			}
			log := newLogger()
			gazetteer, err := loadPlaces()
			if err != nil {
				return err
			}

			var offers []catalog.Offer
			if len(args) == 0 {
				offers = config.Seed()
			}
			for _, path := range args {
				loaded, err := feed.Load(path, log)
				if err != nil {
					return fmt.Errorf("load %s: %w", path, err)
				}
				log.Info().Str("file", path).Int("offers", len(loaded)).Msg("feed loaded")
				offers = append(offers, gazetteer.Offers(loaded)...)
			}

			db, err := sqlite.OpenSQLite(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.UpsertOffers(cmd.Context(), offers); err != nil {
				return err
			}
			total, err := db.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d offers (%d in catalog)\n", len(offers), total)
			return nil
		},
	}
}

func newCheckPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-policy [policy.yaml]",
		Short: "Validate a relaxation policy and print its strategy order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := policyPath
			if len(args) == 1 {
				path = args[0]
			}
			p := policy.Default()
			if path != "" {
				loaded, err := policy.Load(path)
				if err != nil {
					return err
				}
				p = loaded
			}

			out := cmd.OutOrStdout()
			for _, kind := range catalog.Kinds {
				fmt.Fprintf(out, "%s:", kind)
				strategies := p.Strategies(kind)
				if len(strategies) == 0 {
					fmt.Fprint(out, " (no relaxation)")
				}
				for _, s := range strategies {
					fmt.Fprintf(out, " %s", s.Type())
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, "policy ok")
			return nil
		},
	}
}

func newExportFactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-facts [feed files...]",
		Short: "Print offers as relation(subject, object) facts",
		Long: "Convert feed files to facts, or export the configured catalog when\n" +
			"no files are given. Only available offers are exported from a catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			var offers []catalog.Offer

			if len(args) > 0 {
				for _, path := range args {
					loaded, err := feed.Load(path, log)
					if err != nil {
						return fmt.Errorf("load %s: %w", path, err)
					}
					offers = append(offers, loaded...)
				}
			} else {
				loader := config.Loader{CatalogPath: catalogPath, FactsPath: factsPath, DBPath: dbPath, PlacesPath: placesPath, UseSeed: true}
				comp, err := loader.Load(cmd.Context())
				if err != nil {
					return err
				}
				defer comp.Close()
				for _, kind := range catalog.Kinds {
					found, err := catalog.Collect(comp.Catalog.Find(cmd.Context(), kind, catalog.Filter{}))
					if err != nil {
						return err
					}
					offers = append(offers, found...)
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), factcatalog.Export(offers))
			return nil
		},
	}
}
