package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/report"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/timetable"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/export"
)

type solveOptions struct {
	seed          int64
	format        string
	output        string
	population    int
	generations   int
	elite         int
	workers       int
	progressEvery int
	showInitial   bool
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "search for a timetable and print or save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 0, "random seed; drawn from the clock when 0")
	f.StringVarP(&opts.format, "format", "f", "txt", "output format: csv, pdf, xlsx, html or txt")
	f.StringVarP(&opts.output, "output", "o", "", "output file; text formats go to stdout when empty")
	f.IntVar(&opts.population, "population", 0, "population size override")
	f.IntVar(&opts.generations, "generations", 0, "generation budget override")
	f.IntVar(&opts.elite, "elite", 0, "elite count override; must stay below the population size")
	f.IntVar(&opts.workers, "workers", 0, "concurrent offspring builders override")
	f.IntVar(&opts.progressEvery, "progress-every", 100, "print the best penalty every n generations; 0 disables")
	f.BoolVar(&opts.showInitial, "show-initial", false, "print one random schedule before searching")
	return cmd
}

func runSolve(cmd *cobra.Command, root *rootOptions, opts *solveOptions) error {
	out := cmd.OutOrStdout()

	renderer, err := export.ForFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.output == "" && !textFormat(renderer.Extension()) {
		return fmt.Errorf("--output is required for %s", renderer.Extension())
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := root.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	resolved, err := root.loadCatalog()
	if err != nil {
		return err
	}

	searchCfg := solverConfig(cfg.Solver, opts)
	solver, err := timetable.NewSolver(searchCfg, logr)
	if err != nil {
		return fmt.Errorf("solver config: %w", err)
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintln(out, "Problem:")
	printLines(out, report.Overview(resolved))
	fmt.Fprintf(out, "Seed: %d\n", seed)

	if opts.showInitial {
		initial := timetable.RandomSchedule(resolved.Catalog, rand.New(rand.NewSource(seed^0x5eed)))
		body, err := export.NewTextExporter().Render(report.Document(resolved, initial, "Initial random schedule", nil))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", body)
	}

	progress := func(p timetable.Progress) {
		if opts.progressEvery > 0 && p.Generation%opts.progressEvery == 0 {
			fmt.Fprintf(out, "Generation %d: best penalty %d (mutation rate %.2f)\n", p.Generation, p.BestPenalty, p.MutationRate)
		}
	}

	res, err := solver.Solve(cmd.Context(), resolved.Catalog, rand.New(rand.NewSource(seed)), progress)
	switch {
	case err != nil && res.Best == nil:
		return err
	case err != nil:
		fmt.Fprintf(out, "Search interrupted: %v\n", err)
	}
	if checkErr := timetable.CheckSessions(resolved.Catalog, res.Best); checkErr != nil {
		return checkErr
	}

	if res.Perfect {
		fmt.Fprintf(out, "Perfect schedule found at generation %d\n", res.Generation)
	} else {
		fmt.Fprintf(out, "Best penalty %d after %d generations\n", res.Penalty, res.Generations)
	}
	logr.Info("search finished", zap.Int64("seed", seed), zap.Int("penalty", res.Penalty), zap.Duration("elapsed", res.Elapsed))

	title := "Final schedule"
	if resolved.Name != "" {
		title = fmt.Sprintf("Final schedule %s", resolved.Name)
	}
	body, err := renderer.Render(report.Document(resolved, res.Best, title, res.History))
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err = fmt.Fprintf(out, "\n%s", body)
		return err
	}
	if err := os.WriteFile(opts.output, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	fmt.Fprintf(out, "Wrote %s (%d bytes)\n", opts.output, len(body))
	return nil
}

func textFormat(ext string) bool {
	return ext == "txt" || ext == "csv"
}

// solverConfig layers configured defaults and flag overrides onto the
// built-in tuning.
func solverConfig(d config.SolverConfig, opts *solveOptions) timetable.Config {
	cfg := timetable.DefaultConfig()
	for _, o := range []struct {
		dst    *int
		values []int
	}{
		{&cfg.PopulationSize, []int{d.PopulationSize, opts.population}},
		{&cfg.MaxGenerations, []int{d.MaxGenerations, opts.generations}},
		{&cfg.EliteCount, []int{d.EliteCount, opts.elite}},
		{&cfg.TournamentSize, []int{d.TournamentSize}},
		{&cfg.LocalSearchIterations, []int{d.LocalSearchIterations}},
		{&cfg.PlacementAttempts, []int{d.PlacementAttempts}},
		{&cfg.MutationThreshold, []int{d.MutationThreshold}},
		{&cfg.Workers, []int{d.Workers, opts.workers}},
	} {
		for _, v := range o.values {
			if v > 0 {
				*o.dst = v
			}
		}
	}
	if d.LowMutationRate > 0 {
		cfg.LowMutationRate = d.LowMutationRate
	}
	if d.HighMutationRate > 0 {
		cfg.HighMutationRate = d.HighMutationRate
	}
	return cfg
}
