package timetable

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

// Config tunes the evolution loop.
type Config struct {
	PopulationSize        int
	MaxGenerations        int
	EliteCount            int
	TournamentSize        int
	LocalSearchIterations int
	PlacementAttempts     int
	// LowMutationRate applies once the best penalty drops below
	// MutationThreshold, HighMutationRate before that.
	LowMutationRate   float64
	HighMutationRate  float64
	MutationThreshold int
	// Workers above one builds offspring concurrently.
	Workers int
	// LogEvery controls how often a generation summary is logged.
	LogEvery int
}

// DefaultConfig returns the tuning used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		PopulationSize:        300,
		MaxGenerations:        2000,
		EliteCount:            20,
		TournamentSize:        3,
		LocalSearchIterations: 50,
		PlacementAttempts:     DefaultPlacementAttempts,
		LowMutationRate:       0.15,
		HighMutationRate:      0.30,
		MutationThreshold:     50,
		Workers:               1,
		LogEvery:              100,
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return appErrors.Clone(appErrors.ErrValidation, "population size must be at least 2")
	case c.MaxGenerations <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "max generations must be positive")
	case c.EliteCount < 0 || c.EliteCount >= c.PopulationSize:
		return appErrors.Clone(appErrors.ErrValidation, "elite count must be in [0, population size)")
	case c.TournamentSize < 1 || c.TournamentSize > c.PopulationSize:
		return appErrors.Clone(appErrors.ErrValidation, "tournament size must be in [1, population size]")
	case c.LocalSearchIterations < 0:
		return appErrors.Clone(appErrors.ErrValidation, "local search iterations must not be negative")
	case c.PlacementAttempts < 0:
		return appErrors.Clone(appErrors.ErrValidation, "placement attempts must not be negative")
	case c.LowMutationRate < 0 || c.LowMutationRate > 1 || c.HighMutationRate < 0 || c.HighMutationRate > 1:
		return appErrors.Clone(appErrors.ErrValidation, "mutation rates must be within [0, 1]")
	case c.Workers < 0:
		return appErrors.Clone(appErrors.ErrValidation, "workers must not be negative")
	}
	return nil
}

// MutationRate picks the rate for a generation whose best penalty is best.
func (c Config) MutationRate(best int) float64 {
	if best < c.MutationThreshold {
		return c.LowMutationRate
	}
	return c.HighMutationRate
}

// Progress is reported once per generation.
type Progress struct {
	Generation   int     `json:"generation"`
	BestPenalty  int     `json:"best_penalty"`
	MutationRate float64 `json:"mutation_rate"`
}

// ProgressFunc observes the search. It must not block for long; it runs on
// the search goroutine.
type ProgressFunc func(Progress)

// Result is the outcome of a search.
type Result struct {
	Best    Schedule `json:"best"`
	Penalty int      `json:"penalty"`
	// Perfect is false when the generation budget ran out before a zero
	// penalty schedule appeared.
	Perfect bool `json:"perfect"`
	// Generation is the index at which the perfect schedule was found, or
	// the last generation examined otherwise.
	Generation  int           `json:"generation"`
	Generations int           `json:"generations"`
	History     []int         `json:"history"`
	Elapsed     time.Duration `json:"elapsed"`
}

// historyPrealloc caps the up-front allocation for the per-generation history.
const historyPrealloc = 4096

// Solver runs the hybrid genetic search.
type Solver struct {
	cfg    Config
	logger *zap.Logger
}

// NewSolver validates cfg and returns a solver.
func NewSolver(cfg Config, logger *zap.Logger) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{cfg: cfg, logger: logger}, nil
}

// Config returns the solver's tuning.
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve evolves a population over c until a zero penalty schedule shows up
// or the generation budget is spent. ctx is checked at the start of every
// generation; on cancellation the best schedule so far is returned together
// with the context error.
func (s *Solver) Solve(ctx context.Context, c *Catalog, rng *rand.Rand, progress ProgressFunc) (Result, error) {
	if c == nil {
		return Result{}, appErrors.Clone(appErrors.ErrInvalidCatalog, "catalog is required")
	}
	if rng == nil {
		return Result{}, appErrors.Clone(appErrors.ErrInternal, "random source is required")
	}
	started := time.Now()

	population := make([]Individual, s.cfg.PopulationSize)
	for i := range population {
		population[i] = newIndividual(c, RandomSchedule(c, rng))
	}

	capacity := s.cfg.MaxGenerations
	if capacity > historyPrealloc {
		capacity = historyPrealloc
	}
	history := make([]int, 0, capacity)
	finish := func(generation int, perfect bool) Result {
		best := population[0]
		return Result{
			Best:        best.Schedule.Clone(),
			Penalty:     best.Penalty,
			Perfect:     perfect,
			Generation:  generation,
			Generations: len(history),
			History:     history,
			Elapsed:     time.Since(started),
		}
	}

	for gen := 0; gen < s.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			sortPopulation(population)
			res := finish(gen, false)
			s.logger.Info("timetable search cancelled", zap.Int("generation", gen), zap.Int("best_penalty", res.Penalty))
			return res, fmt.Errorf("search cancelled at generation %d: %w", gen, err)
		}

		sortPopulation(population)
		best := population[0].Penalty
		history = append(history, best)
		rate := s.cfg.MutationRate(best)
		if progress != nil {
			progress(Progress{Generation: gen, BestPenalty: best, MutationRate: rate})
		}
		if s.cfg.LogEvery > 0 && gen%s.cfg.LogEvery == 0 {
			s.logger.Debug("timetable generation", zap.Int("generation", gen), zap.Int("best_penalty", best), zap.Float64("mutation_rate", rate))
		}

		if best == 0 {
			res := finish(gen, true)
			s.logger.Info("timetable solution found", zap.Int("generation", gen), zap.Duration("elapsed", res.Elapsed))
			return res, nil
		}

		next := make([]Individual, 0, s.cfg.PopulationSize)
		next = append(next, population[:s.cfg.EliteCount]...)
		children, err := s.breed(c, population, s.cfg.PopulationSize-s.cfg.EliteCount, rate, rng)
		if err != nil {
			return finish(gen, false), err
		}
		population = append(next, children...)
	}

	sortPopulation(population)
	res := finish(s.cfg.MaxGenerations, population[0].Penalty == 0)
	s.logger.Info("timetable generation budget exhausted",
		zap.Int("generations", res.Generations),
		zap.Int("best_penalty", res.Penalty),
		zap.Bool("perfect", res.Perfect),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func sortPopulation(population []Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Penalty < population[j].Penalty
	})
}

// breed produces count offspring from the sorted population. With more than
// one worker each offspring gets its own generator seeded from rng up front,
// so the outcome is independent of goroutine scheduling.
func (s *Solver) breed(c *Catalog, population []Individual, count int, rate float64, rng *rand.Rand) ([]Individual, error) {
	children := make([]Individual, count)
	errs := make([]error, count)

	if s.cfg.Workers <= 1 {
		for i := range children {
			children[i], errs[i] = s.offspring(c, population, rate, rng)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return children, nil
	}

	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	jobs := make(chan int, count)
	for i := 0; i < count; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				local := rand.New(rand.NewSource(seeds[i]))
				children[i], errs[i] = s.offspring(c, population, rate, local)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return children, nil
}

func (s *Solver) offspring(c *Catalog, population []Individual, rate float64, rng *rand.Rand) (Individual, error) {
	p1 := TournamentSelect(population, s.cfg.TournamentSize, rng)
	p2 := TournamentSelect(population, s.cfg.TournamentSize, rng)
	child := Crossover(c, p1.Schedule, p2.Schedule, rng)
	Mutate(c, child, rate, rng)
	child = Refine(c, child, s.cfg.LocalSearchIterations, s.cfg.PlacementAttempts, rng)
	if err := CheckSessions(c, child); err != nil {
		return Individual{}, err
	}
	return newIndividual(c, child), nil
}
