package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/timetable"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/events"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/jobs"
)

// RunFinishedEvent is the event type published when a run ends.
const RunFinishedEvent = "timetable.run.finished"

// progressEvery throttles how often a running search pushes progress to
// subscribers when its best penalty does not change.
const progressEvery = 25

type catalogResolver interface {
	Resolve(ctx context.Context, p *dto.CatalogPayload) (*catalog.Resolved, error)
}

// TimetableConfig wires the solver defaults and the run queue.
type TimetableConfig struct {
	Solver config.SolverConfig
	Runs   config.RunsConfig
}

// RunOutcome is a finished run's schedule, ready for rendering.
type RunOutcome struct {
	ID       string
	Resolved *catalog.Resolved
	Schedule timetable.Schedule
	History  []int
}

// TimetableService answers synchronous solves and evaluations and runs
// asynchronous searches on a bounded queue.
type TimetableService struct {
	cfg       TimetableConfig
	catalogs  catalogResolver
	validator *validator.Validate
	metrics   *MetricsService
	publisher events.Publisher
	logger    *zap.Logger

	runs  *runStore
	queue *jobs.Queue
	now   func() time.Time
	seed  func() int64
}

// NewTimetableService builds the service. Call Start before submitting runs.
func NewTimetableService(cfg TimetableConfig, catalogs catalogResolver, validate *validator.Validate, metrics *MetricsService, publisher events.Publisher, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Solver.Timeout <= 0 {
		cfg.Solver.Timeout = 5 * time.Minute
	}

	svc := &TimetableService{
		cfg:       cfg,
		catalogs:  catalogs,
		validator: validate,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
	svc.runs = newRunStore(cfg.Runs.RetainFor, func() time.Time { return svc.now() })
	svc.queue = jobs.NewQueue("timetable-runs", svc.handleRun, jobs.Config{
		Workers:  cfg.Runs.Workers,
		Capacity: cfg.Runs.QueueSize,
		Logger:   logger,
	})
	return svc
}

// Start launches the run workers.
func (s *TimetableService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels running searches and waits for the workers.
func (s *TimetableService) Stop() {
	s.queue.Stop()
}

// Solve runs one search and waits for it. A timeout returns the best
// schedule found so far flagged as interrupted.
func (s *TimetableService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	resolved, cfg, seed, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.Solver.Timeout)
	defer cancel()

	res, err := s.search(searchCtx, resolved, cfg, seed, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "request cancelled")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.FromError(err)
		}
	}
	resp := s.respond(resolved, res, seed, err != nil)
	return &resp, nil
}

// Evaluate scores a supplied schedule against the catalog.
func (s *TimetableService) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	resolved, err := s.catalogs.Resolve(ctx, req.Catalog)
	if err != nil {
		return nil, err
	}

	schedule := catalog.ToSchedule(req.Assignments)
	if err := timetable.CheckPlacements(resolved.Catalog, schedule); err != nil {
		return nil, err
	}

	breakdown := timetable.Analyze(resolved.Catalog, schedule)
	resp := &dto.EvaluateResponse{
		Penalty:     breakdown.Total(),
		Breakdown:   catalog.Breakdown(breakdown),
		Assignments: resolved.Views(schedule),
	}
	var drift *appErrors.Error
	if err := timetable.CheckSessions(resolved.Catalog, schedule); err != nil && errors.As(err, &drift) {
		resp.SessionDrift = drift.Message
	}
	return resp, nil
}

// StartRun validates the request and queues an asynchronous search.
func (s *TimetableService) StartRun(ctx context.Context, req dto.SolveRequest) (*dto.RunView, error) {
	resolved, cfg, seed, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &runRecord{
		id:        uuid.NewString(),
		status:    models.RunPending,
		seed:      seed,
		createdAt: s.now().UTC(),
		resolved:  resolved,
		cfg:       cfg,
	}
	s.runs.add(run)
	if err := s.queue.Enqueue(jobs.Job{ID: run.id, Payload: run.id}); err != nil {
		s.runs.remove(run.id)
		return nil, err
	}

	s.logger.Info("timetable run queued", zap.String("run_id", run.id), zap.Int64("seed", seed))
	view, _ := s.runs.view(run.id)
	return &view, nil
}

// GetRun returns a run with its result when finished.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*dto.RunView, error) {
	view, ok := s.runs.view(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	return &view, nil
}

// ListRuns returns known runs, newest first, without their schedules.
func (s *TimetableService) ListRuns(ctx context.Context) []dto.RunView {
	return s.runs.list()
}

// CancelRun stops a pending or running search. A running search finishes as
// CANCELLED with the best schedule found so far.
func (s *TimetableService) CancelRun(ctx context.Context, id string) (*dto.RunView, error) {
	var conflict bool
	view, ok := s.runs.update(id, func(r *runRecord) {
		switch {
		case r.status.Terminal():
			conflict = true
		case r.status == models.RunPending:
			r.status = models.RunCancelled
			r.finishedAt = s.now().UTC()
			r.err = "cancelled before start"
		default:
			r.cancelRequested = true
			if r.cancel != nil {
				r.cancel()
			}
		}
	})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run already finished")
	}
	if view.Status == string(models.RunCancelled) {
		s.publish(ctx, view)
	}
	return &view, nil
}

// Subscribe streams a run's state until it is terminal. The caller must call
// release when it stops reading.
func (s *TimetableService) Subscribe(id string) (<-chan dto.RunView, func(), error) {
	ch, release, ok := s.runs.subscribe(id)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	return ch, release, nil
}

// Outcome returns the schedule of a run that produced one.
func (s *TimetableService) Outcome(ctx context.Context, id string) (*RunOutcome, error) {
	var out *RunOutcome
	var status models.RunStatus
	ok := s.runs.read(id, func(r *runRecord) {
		status = r.status
		if r.schedule != nil {
			out = &RunOutcome{ID: r.id, Resolved: r.resolved, Schedule: r.schedule, History: r.history}
		}
	})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	if out == nil {
		return nil, appErrors.Clone(appErrors.ErrRunNotFinished, fmt.Sprintf("run is %s", status))
	}
	return out, nil
}

func (s *TimetableService) handleRun(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Solver.Timeout)
	defer cancel()

	var (
		resolved *catalog.Resolved
		cfg      timetable.Config
		seed     int64
		skip     bool
	)
	_, ok := s.runs.update(id, func(r *runRecord) {
		if r.status != models.RunPending {
			skip = true
			return
		}
		r.status = models.RunRunning
		r.startedAt = s.now().UTC()
		r.cancel = cancel
		resolved, cfg, seed = r.resolved, r.cfg, r.seed
	})
	if !ok || skip {
		return nil
	}

	s.metrics.RunStarted()
	defer s.metrics.RunFinished()

	last := -1
	progress := func(p timetable.Progress) {
		if p.BestPenalty == last && p.Generation%progressEvery != 0 {
			return
		}
		last = p.BestPenalty
		s.runs.update(id, func(r *runRecord) {
			r.progress = &dto.RunProgress{Generation: p.Generation, BestPenalty: p.BestPenalty}
		})
	}

	res, err := s.search(runCtx, resolved, cfg, seed, progress)
	view, _ := s.runs.update(id, func(r *runRecord) {
		r.finishedAt = s.now().UTC()
		r.cancel = nil
		interrupted := err != nil
		switch {
		case err == nil || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !r.cancelRequested):
			r.status = models.RunSucceeded
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			r.status = models.RunCancelled
			r.err = "search cancelled"
		default:
			r.status = models.RunFailed
			r.err = err.Error()
			interrupted = false
		}
		if res.Best != nil {
			resp := s.respond(resolved, res, seed, interrupted)
			r.result = &resp
			r.schedule = res.Best
			r.history = res.History
			r.progress = &dto.RunProgress{Generation: res.Generations - 1, BestPenalty: res.Penalty}
		}
	})

	s.logger.Info("timetable run finished",
		zap.String("run_id", id),
		zap.String("status", view.Status),
		zap.Int("penalty", res.Penalty),
		zap.Int("generations", res.Generations),
	)
	s.publish(context.WithoutCancel(ctx), view)
	return nil
}

func (s *TimetableService) publish(ctx context.Context, view dto.RunView) {
	event := models.RunEvent{
		Type:   RunFinishedEvent,
		RunID:  view.ID,
		Status: models.RunStatus(view.Status),
		Seed:   view.Seed,
		Error:  view.Error,
	}
	if view.Result != nil {
		event.Penalty = view.Result.Penalty
		event.Perfect = view.Result.Perfect
		event.Generations = view.Result.Generations
		event.ElapsedMS = view.Result.ElapsedMS
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish run event", zap.String("run_id", view.ID), zap.Error(err))
	}
}

// prepare validates a request and resolves everything a search needs.
func (s *TimetableService) prepare(ctx context.Context, req dto.SolveRequest) (*catalog.Resolved, timetable.Config, int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, timetable.Config{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	cfg, err := s.searchConfig(req.Options)
	if err != nil {
		return nil, timetable.Config{}, 0, err
	}
	resolved, err := s.catalogs.Resolve(ctx, req.Catalog)
	if err != nil {
		return nil, timetable.Config{}, 0, err
	}
	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	return resolved, cfg, seed, nil
}

// searchConfig layers request overrides on the configured defaults.
func (s *TimetableService) searchConfig(o dto.SolverOptions) (timetable.Config, error) {
	d := s.cfg.Solver
	cfg := timetable.DefaultConfig()
	setInt(&cfg.PopulationSize, d.PopulationSize, o.PopulationSize)
	setInt(&cfg.MaxGenerations, d.MaxGenerations, o.MaxGenerations)
	setInt(&cfg.EliteCount, d.EliteCount, o.EliteCount)
	setInt(&cfg.TournamentSize, d.TournamentSize, o.TournamentSize)
	setInt(&cfg.LocalSearchIterations, d.LocalSearchIterations, o.LocalSearchIterations)
	setInt(&cfg.PlacementAttempts, d.PlacementAttempts, nil)
	setInt(&cfg.MutationThreshold, d.MutationThreshold, nil)
	setInt(&cfg.Workers, d.Workers, o.Workers)
	setFloat(&cfg.LowMutationRate, d.LowMutationRate, o.LowMutationRate)
	setFloat(&cfg.HighMutationRate, d.HighMutationRate, o.HighMutationRate)

	if d.MaxPopulationSize > 0 && cfg.PopulationSize > d.MaxPopulationSize {
		return timetable.Config{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("population size must not exceed %d", d.MaxPopulationSize))
	}
	if d.MaxGenerationsLimit > 0 && cfg.MaxGenerations > d.MaxGenerationsLimit {
		return timetable.Config{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("max generations must not exceed %d", d.MaxGenerationsLimit))
	}
	if err := cfg.Validate(); err != nil {
		return timetable.Config{}, err
	}
	return cfg, nil
}

func setInt(dst *int, configured int, override *int) {
	if configured > 0 {
		*dst = configured
	}
	if override != nil {
		*dst = *override
	}
}

func setFloat(dst *float64, configured float64, override *float64) {
	if configured > 0 {
		*dst = configured
	}
	if override != nil {
		*dst = *override
	}
}

func (s *TimetableService) search(ctx context.Context, resolved *catalog.Resolved, cfg timetable.Config, seed int64, progress timetable.ProgressFunc) (timetable.Result, error) {
	solver, err := timetable.NewSolver(cfg, s.logger.With(zap.Int64("seed", seed)))
	if err != nil {
		return timetable.Result{}, err
	}
	res, err := solver.Solve(ctx, resolved.Catalog, rand.New(rand.NewSource(seed)), progress)

	outcome := "exhausted"
	switch {
	case err != nil && res.Best == nil:
		outcome = "failed"
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	case res.Perfect:
		outcome = "perfect"
	}
	s.metrics.ObserveSearch(outcome, res.Generations, res.Penalty, res.Elapsed)
	return res, err
}

func (s *TimetableService) respond(resolved *catalog.Resolved, res timetable.Result, seed int64, interrupted bool) dto.SolveResponse {
	return dto.SolveResponse{
		Seed:        seed,
		Penalty:     res.Penalty,
		Perfect:     res.Perfect,
		Generation:  res.Generation,
		Generations: res.Generations,
		Interrupted: interrupted,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Breakdown:   catalog.Breakdown(timetable.Analyze(resolved.Catalog, res.Best)),
		Assignments: resolved.Views(res.Best),
		History:     downsample(res.History, s.cfg.Runs.MaxHistory),
	}
}

// downsample keeps at most limit evenly spaced points, always including the
// first and the last.
func downsample(history []int, limit int) []int {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	if limit == 1 {
		return []int{history[len(history)-1]}
	}
	out := make([]int, limit)
	last := len(history) - 1
	for i := range out {
		out[i] = history[i*last/(limit-1)]
	}
	return out
}
