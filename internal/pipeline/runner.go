// Package pipeline runs an application through planning, the three
// independent verification stages, critique and the final decision, writing
// every step through to the application store.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/scoring"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal"
	"loanverify/internal/errors"
	"loanverify/internal/narrative"
	"loanverify/internal/stages"
	"loanverify/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Stages bundles the five stage implementations a runner drives
type Stages struct {
	Credit     stages.CreditAssessor
	Employment stages.EmploymentAssessor
	Collateral stages.CollateralAssessor
	Critic     stages.Critic
	Decider    stages.Decider
}

// DefaultStages builds the production stages over one parameter table
func DefaultStages(params scoring.Parameters) Stages {
	return Stages{
		Credit:     stages.NewCreditStage(params),
		Employment: stages.NewEmploymentStage(params),
		Collateral: stages.NewCollateralStage(params),
		Critic:     stages.NewCritiqueStage(params),
		Decider:    stages.NewDecisionStage(params),
	}
}

// Runner is constructed once per process and shared by every transport
type Runner struct {
	stages  Stages
	params  scoring.Parameters
	store   ports.ApplicationStore
	ids     ports.IDGenerator
	planner *Planner
	policy  FailurePolicy
	logger  *internal.Logger

	fingerprint string
}

// Option configures a Runner
type Option func(*Runner)

func WithStages(s Stages) Option { return func(r *Runner) { r.stages = s } }

func WithPolicy(p FailurePolicy) Option { return func(r *Runner) { r.policy = p } }

func WithLogger(l *internal.Logger) Option { return func(r *Runner) { r.logger = l.With("Pipeline") } }

func WithIDGenerator(g ports.IDGenerator) Option { return func(r *Runner) { r.ids = g } }

// NewRunner wires a runner over the parameter table and store. Stages default
// to the production implementations and the policy to abort.
func NewRunner(params scoring.Parameters, store ports.ApplicationStore, opts ...Option) *Runner {
	r := &Runner{
		stages:  DefaultStages(params),
		params:  params,
		store:   store,
		ids:     core.NewIDGenerator(),
		planner: NewPlanner(),
		policy:  PolicyAbort,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = internal.NewDefaultLogger().With("Pipeline")
	}
	r.fingerprint = params.Fingerprint().Short()
	return r
}

// Policy returns the configured failure policy
func (r *Runner) Policy() FailurePolicy {
	return r.policy
}

// Planner returns the runner's planner
func (r *Runner) Planner() *Planner {
	return r.planner
}

// verification collects the three independent verdicts and per-stage errors.
// Each goroutine writes only its own verdict field; the maps are guarded.
type verification struct {
	verdicts  verdict.Verdicts
	errs      map[stage.StageName]error
	durations map[stage.StageName]int64
}

// Evaluate validates the application, runs every stage and returns the
// decision record. Invalid input never reaches the stages and is not stored.
func (r *Runner) Evaluate(ctx context.Context, app application.Application) (*Record, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}

	id := r.ids.NewApplicationID()
	if err := r.store.Create(ctx, application.NewRecord(id, app)); err != nil {
		return nil, errors.Wrapf(err, "create application %s", id)
	}
	r.logger.Info("%s processing started for %s", id, app.Name)

	rec, err := r.run(ctx, id, app)
	if err != nil {
		if markErr := r.store.MarkFailed(ctx, id); markErr != nil {
			r.logger.Error("%s could not mark application failed: %v", id, markErr)
		}
		return nil, err
	}

	r.logger.Info("%s processing complete: decision=%s risk=%s", id, rec.Decision, narrative.Percent(rec.RiskScore))
	return rec, nil
}

func (r *Runner) run(ctx context.Context, id core.ApplicationID, app application.Application) (*Record, error) {
	greetedAt := core.Now()
	greeting := narrative.Greeting(app.Name, id.String())

	if err := r.store.UpdateStage(ctx, id, stage.PhasePlanning); err != nil {
		return nil, errors.Wrap(err, "update stage")
	}
	plan := r.planner.Plan(app)
	if err := r.saveResult(ctx, id, stage.StagePlanning, plan, 0); err != nil {
		return nil, err
	}

	if err := r.store.UpdateStage(ctx, id, stage.PhaseVerification); err != nil {
		return nil, errors.Wrap(err, "update stage")
	}
	ver := r.verify(ctx, id, app)

	degraded, err := r.settleVerification(ctx, id, &ver)
	if err != nil {
		return nil, err
	}
	v := ver.verdicts

	if err := r.store.UpdateStage(ctx, id, stage.PhaseCritique); err != nil {
		return nil, errors.Wrap(err, "update stage")
	}
	var critique verdict.CritiqueResult
	start := time.Now()
	err = r.guard(id, stage.StageCritique, func() (err error) {
		critique, err = r.stages.Critic.Critique(ctx, v)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, id, stage.StageCritique, err)
	}
	if err := r.saveResult(ctx, id, stage.StageCritique, critique, time.Since(start).Milliseconds()); err != nil {
		return nil, err
	}
	r.logger.Debug("%s critique complete: %d finding(s), confidence %.2f", id, len(critique.Findings), critique.ConfidenceScore)

	if err := r.store.UpdateStage(ctx, id, stage.PhaseFinalDecision); err != nil {
		return nil, errors.Wrap(err, "update stage")
	}
	var decision verdict.Decision
	start = time.Now()
	err = r.guard(id, stage.StageDecision, func() (err error) {
		decision, err = r.stages.Decider.Decide(ctx, v, critique)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, id, stage.StageDecision, err)
	}
	if err := r.saveResult(ctx, id, stage.StageDecision, decision, time.Since(start).Milliseconds()); err != nil {
		return nil, err
	}
	if err := r.store.SaveDecision(ctx, id, decision); err != nil {
		return nil, errors.Wrap(err, "save decision")
	}

	return &Record{
		ApplicationID:     id,
		Status:            stage.StatusCompleted,
		Decision:          decision.Outcome,
		RiskScore:         decision.RiskScore,
		Confidence:        critique.ConfidenceScore,
		Reasoning:         decision.Reasoning,
		Conditions:        decision.Conditions,
		Summary:           summarize(greeting, greetedAt, plan, v, critique, decision),
		Plan:              plan,
		Greeting:          greeting,
		DegradedStages:    degraded,
		ParamsFingerprint: r.fingerprint,
		Timestamp:         core.Now(),
		Application:       app,
		Verdicts:          v,
		Critique:          critique,
		Detail:            decision,
	}, nil
}

// verify runs the three independent stages concurrently and waits for all of
// them. A failure in one never prevents the others from running.
func (r *Runner) verify(ctx context.Context, id core.ApplicationID, app application.Application) verification {
	var (
		mu  sync.Mutex
		out = verification{
			errs:      make(map[stage.StageName]error, 3),
			durations: make(map[stage.StageName]int64, 3),
		}
	)
	record := func(name stage.StageName, start time.Time, err error) error {
		mu.Lock()
		defer mu.Unlock()
		out.durations[name] = time.Since(start).Milliseconds()
		if err != nil {
			out.errs[name] = err
		}
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		err := r.guard(id, stage.StageCredit, func() (err error) {
			out.verdicts.Credit, err = r.stages.Credit.AssessCredit(ctx, app)
			return err
		})
		return record(stage.StageCredit, start, err)
	})
	g.Go(func() error {
		start := time.Now()
		err := r.guard(id, stage.StageEmployment, func() (err error) {
			out.verdicts.Employment, err = r.stages.Employment.AssessEmployment(ctx, app)
			return err
		})
		return record(stage.StageEmployment, start, err)
	})
	g.Go(func() error {
		start := time.Now()
		err := r.guard(id, stage.StageCollateral, func() (err error) {
			out.verdicts.Collateral, err = r.stages.Collateral.AssessCollateral(ctx, app)
			return err
		})
		return record(stage.StageCollateral, start, err)
	})

	if err := g.Wait(); err != nil {
		r.logger.Debug("%s verification finished with %d failed stage(s)", id, len(out.errs))
	}
	return out
}

// settleVerification logs every verification outcome in stage order and
// applies the failure policy, substituting worst-case verdicts in ver under
// degrade. It returns the stages that were degraded.
func (r *Runner) settleVerification(ctx context.Context, id core.ApplicationID, ver *verification) ([]stage.StageName, error) {
	var (
		firstErr error
		degraded []stage.StageName
	)

	for _, name := range stage.VerificationStages {
		if err, failed := ver.errs[name]; failed {
			r.logger.Error("%s stage %s failed: %v", id, name, err)
			if saveErr := r.store.SaveStageResult(ctx, stage.NewFailedStageResult(id, name, err)); saveErr != nil {
				return nil, errors.Wrap(saveErr, "save stage result")
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		payload, detail := r.verdictFor(name, ver.verdicts)
		r.logger.Debug("%s %s stage complete: %s", id, name, detail)
		if err := r.saveResult(ctx, id, name, payload, ver.durations[name]); err != nil {
			return nil, err
		}
	}

	if firstErr == nil {
		return nil, nil
	}
	if r.policy != PolicyDegrade {
		return nil, firstErr
	}

	for _, name := range stage.VerificationStages {
		if _, failed := ver.errs[name]; !failed {
			continue
		}
		switch name {
		case stage.StageCredit:
			ver.verdicts.Credit = stages.WorstCaseCredit(r.params)
		case stage.StageEmployment:
			ver.verdicts.Employment = stages.WorstCaseEmployment()
		case stage.StageCollateral:
			ver.verdicts.Collateral = stages.WorstCaseCollateral(r.params)
		}
		degraded = append(degraded, name)
		r.logger.Warn("%s stage %s degraded to worst-case verdict", id, name)
	}
	return degraded, nil
}

func (r *Runner) verdictFor(name stage.StageName, v verdict.Verdicts) (interface{}, string) {
	switch name {
	case stage.StageCredit:
		return v.Credit, fmt.Sprintf("score %.0f, risk %s", v.Credit.CreditScore, v.Credit.RiskCategory)
	case stage.StageEmployment:
		return v.Employment, fmt.Sprintf("stability %s, passed %t", v.Employment.Stability, v.Employment.Passed)
	default:
		return v.Collateral, fmt.Sprintf("coverage %.2f, passed %t", v.Collateral.EffectiveCoverage, v.Collateral.Passed)
	}
}

// guard runs fn, converting returned errors and panics into a StageError
// tagged with the stage and application
func (r *Runner) guard(id core.ApplicationID, name stage.StageName, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.ComputationError(name.String(), id.String(), fmt.Errorf("%w: panic: %v", core.ErrStageFailed, rec))
		}
	}()
	if err := fn(); err != nil {
		if _, ok := errors.AsStageError(err); ok {
			return err
		}
		return errors.ComputationError(name.String(), id.String(), err)
	}
	return nil
}

// fail logs and records a synthesis-stage failure, which always aborts
func (r *Runner) fail(ctx context.Context, id core.ApplicationID, name stage.StageName, err error) error {
	r.logger.Error("%s stage %s failed: %v", id, name, err)
	if saveErr := r.store.SaveStageResult(ctx, stage.NewFailedStageResult(id, name, err)); saveErr != nil {
		r.logger.Error("%s could not record %s failure: %v", id, name, saveErr)
	}
	return err
}

func (r *Runner) saveResult(ctx context.Context, id core.ApplicationID, name stage.StageName, payload interface{}, durationMs int64) error {
	result, err := stage.NewStageResult(id, name, payload, durationMs)
	if err != nil {
		return errors.ComputationError(name.String(), id.String(), fmt.Errorf("encode result: %w", err))
	}
	if err := r.store.SaveStageResult(ctx, result); err != nil {
		return errors.Wrapf(err, "save %s result", name)
	}
	return nil
}

// BatchResult pairs an input position with its outcome
type BatchResult struct {
	Index  int
	Record *Record
	Err    error
}

// EvaluateBatch evaluates apps with at most concurrency runs in flight.
// Results come back in input order.
func (r *Runner) EvaluateBatch(ctx context.Context, apps []application.Application, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make([]BatchResult, len(apps))

	var wg sync.WaitGroup
	for i, app := range apps {
		results[i].Index = i
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Err = err
			continue
		}
		wg.Add(1)
		go func(i int, app application.Application) {
			defer wg.Done()
			defer sem.Release(1)
			results[i].Record, results[i].Err = r.Evaluate(ctx, app)
		}(i, app)
	}
	wg.Wait()

	r.logger.Info("batch of %d applications evaluated (concurrency %d)", len(apps), concurrency)
	return results
}
