// Package job runs one migration: every configured object task through validation, repair,
// reporting, counting, deletion of old target data and the write itself.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/cache"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/task"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const module = "job"

// ParentSetter is implemented by sinks that attach their output to the run's root span.
type ParentSetter interface {
	SetParent(ctx context.Context)
}

// Summary is the outcome of a run.
type Summary struct {
	RunID    string
	Issues   []model.CSVIssue
	Written  map[string]int
	Failed   map[string]int
	Deleted  []string
	Duration time.Duration
}

// Job owns the tasks of one run, in dependency order (parents first), and the record cache they share.
type Job struct {
	id           string
	tasks        *task.Set
	env          *task.Context
	cache        *cache.Cache
	reporter     port.IssueReporter
	abortOnFatal bool
	tracer       trace.Tracer
	parents      []ParentSetter
}

// Option configures a Job.
type Option func(*Job)

// WithReporter sets the issue reporter. Without one, issues are only returned in the Summary.
func WithReporter(r port.IssueReporter) Option {
	return func(j *Job) { j.reporter = r }
}

// WithTracer wraps the run in a root span.
func WithTracer(t trace.Tracer, parents ...ParentSetter) Option {
	return func(j *Job) {
		j.tracer = t
		j.parents = parents
	}
}

// WithAbortOnFatal selects whether the first fatal error stops the run.
func WithAbortOnFatal(abort bool) Option {
	return func(j *Job) { j.abortOnFatal = abort }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(j *Job) { j.id = id }
}

// New creates the tasks of defs in order, all sharing env. env.Siblings is replaced by the job's own task set.
func New(defs []task.Definition, env *task.Context, opts ...Option) (*Job, error) {
	if env == nil {
		env = &task.Context{}
	}
	j := &Job{
		id:           uuid.NewString(),
		tasks:        task.NewSet(),
		env:          env,
		abortOnFatal: true,
	}
	for _, opt := range opts {
		opt(j)
	}
	env.Siblings = j.tasks
	for _, def := range defs {
		t, err := task.New(def, env)
		if err != nil {
			return nil, exception.NewMigrationErrorf(module, "failed to create task for '%s'", def.Name, err)
		}
		j.tasks.Add(t)
	}
	j.cache = cache.New(env.Source.Files)
	return j, nil
}

// ID returns the run identifier.
func (j *Job) ID() string { return j.id }

// Tasks returns the tasks in run order.
func (j *Job) Tasks() []*task.Task { return j.tasks.Tasks() }

// TaskByName returns the task of an object.
func (j *Job) TaskByName(name string) (*task.Task, bool) { return j.tasks.TaskByName(name) }

// Cache returns the record cache of the run.
func (j *Job) Cache() *cache.Cache { return j.cache }

// Run executes every phase in order. With abort-on-fatal, the first fatal error ends the run.
// Otherwise fatal errors of individual objects are aggregated and the remaining work continues.
func (j *Job) Run(ctx context.Context) (summary *Summary, err error) {
	start := time.Now()
	summary = &Summary{RunID: j.id, Written: make(map[string]int), Failed: make(map[string]int)}

	if j.tracer != nil {
		var span trace.Span
		ctx, span = j.tracer.Start(ctx, "migrate.run", trace.WithAttributes(
			attribute.String("run.id", j.id),
			attribute.Int("run.objects", len(j.tasks.Tasks())),
		))
		for _, p := range j.parents {
			p.SetParent(ctx)
		}
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	logger.Infof("Run %s started with %d object(s).", j.id, len(j.tasks.Tasks()))
	defer func() {
		summary.Duration = time.Since(start)
		if err != nil {
			logger.Errorf("Run %s failed after %s: %v", j.id, summary.Duration, err)
			return
		}
		logger.Infof("Run %s completed in %s.", j.id, summary.Duration)
	}()

	var fatal error
	phases := []struct {
		name string
		fn   func(context.Context, *Summary) error
	}{
		{"validate", j.validate},
		{"repair", j.repair},
		{"report", j.report},
		{"count", j.count},
		{"delete", j.deleteOld},
		{"write", j.write},
	}
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		logger.Debugf("Run %s: %s phase.", j.id, p.name)
		if perr := p.fn(ctx, summary); perr != nil {
			if j.abortOnFatal || isInfrastructure(perr) {
				if fatal == nil {
					return summary, perr
				}
				return summary, multierror.Append(fatal, perr)
			}
			fatal = multierror.Append(fatal, perr)
		}
	}
	return summary, fatal
}

// isInfrastructure reports whether err is anything other than per-object command failures,
// which never lets the run continue.
func isInfrastructure(err error) bool {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			if isInfrastructure(e) {
				return true
			}
		}
		return false
	}
	return !exception.IsCommandExecutionError(err)
}

func (j *Job) validate(ctx context.Context, s *Summary) error {
	tasks := j.tasks.Tasks()
	results := make([][]model.CSVIssue, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		g.Go(func() error {
			issues, err := t.Validate(gctx)
			results[i] = issues
			return err
		})
	}
	err := g.Wait()
	for _, issues := range results {
		s.Issues = append(s.Issues, issues...)
	}
	return err
}

func (j *Job) repair(ctx context.Context, s *Summary) error {
	for _, t := range j.tasks.Tasks() {
		issues, err := t.Repair(ctx, j.cache)
		s.Issues = append(s.Issues, issues...)
		if err != nil {
			return err
		}
	}
	if j.env.Source.FileOnly && j.env.Source.Files != nil {
		return j.cache.Flush(ctx, j.env.Source.Files)
	}
	return nil
}

func (j *Job) report(ctx context.Context, s *Summary) error {
	if j.reporter == nil {
		return nil
	}
	return j.reporter.Report(ctx, s.Issues)
}

func (j *Job) count(ctx context.Context, _ *Summary) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range j.tasks.Tasks() {
		g.Go(func() error { return t.CountRecords(gctx) })
	}
	return g.Wait()
}

// deleteOld walks the tasks children first so no parent is deleted while records still point at it.
func (j *Job) deleteOld(ctx context.Context, s *Summary) error {
	tasks := j.tasks.Tasks()
	var result error
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		deleted, err := t.DeleteOldRecords(ctx)
		if err != nil {
			if j.abortOnFatal {
				return err
			}
			result = multierror.Append(result, err)
			continue
		}
		if deleted {
			s.Deleted = append(s.Deleted, t.Name())
		}
	}
	return result
}

func (j *Job) write(ctx context.Context, s *Summary) error {
	var result error
	for _, t := range j.tasks.Tasks() {
		records, err := t.RetrieveRecords(ctx, j.cache)
		if err != nil {
			return err
		}
		res, err := t.WriteRecords(ctx, records)
		if res != nil {
			s.Written[t.Name()] = len(res.Records) - res.Failed()
			s.Failed[t.Name()] = res.Failed()
		}
		if err != nil {
			if j.abortOnFatal || !exception.IsCommandExecutionError(err) {
				return err
			}
			result = multierror.Append(result, err)
			continue
		}
		logger.Infof("[%s] %s", t.Name(), describe(t, s))
	}
	return result
}

func describe(t *task.Task, s *Summary) string {
	if t.Operation() == model.OperationReadonly {
		return "read-only; nothing written."
	}
	return fmt.Sprintf("%s: %d succeeded, %d failed.", t.Operation(), s.Written[t.Name()], s.Failed[t.Name()])
}
