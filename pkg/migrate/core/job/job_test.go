package job_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/job"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/task"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/test"
)

type recordingReporter struct {
	calls  int
	issues []model.CSVIssue
}

func (r *recordingReporter) Report(_ context.Context, issues []model.CSVIssue) error {
	r.calls++
	r.issues = append(r.issues, issues...)
	return nil
}

type parentRecorder struct {
	ctx context.Context
}

func (p *parentRecorder) SetParent(ctx context.Context) { p.ctx = ctx }

func definitions() []task.Definition {
	return []task.Definition{
		{
			Name:       "Account",
			Operation:  model.OperationUpsert,
			ExternalID: "Name",
			Fields:     []model.FieldDescriptor{{Name: "Name", Write: true}},
		},
		{
			Name:       "Contact",
			Operation:  model.OperationUpsert,
			ExternalID: "LastName",
			Fields: []model.FieldDescriptor{
				{Name: "LastName", Write: true},
				{Name: "Account__c", ReferenceTo: "Account", ParentExternalID: "Name", Write: true},
			},
		},
	}
}

type fixture struct {
	store    *test.MemoryFileStore
	target   *test.MockAPIClient
	reporter *recordingReporter
	env      *task.Context
}

func newFixture() *fixture {
	f := &fixture{
		store:    test.NewMemoryFileStore(),
		target:   &test.MockAPIClient{},
		reporter: &recordingReporter{},
	}
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	f.store.Put("Contact.csv", model.NewRecordFromPairs("Id", "c1", "LastName", "Doe", "Account__r.Name", "Acme"))
	f.env = &task.Context{
		Source: task.Side{Name: "csvfile", FileOnly: true, Files: f.store},
		Target: task.Side{Name: "target", Client: f.target},
		Sink:   &test.CapturingSink{},
	}
	f.target.On("Query", mock.Anything, mock.Anything, false).Return(test.CountResult(0), nil)
	return f
}

func TestRun_MigratesParentsBeforeChildren(t *testing.T) {
	f := newFixture()
	f.target.On("SubmitCrudBatch", mock.Anything, "Account", mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(&port.CrudResult{Records: []port.RecordResult{{ID: "T1", Success: true}}}, nil).Once()
	f.target.On("SubmitCrudBatch", mock.Anything, "Contact", mock.MatchedBy(func(rs []*model.Record) bool {
		return len(rs) == 1 && rs[0].Get("Account__c") == "T1" && rs[0].Get("LastName") == "Doe"
	}), model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(&port.CrudResult{Records: []port.RecordResult{{ID: "T2", Success: true}}}, nil).Once()

	j, err := job.New(definitions(), f.env, job.WithReporter(f.reporter), job.WithRunID("run-1"))
	require.NoError(t, err)
	summary, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Empty(t, summary.Issues)
	assert.Equal(t, 1, f.reporter.calls)
	assert.Equal(t, map[string]int{"Account": 1, "Contact": 1}, summary.Written)
	assert.Empty(t, summary.Deleted)
	// The repaired child file is written back once; the untouched parent is not.
	assert.Equal(t, 1, f.store.Writes("Contact.csv"))
	assert.Equal(t, 0, f.store.Writes("Account.csv"))
	assert.Equal(t, "a1", f.store.Rows("Contact.csv")[0].Get("Account__c"))
	f.target.AssertExpectations(t)
}

func TestRun_ReportsValidationIssues(t *testing.T) {
	f := newFixture()
	f.store = test.NewMemoryFileStore()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	f.env.Source.Files = f.store
	f.target.On("SubmitCrudBatch", mock.Anything, "Account", mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(&port.CrudResult{Records: []port.RecordResult{{ID: "T1", Success: true}}}, nil).Once()

	j, err := job.New(definitions(), f.env, job.WithReporter(f.reporter))
	require.NoError(t, err)
	summary, err := j.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Issues, 1)
	assert.Equal(t, "Contact", summary.Issues[0].ChildObject)
	assert.Equal(t, model.IssueFileEmptyOrMissing, summary.Issues[0].Error)
	assert.Equal(t, summary.Issues, f.reporter.issues)
	f.target.AssertNotCalled(t, "SubmitCrudBatch", mock.Anything, "Contact", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_AbortsOnFatalError(t *testing.T) {
	f := newFixture()
	f.target.On("SubmitCrudBatch", mock.Anything, "Account", mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(nil, nil).Once()

	j, err := job.New(definitions(), f.env)
	require.NoError(t, err)
	_, err = j.Run(context.Background())

	var cmdErr *exception.CommandExecutionError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Account", cmdErr.Object)
	f.target.AssertNotCalled(t, "SubmitCrudBatch", mock.Anything, "Contact", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ContinuesAfterFatalErrorWhenNotAborting(t *testing.T) {
	f := newFixture()
	f.target.On("SubmitCrudBatch", mock.Anything, "Account", mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(nil, nil).Once()
	f.target.On("SubmitCrudBatch", mock.Anything, "Contact", mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(&port.CrudResult{Records: []port.RecordResult{{ID: "T2", Success: true}}}, nil).Once()

	j, err := job.New(definitions(), f.env, job.WithAbortOnFatal(false))
	require.NoError(t, err)
	summary, err := j.Run(context.Background())

	require.Error(t, err)
	assert.True(t, exception.IsCommandExecutionError(err))
	assert.Equal(t, 1, summary.Written["Contact"])
	f.target.AssertExpectations(t)
}

func TestRun_InfrastructureErrorAlwaysAborts(t *testing.T) {
	f := newFixture()
	f.store.ReadErr = assert.AnError

	j, err := job.New(definitions(), f.env, job.WithAbortOnFatal(false))
	require.NoError(t, err)
	_, err = j.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	f.target.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture()
	j, err := job.New(definitions(), f.env)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = j.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RecordsRootSpan(t *testing.T) {
	f := newFixture()
	f.target.On("SubmitCrudBatch", mock.Anything, mock.Anything, mock.Anything, model.OperationUpsert, mock.Anything, false, mock.Anything).
		Return(&port.CrudResult{Records: []port.RecordResult{{ID: "T", Success: true}}}, nil)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	parent := &parentRecorder{}

	j, err := job.New(definitions(), f.env, job.WithTracer(tp.Tracer("test"), parent))
	require.NoError(t, err)
	_, err = j.Run(context.Background())
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "migrate.run", spans[0].Name())
	require.NotNil(t, parent.ctx)
	assert.Equal(t, spans[0].SpanContext().SpanID(), trace.SpanContextFromContext(parent.ctx).SpanID())
}

func TestNew_ExposesTasksInOrder(t *testing.T) {
	j, err := job.New(definitions(), &task.Context{})
	require.NoError(t, err)

	tasks := j.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Account", tasks[0].Name())
	contact, ok := j.TaskByName("Contact")
	require.True(t, ok)
	refs := tasks[0].ChildReferences()
	require.Len(t, refs, 1)
	assert.Equal(t, contact.Name(), refs[0].ChildObject)
	assert.NotEmpty(t, j.ID())
}

func TestNew_RejectsBadQuery(t *testing.T) {
	defs := definitions()
	defs[0].Query = "not a query"
	_, err := job.New(defs, &task.Context{})
	assert.Error(t, err)
}
