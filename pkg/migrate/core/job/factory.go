package job

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/api/sqlapi"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/csvfile"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/component/report"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/task"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
)

// TracerName is the instrumentation name of the run span.
const TracerName = "github.com/tigerroll/surfin-migrate"

// StorageResolver resolves named storage connections.
type StorageResolver interface {
	Resolve(ctx context.Context, name string) (storageAdapter.StorageConnection, error)
}

// DatabaseResolver resolves named database connections.
type DatabaseResolver interface {
	Resolve(ctx context.Context, name string) (database.DBConnection, error)
}

// Factory builds a Job from the configuration.
type Factory struct {
	cfg       *config.Config
	storages  StorageResolver
	databases DatabaseResolver
	sinks     []event.Sink
}

// FactoryParams defines the dependencies for NewFactory.
type FactoryParams struct {
	fx.In
	Config    *config.Config
	Storages  *storageAdapter.Resolver
	Databases *database.Resolver
	Sinks     []event.Sink `group:"event_sinks"`
}

// NewFactory is the Fx constructor of Factory.
func NewFactory(p FactoryParams) *Factory {
	return NewFactoryWith(p.Config, p.Storages, p.Databases, p.Sinks...)
}

// NewFactoryWith creates a Factory over explicit resolvers.
func NewFactoryWith(cfg *config.Config, storages StorageResolver, databases DatabaseResolver, sinks ...event.Sink) *Factory {
	return &Factory{cfg: cfg, storages: storages, databases: databases, sinks: sinks}
}

// Build resolves both sides and the report destination and creates the Job.
func (f *Factory) Build(ctx context.Context) (*Job, error) {
	m := f.cfg.Migrate
	defs, err := f.definitions()
	if err != nil {
		return nil, err
	}
	source, err := f.side(ctx, m.Source)
	if err != nil {
		return nil, err
	}
	target, err := f.side(ctx, m.Target)
	if err != nil {
		return nil, err
	}

	env := &task.Context{
		Settings: task.Settings{
			BulkThreshold:   m.Batch.BulkThreshold,
			BulkBatchSize:   m.Batch.BulkBatchSize,
			SingleBatchSize: m.Batch.SingleBatchSize,
			PollInterval:    m.Batch.PollInterval(),
			DeleteOldData:   m.Batch.DeleteOldData,
		},
		Source: source,
		Target: target,
		Sink:   event.MultiSink(f.sinks),
	}

	reporters := report.Multi{report.LogReporter{}}
	if m.Report.StorageRef != "" {
		conn, err := f.storages.Resolve(ctx, m.Report.StorageRef)
		if err != nil {
			return nil, err
		}
		fileReporter, err := report.New(conn, m.Report)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, fileReporter)
	}

	var parents []ParentSetter
	for _, s := range f.sinks {
		if ps, ok := s.(ParentSetter); ok {
			parents = append(parents, ps)
		}
	}
	return New(defs, env,
		WithReporter(reporters),
		WithAbortOnFatal(m.Batch.AbortOnFatal),
		WithTracer(otel.Tracer(TracerName), parents...),
	)
}

func (f *Factory) definitions() ([]task.Definition, error) {
	objects, err := f.cfg.ObjectDefinitions()
	if err != nil {
		return nil, err
	}
	defs := make([]task.Definition, 0, len(objects))
	for _, o := range objects {
		op := model.OperationReadonly
		if o.Operation != "" {
			if op, err = model.ParseOperation(o.Operation); err != nil {
				return nil, exception.NewMigrationErrorf(module, "object '%s'", o.Name, err)
			}
		}
		defs = append(defs, task.Definition{
			Name:          o.Name,
			Operation:     op,
			ExternalID:    o.ExternalID,
			Query:         o.Query,
			DeleteQuery:   o.DeleteQuery,
			DeleteOldData: o.DeleteOldData,
			Fields:        o.Fields,
		})
	}
	return defs, nil
}

func (f *Factory) side(ctx context.Context, sc config.SideConfig) (task.Side, error) {
	side := task.Side{Name: sc.Name, FileOnly: sc.FileOnly}
	if sc.FileOnly {
		conn, err := f.storages.Resolve(ctx, sc.StorageRef)
		if err != nil {
			return side, exception.NewMigrationErrorf(module, "failed to resolve storage of side '%s'", sc.Name, err)
		}
		side.Files = csvfile.NewStore(conn, "", sc.Directory)
		return side, nil
	}
	conn, err := f.databases.Resolve(ctx, sc.DBRef)
	if err != nil {
		return side, exception.NewMigrationErrorf(module, "failed to resolve database of side '%s'", sc.Name, true, err)
	}
	side.Client = newClient(conn, sc.Name, f.cfg.Migrate.Batch)
	return side, nil
}

func newClient(conn database.DBConnection, name string, batch config.BatchConfig) port.APIClient {
	return sqlapi.New(conn.GormDB(), name, sqlapi.WithPollTimeout(batch.PollTimeout()))
}
