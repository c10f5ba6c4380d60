// Package app assembles the migration engine with uber-fx and runs one migration.
package app

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm/mysql"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm/postgres"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage/gcs"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage/local"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/job"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/infrastructure/telemetry"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/logging"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/metrics"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/tracing"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// DBProviderModules maps the DB_ADAPTORS names onto the provider modules. Redshift is served by
// the PostgreSQL provider.
var DBProviderModules = map[string]fx.Option{
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
	"sqlite":   sqlite.Module,
}

// DBProviderOptions selects the database providers named by the comma-separated DB_ADAPTORS
// environment variable. All providers are used when it is unset.
func DBProviderOptions() []fx.Option {
	adaptors := os.Getenv("DB_ADAPTORS")
	if adaptors == "" {
		adaptors = "postgres,mysql,sqlite"
	}
	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if module, ok := DBProviderModules[name]; ok {
			options = append(options, module)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

// RunApplication runs one migration and returns the process exit code.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) int {
	var exitCode atomic.Int32

	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			&exitCode,
		),
		logger.Module,
		config.Module,

		storageAdapter.Module,
		local.Module,
		gcs.Module,
		database.Module,
		fx.Options(dbProviderOptions...),

		telemetry.Module,
		logging.Module,
		metrics.Module,
		tracing.Module,

		job.Module,
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // factory *job.Factory
			"",              // exitCode *atomic.Int32
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Errorf("Application run failed: %v", app.Err())
		return 1
	}
	return int(exitCode.Load())
}

// startJobExecution builds the run on start and executes it in the background, shutting the
// application down once it finishes.
func startJobExecution(lc fx.Lifecycle, shutdowner fx.Shutdowner, factory *job.Factory, exitCode *atomic.Int32, appCtx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			j, err := factory.Build(ctx)
			if err != nil {
				return err
			}
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in migration run: %v", r)
						exitCode.Store(1)
					}
					logger.Infof("Requesting application shutdown after migration run.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				summary, err := j.Run(appCtx)
				if err != nil {
					exitCode.Store(1)
				}
				if summary != nil {
					logger.Infof("Run %s: %d issue(s), %d object(s) with old records deleted.",
						summary.RunID, len(summary.Issues), len(summary.Deleted))
					for name, n := range summary.Failed {
						if n > 0 {
							logger.Warnf("[%s] %d record(s) failed.", name, n)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}
