package logging_test

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/logging"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	logger.SetLogLevel("DEBUG")
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		logger.SetLogLevel("INFO")
	})
	return &buf
}

func TestSink_FiltersByVerbosity(t *testing.T) {
	buf := captureLog(t)
	sink := logging.NewSink(event.VerbosityNormal)

	sink.Emit(event.Event{Object: "Account", Operation: model.OperationUpsert, Status: model.APIStatusInProgress,
		Verbosity: event.VerbosityVerbose, Severity: event.SeverityDebug})
	assert.Empty(t, buf.String())

	sink.Emit(event.Event{Object: "Account", Operation: model.OperationUpsert, Status: model.APIStatusCompleted,
		Verbosity: event.VerbosityNormal, Severity: event.SeverityInfo, JobID: "j1"})
	assert.Contains(t, buf.String(), "[INFO] [Account] Upsert: Completed job=j1")
}

func TestSink_AlwaysLogsWarningsAndErrors(t *testing.T) {
	buf := captureLog(t)
	sink := logging.NewSink(event.VerbosityMinimal)

	sink.Emit(event.Event{Object: "Contact", Operation: model.OperationInsert, Status: model.APIStatusFailed,
		Verbosity: event.VerbosityNormal, Severity: event.SeverityError, Message: "boom"})
	assert.Contains(t, buf.String(), "[ERROR] [Contact] Insert: Failed - boom")
}
