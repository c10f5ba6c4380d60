package task

import (
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// verbosityOf returns the output verbosity of a lifecycle stage.
func verbosityOf(s model.APIStatus) event.Verbosity {
	switch s {
	case model.APIStatusJobCreated, model.APIStatusBatchCreated, model.APIStatusDataUploaded, model.APIStatusInProgress:
		return event.VerbosityVerbose
	default:
		return event.VerbosityNormal
	}
}

// HandleStatus forwards one bulk-operation status transition to the event sink.
// Severity follows the result's importance, not its stage.
func (t *Task) HandleStatus(result model.APIResult) {
	t.emit(t.operation, result)
}

// statusHandler returns a callback that reports results under op and runs onStatus first.
func (t *Task) statusHandler(op model.Operation, onStatus func(model.APIResult)) func(model.APIResult) {
	return func(result model.APIResult) {
		if onStatus != nil {
			onStatus(result)
		}
		t.emit(op, result)
	}
}

func (t *Task) emit(op model.Operation, result model.APIResult) {
	t.env.sink().Emit(event.Event{
		Time:      time.Now(),
		Object:    t.name,
		Operation: op,
		Status:    result.Status,
		Verbosity: verbosityOf(result.Status),
		Severity:  event.SeverityOf(result.Importance),
		JobID:     result.JobID,
		BatchID:   result.BatchID,
		Message:   result.Message,
		Processed: result.NumberRecordsProcessed,
		Failed:    result.NumberRecordsFailed,
	})
}
