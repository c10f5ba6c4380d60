package task

import (
	"context"
	"fmt"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// DeleteState is a state of the delete-old-target-records workflow.
type DeleteState int

const (
	DeleteStateNone DeleteState = iota
	DeleteStateSkipped
	DeleteStateQuerying
	DeleteStateNoMatches
	DeleteStateRecordsFound
	DeleteStateSubmitting
	DeleteStatePolling
	DeleteStateCompleted
	DeleteStateFailed
)

var deleteStateNames = [...]string{
	"None", "Skipped", "Querying", "NoMatches", "RecordsFound", "Submitting", "Polling", "Completed", "Failed",
}

func (s DeleteState) String() string {
	if int(s) >= 0 && int(s) < len(deleteStateNames) {
		return deleteStateNames[s]
	}
	return "Unknown"
}

// IsTerminal reports whether the workflow has stopped in s.
func (s DeleteState) IsTerminal() bool {
	switch s {
	case DeleteStateSkipped, DeleteStateNoMatches, DeleteStateCompleted, DeleteStateFailed:
		return true
	}
	return false
}

// DeleteState returns the last state reached by DeleteOldRecords.
func (t *Task) DeleteState() DeleteState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.deleteState
}

func (t *Task) setDeleteState(s DeleteState) {
	t.mu.Lock()
	t.deleteState = s
	t.mu.Unlock()
	logger.Debugf("[%s] Delete old records: %s.", t.name, s)
}

// DeleteOldRecords removes the target records matched by the delete query before new data is
// written. It reports whether anything was deleted. A failed bulk delete is returned as a
// *exception.CommandExecutionError and is never retried here.
func (t *Task) DeleteOldRecords(ctx context.Context) (bool, error) {
	tgt := t.env.Target
	if t.operation == model.OperationReadonly || tgt.FileOnly || tgt.Client == nil || !t.deleteOldData {
		t.setDeleteState(DeleteStateSkipped)
		return false, nil
	}

	t.setDeleteState(DeleteStateQuerying)
	useBulk := t.TargetStrategy() == model.StrategyBulk
	res, err := tgt.Client.Query(ctx, t.ComposeDeleteQuery(), useBulk)
	if err != nil {
		t.setDeleteState(DeleteStateFailed)
		return false, exception.NewCommandExecutionError(t.name, model.OperationDelete.String(), err)
	}
	if res == nil || len(res.Records) == 0 {
		t.setDeleteState(DeleteStateNoMatches)
		logger.Infof("[%s] No old records to delete on target '%s'.", t.name, tgt.Name)
		return false, nil
	}

	t.setDeleteState(DeleteStateRecordsFound)
	ids := make([]*model.Record, 0, len(res.Records))
	for _, r := range res.Records {
		if id := r.ID(); id != "" {
			ids = append(ids, model.NewRecordFromPairs(model.IDColumn, id))
		}
	}
	logger.Infof("[%s] Deleting %d old record(s) on target '%s'.", t.name, len(ids), tgt.Name)

	t.setDeleteState(DeleteStateSubmitting)
	t.emit(model.OperationDelete, model.APIResult{Status: model.APIStatusOperationStarted, Importance: model.ImportanceNormal})
	polling := false
	cb := t.statusHandler(model.OperationDelete, func(model.APIResult) {
		if !polling {
			polling = true
			t.setDeleteState(DeleteStatePolling)
		}
	})
	result, err := tgt.Client.SubmitCrudBatch(ctx, t.name, ids, model.OperationDelete, t.env.Settings.PollInterval, useBulk, cb)
	if err != nil || result == nil {
		if err == nil {
			err = exception.ErrEmptyBatchResult
		}
		t.setDeleteState(DeleteStateFailed)
		return false, exception.NewCommandExecutionError(t.name, model.OperationDelete.String(), err)
	}
	t.setDeleteState(DeleteStateCompleted)
	t.emit(model.OperationDelete, model.APIResult{
		Status:                 model.APIStatusOperationFinished,
		Importance:             model.ImportanceNormal,
		JobID:                  result.JobID,
		Message:                fmt.Sprintf("%d record(s) deleted", len(result.Records)-result.Failed()),
		NumberRecordsProcessed: len(result.Records),
		NumberRecordsFailed:    result.Failed(),
	})
	return true, nil
}
