package sqlapi

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// batchRun is the state of one submitted batch shared between the worker and the poller.
type batchRun struct {
	results   []port.RecordResult
	processed atomic.Int64
	failed    atomic.Int64
}

// SubmitCrudBatch executes op for every record. Single requests run inline. Bulk batches run on a
// worker goroutine while the caller polls for progress every pollInterval; every status callback
// is invoked on the caller's goroutine. A batch in which every record failed ends in the Failed
// state and yields a nil result.
func (c *Client) SubmitCrudBatch(ctx context.Context, object string, records []*model.Record, op model.Operation, pollInterval time.Duration, useBulk bool, cb port.StatusCallback) (*port.CrudResult, error) {
	if cb == nil {
		cb = func(model.APIResult) {}
	}
	jobID := uuid.NewString()
	if op == model.OperationReadonly || len(records) == 0 {
		return &port.CrudResult{JobID: jobID}, nil
	}

	run := &batchRun{results: make([]port.RecordResult, len(records))}
	if !useBulk {
		c.execute(ctx, object, records, op, run)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return c.finish(jobID, "", object, op, run, cb), nil
	}

	batchID := uuid.NewString()
	cb(model.APIResult{Status: model.APIStatusJobCreated, Importance: model.ImportanceLow, JobID: jobID,
		Message: fmt.Sprintf("%s job created for %s", op, object)})
	cb(model.APIResult{Status: model.APIStatusBatchCreated, Importance: model.ImportanceLow, JobID: jobID, BatchID: batchID})
	cb(model.APIResult{Status: model.APIStatusDataUploaded, Importance: model.ImportanceLow, JobID: jobID, BatchID: batchID,
		Message: fmt.Sprintf("%d record(s) uploaded", len(records))})

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.execute(workCtx, object, records, op, run)
	}()

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	var timeout <-chan time.Time
	if c.pollTimeout > 0 {
		timer := time.NewTimer(c.pollTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-done:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return c.finish(jobID, batchID, object, op, run, cb), nil
		case <-ticker.C:
			cb(model.APIResult{
				Status:                 model.APIStatusInProgress,
				Importance:             model.ImportanceLow,
				JobID:                  jobID,
				BatchID:                batchID,
				NumberRecordsProcessed: int(run.processed.Load()),
				NumberRecordsFailed:    int(run.failed.Load()),
			})
		case <-timeout:
			cancel()
			<-done
			cb(model.APIResult{Status: model.APIStatusFailed, Importance: model.ImportanceError, JobID: jobID, BatchID: batchID,
				Message: fmt.Sprintf("batch did not complete within %s", c.pollTimeout)})
			return nil, exception.NewMigrationErrorf(module, "%s batch on '%s' timed out after %s", op, object, c.pollTimeout)
		case <-ctx.Done():
			<-done
			return nil, ctx.Err()
		}
	}
}

// finish reports the terminal status of a batch and builds its result.
func (c *Client) finish(jobID, batchID, object string, op model.Operation, run *batchRun, cb port.StatusCallback) *port.CrudResult {
	processed := int(run.processed.Load())
	failed := int(run.failed.Load())
	status := model.APIResult{
		JobID:                  jobID,
		BatchID:                batchID,
		NumberRecordsProcessed: processed,
		NumberRecordsFailed:    failed,
	}
	switch {
	case failed == processed:
		status.Status = model.APIStatusFailed
		status.Importance = model.ImportanceError
		status.Message = fmt.Sprintf("all %d record(s) failed: %s", failed, firstError(run.results))
		cb(status)
		logger.Errorf("[%s] %s %s failed for every record.", c.name, op, object)
		return nil
	case failed > 0:
		status.Status = model.APIStatusCompletedWithWarnings
		status.Importance = model.ImportanceWarn
		status.Message = fmt.Sprintf("%d of %d record(s) failed", failed, processed)
	default:
		status.Status = model.APIStatusCompleted
		status.Importance = model.ImportanceNormal
	}
	cb(status)
	return &port.CrudResult{JobID: jobID, Records: run.results}
}

func firstError(results []port.RecordResult) string {
	for _, r := range results {
		if !r.Success && r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// execute applies op to each record. Per-record failures are recorded, not returned.
func (c *Client) execute(ctx context.Context, object string, records []*model.Record, op model.Operation, run *batchRun) {
	tx := c.db.WithContext(ctx)
	for i, r := range records {
		if ctx.Err() != nil {
			return
		}
		id, err := c.apply(tx, object, r, op)
		res := port.RecordResult{ID: id, Success: err == nil, SourceIndex: i}
		if err != nil {
			res.Error = err.Error()
			run.failed.Add(1)
			logger.Debugf("[%s] %s %s #%d failed: %v", c.name, op, object, i, err)
		}
		run.results[i] = res
		run.processed.Add(1)
	}
}

func (c *Client) apply(tx *gorm.DB, object string, r *model.Record, op model.Operation) (string, error) {
	id := r.ID()
	values := r.ToMap()
	delete(values, model.IDColumn)

	switch op {
	case model.OperationInsert:
		id = c.newID()
		values[model.IDColumn] = id
		return id, tx.Table(object).Create(values).Error

	case model.OperationUpdate:
		if id == "" {
			return "", fmt.Errorf("missing %s", model.IDColumn)
		}
		if len(values) == 0 {
			return id, nil
		}
		res := tx.Table(object).Where(model.IDColumn+" = ?", id).Updates(values)
		if res.Error != nil {
			return id, res.Error
		}
		if res.RowsAffected == 0 {
			return id, fmt.Errorf("entity is deleted or does not exist: %s", id)
		}
		return id, nil

	case model.OperationUpsert:
		if id == "" {
			id = c.newID()
		}
		updates := sortedKeys(values)
		values[model.IDColumn] = id
		onConflict := clause.OnConflict{Columns: []clause.Column{{Name: model.IDColumn}}}
		if len(updates) == 0 {
			onConflict.DoNothing = true
		} else {
			onConflict.DoUpdates = clause.AssignmentColumns(updates)
		}
		return id, tx.Table(object).Clauses(onConflict).Create(values).Error

	case model.OperationDelete:
		if id == "" {
			return "", fmt.Errorf("missing %s", model.IDColumn)
		}
		res := tx.Table(object).Where(model.IDColumn+" = ?", id).Delete(map[string]interface{}{})
		if res.Error != nil {
			return id, res.Error
		}
		if res.RowsAffected == 0 {
			return id, fmt.Errorf("entity is deleted or does not exist: %s", id)
		}
		return id, nil
	}
	return id, fmt.Errorf("unsupported operation: %s", op)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
