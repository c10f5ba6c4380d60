package task

import (
	"context"
	"fmt"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/cache"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const (
	defaultBulkBatchSize   = 10000
	defaultSingleBatchSize = 200
)

// RetrieveRecords reads the object's records from the source: the cached file of a file-only
// source, or the composed read query of a live one using the source strategy.
func (t *Task) RetrieveRecords(ctx context.Context, c *cache.Cache) ([]*model.Record, error) {
	src := t.env.Source
	if src.FileOnly {
		set, err := c.Load(ctx, t.FileName())
		if err != nil {
			return nil, err
		}
		return set.Records(), nil
	}
	if src.Client == nil {
		return nil, exception.NewMigrationErrorf(module, "source '%s' has no API client", src.Name)
	}
	res, err := src.Client.Query(ctx, t.ComposeQuery(nil, false, nil), t.SourceStrategy() == model.StrategyBulk)
	if err != nil {
		return nil, exception.NewMigrationError(module, "failed to query "+t.name+" records on source '"+src.Name+"'", err, exception.IsTemporary(err))
	}
	if res == nil {
		return nil, nil
	}
	return res.Records, nil
}

// WriteRecords writes records to the target. Read-only tasks write nothing. A file-only target
// receives the read columns of every record; a live target receives the write columns in batches
// sized by the target strategy. An unrecoverable batch is returned as a
// *exception.CommandExecutionError.
func (t *Task) WriteRecords(ctx context.Context, records []*model.Record) (*port.CrudResult, error) {
	if t.operation == model.OperationReadonly || len(records) == 0 {
		return &port.CrudResult{}, nil
	}
	tgt := t.env.Target
	if tgt.FileOnly {
		return t.writeFile(ctx, records)
	}
	if tgt.Client == nil {
		return nil, exception.NewMigrationErrorf(module, "target '%s' has no API client", tgt.Name)
	}

	useBulk := t.TargetStrategy() == model.StrategyBulk
	size := t.batchSize(useBulk)
	cols := t.WriteColumns()

	t.emit(t.operation, model.APIResult{Status: model.APIStatusOperationStarted, Importance: model.ImportanceNormal,
		Message: fmt.Sprintf("%d record(s) to %s", len(records), t.operation)})

	total := &port.CrudResult{}
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunk := records[start:end]
		payload := make([]*model.Record, 0, len(chunk))
		for _, r := range chunk {
			payload = append(payload, t.mapReferences(r.Project(cols)))
		}

		res, err := tgt.Client.SubmitCrudBatch(ctx, t.name, payload, t.operation, t.env.Settings.PollInterval, useBulk, t.HandleStatus)
		if err != nil || res == nil {
			if err == nil {
				err = exception.ErrEmptyBatchResult
			}
			return total, exception.NewCommandExecutionError(t.name, t.operation.String(), err)
		}
		if total.JobID == "" {
			total.JobID = res.JobID
		}
		for _, rr := range res.Records {
			if rr.SourceIndex >= 0 && rr.SourceIndex < len(chunk) {
				if rr.Success && rr.ID != "" {
					if src := chunk[rr.SourceIndex].ID(); src != "" {
						t.recordTargetID(src, rr.ID)
					}
				}
				rr.SourceIndex += start
			}
			total.Records = append(total.Records, rr)
		}
	}

	failed := total.Failed()
	importance := model.ImportanceNormal
	if failed > 0 {
		importance = model.ImportanceWarn
	}
	t.emit(t.operation, model.APIResult{
		Status:                 model.APIStatusOperationFinished,
		Importance:             importance,
		JobID:                  total.JobID,
		Message:                fmt.Sprintf("%d record(s) processed, %d failed", len(total.Records), failed),
		NumberRecordsProcessed: len(total.Records),
		NumberRecordsFailed:    failed,
	})
	return total, nil
}

func (t *Task) writeFile(ctx context.Context, records []*model.Record) (*port.CrudResult, error) {
	tgt := t.env.Target
	if tgt.Files == nil {
		return nil, exception.NewMigrationErrorf(module, "target '%s' has no file store", tgt.Name)
	}
	if err := tgt.Files.WriteRecords(ctx, t.FileName(), t.ReadFields(), records); err != nil {
		return nil, exception.NewMigrationError(module, "failed to write '"+t.FileName()+"' on target '"+tgt.Name+"'", err, false)
	}
	res := &port.CrudResult{Records: make([]port.RecordResult, 0, len(records))}
	for i, r := range records {
		res.Records = append(res.Records, port.RecordResult{ID: r.ID(), Success: true, SourceIndex: i})
	}
	logger.Infof("[%s] Wrote %d record(s) to '%s'.", t.name, len(records), t.FileName())
	return res, nil
}

func (t *Task) batchSize(useBulk bool) int {
	if useBulk {
		if n := t.env.Settings.BulkBatchSize; n > 0 {
			return n
		}
		return defaultBulkBatchSize
	}
	if n := t.env.Settings.SingleBatchSize; n > 0 {
		return n
	}
	return defaultSingleBatchSize
}

// mapReferences replaces source identifiers in reference columns with the target identifiers
// assigned when the parent object was written earlier in the run. Unresolved synthetic
// identifiers are cleared so they never reach the target; a synthetic record identifier is dropped
// so the target assigns its own.
func (t *Task) mapReferences(r *model.Record) *model.Record {
	if cache.IsSyntheticID(r.ID()) {
		r.Delete(model.IDColumn)
	}
	for _, f := range t.referenceFields() {
		v, ok := r.Lookup(f.IDColumn())
		if !ok || v == "" {
			continue
		}
		if parent, ok := t.sibling(f.ReferenceTo); ok {
			if id, ok := parent.TargetID(v); ok {
				r.Set(f.IDColumn(), id)
				continue
			}
		}
		if cache.IsSyntheticID(v) {
			r.Set(f.IDColumn(), "")
		}
	}
	return r
}
