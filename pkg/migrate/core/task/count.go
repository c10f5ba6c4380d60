package task

import (
	"context"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// CountRecords counts the object's records on every live side. File-only sides are skipped and keep
// a zero count. Each count independently selects that side's strategy.
func (t *Task) CountRecords(ctx context.Context) error {
	q := t.ComposeCountQuery()
	if src := t.env.Source; !src.FileOnly && src.Client != nil {
		res, err := src.Client.Query(ctx, q, false)
		if err != nil {
			return exception.NewMigrationError(module, "failed to count "+t.name+" records on source '"+src.Name+"'", err, exception.IsTemporary(err))
		}
		t.mu.Lock()
		t.sourceCount = res.TotalSize
		t.mu.Unlock()
	}
	if tgt := t.env.Target; !tgt.FileOnly && tgt.Client != nil {
		res, err := tgt.Client.Query(ctx, q, false)
		if err != nil {
			return exception.NewMigrationError(module, "failed to count "+t.name+" records on target '"+tgt.Name+"'", err, exception.IsTemporary(err))
		}
		t.mu.Lock()
		t.targetCount = res.TotalSize
		t.mu.Unlock()
	}
	logger.Infof("[%s] Source: %d record(s) (%s), target: %d record(s) (%s).",
		t.name, t.SourceCount(), t.SourceStrategy(), t.TargetCount(), t.TargetStrategy())
	return nil
}
