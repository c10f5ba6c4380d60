package task

import (
	"context"
	"strings"
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Validate checks the structure of the object's source file. Only the header and the presence of a
// first data row are read. A missing or empty file yields a single issue and no further checks.
// Otherwise one issue is reported per write field that no header column covers.
// Tasks with a live source have no file and report nothing.
func (t *Task) Validate(ctx context.Context) ([]model.CSVIssue, error) {
	src := t.env.Source
	if !src.FileOnly || src.Files == nil {
		return nil, nil
	}
	header, hasRows, err := src.Files.ReadHeader(ctx, t.FileName())
	if err != nil {
		return nil, exception.NewMigrationError(module, "failed to read header of '"+t.FileName()+"'", err, exception.IsTemporary(err))
	}
	now := time.Now()
	if len(header) == 0 || !hasRows {
		logger.Warnf("[%s] %s: '%s'.", t.name, model.IssueFileEmptyOrMissing, t.FileName())
		return []model.CSVIssue{{
			Date:        now,
			ChildObject: t.name,
			Error:       model.IssueFileEmptyOrMissing,
		}}, nil
	}

	var issues []model.CSVIssue
	for _, f := range t.WriteFields() {
		if headerCovers(header, f) {
			continue
		}
		issues = append(issues, model.CSVIssue{
			Date:        now,
			ChildObject: t.name,
			ChildField:  f.Name,
			Error:       model.IssueColumnMissing,
		})
	}
	if len(issues) > 0 {
		logger.Warnf("[%s] %d required column(s) missing in '%s'.", t.name, len(issues), t.FileName())
	}
	return issues, nil
}

// headerCovers reports whether some column equals the field or carries it as a dot-separated
// component. A reference field is also covered by its readable form, since repair derives the
// id form from it.
func headerCovers(header []string, f model.FieldDescriptor) bool {
	names := []string{f.Name}
	if f.IsReference() {
		names = append(names, f.RelationshipName())
	}
	for _, col := range header {
		parts := strings.Split(col, ".")
		for _, name := range names {
			if col == name {
				return true
			}
			for _, p := range parts {
				if p == name {
					return true
				}
			}
		}
	}
	return false
}
