package test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
)

// MockAPIClient is a testify mock of port.APIClient.
type MockAPIClient struct {
	mock.Mock
}

// Query mocks port.APIClient.Query.
func (m *MockAPIClient) Query(ctx context.Context, query string, useBulk bool) (*port.QueryResult, error) {
	args := m.Called(ctx, query, useBulk)
	res, _ := args.Get(0).(*port.QueryResult)
	return res, args.Error(1)
}

// SubmitCrudBatch mocks port.APIClient.SubmitCrudBatch. An optional third return value of type
// []model.APIResult is replayed to cb before returning.
func (m *MockAPIClient) SubmitCrudBatch(ctx context.Context, object string, records []*model.Record, op model.Operation, pollInterval time.Duration, useBulk bool, cb port.StatusCallback) (*port.CrudResult, error) {
	args := m.Called(ctx, object, records, op, pollInterval, useBulk, cb)
	if len(args) > 2 {
		if statuses, ok := args.Get(2).([]model.APIResult); ok && cb != nil {
			for _, s := range statuses {
				cb(s)
			}
		}
	}
	res, _ := args.Get(0).(*port.CrudResult)
	return res, args.Error(1)
}

// CountResult builds the QueryResult of a COUNT() query.
func CountResult(n int) *port.QueryResult {
	return &port.QueryResult{TotalSize: n}
}

// RecordsResult builds the QueryResult of a record query.
func RecordsResult(records ...*model.Record) *port.QueryResult {
	return &port.QueryResult{Records: records, TotalSize: len(records)}
}
