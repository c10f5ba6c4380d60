package model

import (
	"fmt"
	"strings"
)

// Operation is the kind of write performed against the target for one object.
type Operation int

const (
	// OperationReadonly only reads the object; nothing is written or deleted.
	OperationReadonly Operation = iota
	// OperationInsert inserts new records.
	OperationInsert
	// OperationUpdate updates existing records by identifier.
	OperationUpdate
	// OperationUpsert inserts or updates by identifier.
	OperationUpsert
	// OperationDelete deletes records by identifier.
	OperationDelete
)

var operationNames = map[Operation]string{
	OperationReadonly: "Readonly",
	OperationInsert:   "Insert",
	OperationUpdate:   "Update",
	OperationUpsert:   "Upsert",
	OperationDelete:   "Delete",
}

// String returns the name of the operation.
func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation converts a name such as "upsert" into an Operation (case-insensitive).
func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return op, nil
		}
	}
	return OperationReadonly, fmt.Errorf("unknown operation: %q", s)
}

// Strategy is the execution path used against one side of the migration.
type Strategy int

const (
	// StrategySingle sends one synchronous request per call.
	StrategySingle Strategy = iota
	// StrategyBulk submits batches and polls for completion.
	StrategyBulk
)

// String returns the name of the strategy.
func (s Strategy) String() string {
	if s == StrategyBulk {
		return "Bulk"
	}
	return "Single"
}
