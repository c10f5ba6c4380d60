package model

// APIStatus is a lifecycle stage of a CRUD batch submitted to a target.
type APIStatus int

const (
	APIStatusOperationStarted APIStatus = iota
	APIStatusOperationFinished
	APIStatusJobCreated
	APIStatusBatchCreated
	APIStatusDataUploaded
	APIStatusInProgress
	APIStatusCompleted
	APIStatusCompletedWithWarnings
	APIStatusFailed
	APIStatusProcessError
)

var apiStatusNames = [...]string{
	"OperationStarted",
	"OperationFinished",
	"JobCreated",
	"BatchCreated",
	"DataUploaded",
	"InProgress",
	"Completed",
	"CompletedWithWarnings",
	"Failed",
	"ProcessError",
}

// String returns the stage name.
func (s APIStatus) String() string {
	if int(s) >= 0 && int(s) < len(apiStatusNames) {
		return apiStatusNames[s]
	}
	return "Unknown"
}

// IsTerminal reports whether no further stage follows.
func (s APIStatus) IsTerminal() bool {
	switch s {
	case APIStatusCompleted, APIStatusCompletedWithWarnings, APIStatusFailed, APIStatusProcessError:
		return true
	}
	return false
}

// Importance classifies how loudly a status should be reported, independent of its stage.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceNormal
	ImportanceWarn
	ImportanceError
)

// String returns the importance name.
func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "Low"
	case ImportanceWarn:
		return "Warn"
	case ImportanceError:
		return "Error"
	default:
		return "Normal"
	}
}

// APIResult is one status transition of a submitted CRUD batch.
type APIResult struct {
	Status     APIStatus
	Importance Importance
	JobID      string
	BatchID    string
	Message    string
	// NumberRecordsProcessed and NumberRecordsFailed are cumulative for the job.
	NumberRecordsProcessed int
	NumberRecordsFailed    int
}
