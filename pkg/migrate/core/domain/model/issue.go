package model

import "time"

// Messages carried by CSVIssue.Error.
const (
	IssueFileEmptyOrMissing      = "CSV file is empty or missing"
	IssueColumnMissing           = "Column is missing in the CSV file"
	IssueMissingParentRecord     = "Missing parent record for the given lookup value"
	IssueCannotUpdateChildLookup = "Cannot update child lookup column: the column is missing in the child CSV file"
)

// IssueReportHeader is the column layout of the issue report.
var IssueReportHeader = []string{
	"Date", "Child sObject", "Child field", "Child value",
	"Parent sObject", "Parent field", "Parent value", "Error",
}

// CSVIssue is a data quality diagnostic found while validating or repairing CSV files.
// Issues are collected and reported, never raised.
type CSVIssue struct {
	Date         time.Time
	ChildObject  string
	ChildField   string
	ChildValue   string
	ParentObject string
	ParentField  string
	ParentValue  string
	Error        string
}

// Row returns the issue as a report row aligned with IssueReportHeader.
func (i CSVIssue) Row() []string {
	return []string{
		i.Date.Format(time.RFC3339),
		i.ChildObject,
		i.ChildField,
		i.ChildValue,
		i.ParentObject,
		i.ParentField,
		i.ParentValue,
		i.Error,
	}
}
