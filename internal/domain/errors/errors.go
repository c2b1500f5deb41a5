package errors

import (
	"fmt"
)

type ErrPermissionDenied struct {
	Nick string
}

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("%s is not allowed to modify this record", e.Nick)
}

func (e *ErrPermissionDenied) Is(target error) bool {
	_, ok := target.(*ErrPermissionDenied)
	return ok
}

// ErrRecordNotFound: display index out of the active day's range.
type ErrRecordNotFound struct {
	Index int
}

func (e *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("no such record: L%d", e.Index)
}

func (e *ErrRecordNotFound) Is(target error) bool {
	_, ok := target.(*ErrRecordNotFound)
	return ok
}

type ErrCommentNotFound struct {
	Record  int
	Comment int
}

func (e *ErrCommentNotFound) Error() string {
	return fmt.Sprintf("no such comment: L%d.%d", e.Record, e.Comment)
}

func (e *ErrCommentNotFound) Is(target error) bool {
	_, ok := target.(*ErrCommentNotFound)
	return ok
}

type ErrTellNotFound struct {
	ID int64
}

func (e *ErrTellNotFound) Error() string {
	return fmt.Sprintf("no such tell: %d", e.ID)
}

func (e *ErrTellNotFound) Is(target error) bool {
	_, ok := target.(*ErrTellNotFound)
	return ok
}

// ErrTellNotYours: the id exists but the requester may not delete it.
type ErrTellNotYours struct {
	ID   int64
	Nick string
}

func (e *ErrTellNotYours) Error() string {
	return fmt.Sprintf("tell %d does not belong to %s", e.ID, e.Nick)
}

func (e *ErrTellNotYours) Is(target error) bool {
	_, ok := target.(*ErrTellNotYours)
	return ok
}

type ErrQueueFull struct {
	Max int
}

func (e *ErrQueueFull) Error() string {
	return fmt.Sprintf("tell queue is full (max %d)", e.Max)
}

func (e *ErrQueueFull) Is(target error) bool {
	_, ok := target.(*ErrQueueFull)
	return ok
}

// ErrPersistence wraps a failed snapshot or feed write. The in-memory
// mutation it follows is never rolled back.
type ErrPersistence struct {
	Path  string
	Cause error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failure for %s: %v", e.Path, e.Cause)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Cause
}

func (e *ErrPersistence) Is(target error) bool {
	_, ok := target.(*ErrPersistence)
	return ok
}

type ErrUnknownStorageType struct {
	StorageType string
}

func (e *ErrUnknownStorageType) Error() string {
	return fmt.Sprintf("unknown tell storage type: %s", e.StorageType)
}

type ErrUnknownNotifierTransport struct {
	Transport string
}

func (e *ErrUnknownNotifierTransport) Error() string {
	return fmt.Sprintf("unknown notifier transport: %s", e.Transport)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("building SQL query for %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("executing SQL query for %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type ErrSQLScan struct {
	Entity string
	Cause  error
}

func (e *ErrSQLScan) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Entity, e.Cause)
}

func (e *ErrSQLScan) Unwrap() error {
	return e.Cause
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}
