package errors

import "fmt"

// DBError is the base type for store-layer failures. Where names the store
// operation that failed.
type DBError struct {
	Where   string
	Message string
}

func (e *DBError) Error() string {
	return fmt.Sprintf("store.%s: %s", e.Where, e.Message)
}

func NewDBError(where, message string) *DBError {
	return &DBError{Where: where, Message: message}
}

type DBInternalError struct {
	DBError
	Cause error
}

func (e *DBInternalError) Unwrap() error { return e.Cause }

func NewDBInternalError(where string, cause error) *DBInternalError {
	return &DBInternalError{
		DBError: *NewDBError(where, cause.Error()),
		Cause:   cause,
	}
}

type DBNotFoundError struct {
	DBError
}

func NewDBNotFoundError(where, message string) *DBNotFoundError {
	return &DBNotFoundError{DBError: *NewDBError(where, message)}
}

type DBUniqueViolationError struct {
	DBError
	Column string
}

type DBForeignKeyViolationError struct {
	DBError
	ForeignKeyTable string
}
