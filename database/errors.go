package database

import "fmt"

// DBError represents a database operation error with context
type DBError struct {
	Operation string
	Table     string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("database error in %s on %s: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// wrapDBError wraps a database error with operation and table context
func wrapDBError(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{Operation: operation, Table: table, Err: err}
}

// TableError marks a write directed at a table the registry does not allow
// for that operation (unknown name, or a bulk replace on a time-series table).
type TableError struct {
	Table  string
	Reason string
}

// Error implements the error interface
func (e *TableError) Error() string {
	return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
}
