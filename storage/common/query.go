package common

import "time"

// Query is a parameterized read-only lookup against the trace store.
type Query struct {
	Statement string
	Args      []interface{}
}

// RowCursor iterates forward over the rows produced by one Query. Column
// values are extracted by name; IsNull must be checked before extracting a
// nullable column. The cursor is only valid until Close is called.
type RowCursor interface {
	Next() bool
	IsNull(column string) bool
	String(column string) (string, error)
	Int64(column string) (int64, error)
	Uint64(column string) (uint64, error)
	Time(column string) (time.Time, error)
	StringMap(column string) (map[string]string, error)
	Err() error
	Close() error
}
