package storage

import (
	"database/sql"
	jerrors "github.com/juju/errors"
	jsoniter "github.com/json-iterator/go"
	"strconv"
	"time"
)

// The fractional part is elided by time.Parse when the column carries none.
const mysqlTimeLayout = "2006-01-02 15:04:05.999999"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// mysqlRowCursor reads every column of the current row as raw bytes and
// converts on extraction. Raw values are only valid until the next call to
// Next, so extraction always copies.
type mysqlRowCursor struct {
	rows    *sql.Rows
	index   map[string]int
	values  []sql.RawBytes
	scan    []interface{}
	scanErr error
}

func newRowCursor(rows *sql.Rows) (*mysqlRowCursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, jerrors.Wrap(err, jerrors.New("unable to read result set columns"))
	}
	cursor := &mysqlRowCursor{
		rows:   rows,
		index:  make(map[string]int, len(columns)),
		values: make([]sql.RawBytes, len(columns)),
		scan:   make([]interface{}, len(columns)),
	}
	for i, name := range columns {
		cursor.index[name] = i
		cursor.scan[i] = &cursor.values[i]
	}
	return cursor, nil
}

func (c *mysqlRowCursor) Next() bool {
	if c.scanErr != nil {
		return false
	}
	if !c.rows.Next() {
		return false
	}
	c.scanErr = c.rows.Scan(c.scan...)
	return c.scanErr == nil
}

func (c *mysqlRowCursor) column(name string) (sql.RawBytes, error) {
	i, exists := c.index[name]
	if !exists {
		return nil, jerrors.Errorf("no column %q in result set", name)
	}
	return c.values[i], nil
}

func (c *mysqlRowCursor) IsNull(column string) bool {
	value, err := c.column(column)
	return err == nil && value == nil
}

func (c *mysqlRowCursor) String(column string) (string, error) {
	value, err := c.column(column)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (c *mysqlRowCursor) Int64(column string) (int64, error) {
	value, err := c.column(column)
	if err != nil {
		return 0, err
	}
	return parseInt64(value)
}

func (c *mysqlRowCursor) Uint64(column string) (uint64, error) {
	value, err := c.column(column)
	if err != nil {
		return 0, err
	}
	return parseUint64(value)
}

func (c *mysqlRowCursor) Time(column string) (time.Time, error) {
	value, err := c.column(column)
	if err != nil {
		return time.Time{}, err
	}
	return parseMySQLTime(value)
}

func (c *mysqlRowCursor) StringMap(column string) (map[string]string, error) {
	value, err := c.column(column)
	if err != nil {
		return nil, err
	}
	return decodeStringMap(value)
}

func (c *mysqlRowCursor) Err() error {
	if c.scanErr != nil {
		return jerrors.Wrap(c.scanErr, jerrors.New("unable to scan result row"))
	}
	return c.rows.Err()
}

func (c *mysqlRowCursor) Close() error {
	return c.rows.Close()
}

func parseInt64(value []byte) (int64, error) {
	if len(value) == 0 {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, jerrors.Wrap(err, jerrors.New("column value is not an integer"))
	}
	return parsed, nil
}

func parseUint64(value []byte) (uint64, error) {
	if len(value) == 0 {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, jerrors.Wrap(err, jerrors.New("column value is not an unsigned integer"))
	}
	return parsed, nil
}

func parseMySQLTime(value []byte) (time.Time, error) {
	if len(value) == 0 {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(mysqlTimeLayout, string(value))
	if err != nil {
		return time.Time{}, jerrors.Wrap(err, jerrors.New("column value is not a datetime"))
	}
	return parsed, nil
}

func decodeStringMap(value []byte) (map[string]string, error) {
	if len(value) == 0 {
		return nil, nil
	}
	decoded := make(map[string]string)
	err := json.Unmarshal(value, &decoded)
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.New("unable to decode parameter map"))
	}
	return decoded, nil
}
