package session

import (
	"errors"
	"fmt"
)

// Cursor is a fully read query result. Rows are materialized on the worker
// so the connection is free as soon as the query completes; callers iterate
// the Cursor from any goroutine.
//
//	for cur.Next() {
//		var id string
//		var n int64
//		if err := cur.Scan(&id, &n); err != nil { ... }
//	}
type Cursor struct {
	columns []string
	rows    [][]any
	pos     int
}

// NewCursor builds a Cursor over already-read rows.
func NewCursor(columns []string, rows [][]any) *Cursor {
	return &Cursor{columns: columns, rows: rows, pos: -1}
}

// Columns returns the result column names.
func (c *Cursor) Columns() []string {
	return append([]string(nil), c.columns...)
}

// Len returns the number of rows.
func (c *Cursor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rows)
}

// Next advances to the next row, returning false after the last one.
func (c *Cursor) Next() bool {
	if c == nil || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Reset rewinds the cursor before the first row.
func (c *Cursor) Reset() { c.pos = -1 }

// Row returns the current row's raw values.
func (c *Cursor) Row() []any {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

// Get returns the current row's value for column.
func (c *Cursor) Get(column string) (any, bool) {
	row := c.Row()
	if row == nil {
		return nil, false
	}
	for i, name := range c.columns {
		if name == column {
			return row[i], true
		}
	}
	return nil, false
}

// Scan copies the current row into dest, one pointer per column.
// Supported targets are *any, *string, *[]byte, *int64, *int, *float64 and *bool.
// A NULL scans as the target's zero value.
func (c *Cursor) Scan(dest ...any) error {
	row := c.Row()
	if row == nil {
		return errors.New("scan: no current row")
	}
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("scan column %s: %w", c.columns[i], err)
		}
	}
	return nil
}

// Maps returns every row as a column to value map.
func (c *Cursor) Maps() []map[string]any {
	if c == nil {
		return nil
	}
	out := make([]map[string]any, len(c.rows))
	for i, row := range c.rows {
		m := make(map[string]any, len(c.columns))
		for j, name := range c.columns {
			m[name] = row[j]
		}
		out[i] = m
	}
	return out
}

func assign(dest, src any) error {
	switch d := dest.(type) {
	case *any:
		*d = src
	case *string:
		switch s := src.(type) {
		case nil:
			*d = ""
		case string:
			*d = s
		case []byte:
			*d = string(s)
		default:
			*d = fmt.Sprint(s)
		}
	case *[]byte:
		switch s := src.(type) {
		case nil:
			*d = nil
		case []byte:
			*d = append([]byte(nil), s...)
		case string:
			*d = []byte(s)
		default:
			return fmt.Errorf("cannot scan %T into *[]byte", src)
		}
	case *int64:
		n, err := asInt(src)
		if err != nil {
			return err
		}
		*d = n
	case *int:
		n, err := asInt(src)
		if err != nil {
			return err
		}
		*d = int(n)
	case *float64:
		switch s := src.(type) {
		case nil:
			*d = 0
		case float64:
			*d = s
		case int64:
			*d = float64(s)
		default:
			return fmt.Errorf("cannot scan %T into *float64", src)
		}
	case *bool:
		switch s := src.(type) {
		case nil:
			*d = false
		case bool:
			*d = s
		case int64:
			*d = s != 0
		default:
			return fmt.Errorf("cannot scan %T into *bool", src)
		}
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}

func asInt(src any) (int64, error) {
	switch s := src.(type) {
	case nil:
		return 0, nil
	case int64:
		return s, nil
	case int:
		return int64(s), nil
	case bool:
		if s {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot scan %T into an integer", src)
	}
}
