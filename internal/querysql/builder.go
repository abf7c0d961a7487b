package querysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fieldsync/internal/queryir"
	"github.com/roach88/fieldsync/internal/value"
)

// ConflictPolicy selects the INSERT OR <policy> behaviour when a row
// violates a uniqueness constraint.
type ConflictPolicy int

const (
	ConflictNone ConflictPolicy = iota
	ConflictRollback
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

var conflictClauses = [...]string{"", " OR ROLLBACK", " OR ABORT", " OR FAIL", " OR IGNORE", " OR REPLACE"}

var conflictNames = [...]string{"none", "rollback", "abort", "fail", "ignore", "replace"}

func (p ConflictPolicy) String() string {
	if p < 0 || int(p) >= len(conflictNames) {
		return "ConflictPolicy(" + strconv.Itoa(int(p)) + ")"
	}
	return conflictNames[p]
}

// ParseConflictPolicy maps a policy name ("replace", "ignore", ...) to its value.
func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	for i, n := range conflictNames {
		if strings.EqualFold(n, name) {
			return ConflictPolicy(i), nil
		}
	}
	return ConflictNone, fmt.Errorf("unknown conflict policy %q", name)
}

var errNoTable = errors.New("table name is required")

// Select describes a SELECT statement. Zero-valued optional parts are
// omitted entirely: no Columns means "*", and no Where, OrderBy or Limit
// emits no WHERE, ORDER BY or LIMIT keyword.
type Select struct {
	Table   string
	Columns []string
	Where   queryir.Predicate
	OrderBy string // emitted verbatim, e.g. "ts DESC"
	Limit   int
	Offset  int
}

// Build renders the SELECT.
//
//	Select{Table: "t"}                                          -> SELECT * FROM t;
//	Select{Table: "t", Columns: []string{"a", "b"},
//	       Where: queryir.Where("id=5"), OrderBy: "ts", Limit: 10} -> SELECT a,b FROM t WHERE id=5 ORDER BY ts LIMIT 10;
func (s Select) Build() (Statement, error) {
	if s.Table == "" {
		return Statement{}, errNoTable
	}
	if s.Limit < 0 || s.Offset < 0 {
		return Statement{}, fmt.Errorf("negative limit or offset")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columnList(s.Columns))
	b.WriteString(" FROM ")
	b.WriteString(QuoteIdent(s.Table))

	args, err := writeWhere(&b, s.Where)
	if err != nil {
		return Statement{}, err
	}
	if s.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(s.OrderBy)
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}
	if s.Offset > 0 {
		if s.Limit == 0 {
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(s.Offset))
	}
	b.WriteByte(';')
	return Statement{SQL: b.String(), Args: args}, nil
}

// Insert renders INSERT INTO table (cols) VALUES (?,..); with values bound
// in key order.
func Insert(table string, vals *Values) (Statement, error) {
	return InsertWithConflict(table, vals, ConflictNone)
}

// InsertWithConflict renders INSERT OR <policy> INTO ...
// With no values it renders DEFAULT VALUES.
func InsertWithConflict(table string, vals *Values, policy ConflictPolicy) (Statement, error) {
	if table == "" {
		return Statement{}, errNoTable
	}
	if policy < 0 || int(policy) >= len(conflictClauses) {
		return Statement{}, fmt.Errorf("invalid conflict policy %d", policy)
	}

	var b strings.Builder
	b.WriteString("INSERT")
	b.WriteString(conflictClauses[policy])
	b.WriteString(" INTO ")
	b.WriteString(QuoteIdent(table))

	if vals.Len() == 0 {
		b.WriteString(" DEFAULT VALUES;")
		return Statement{SQL: b.String()}, nil
	}

	keys := vals.Keys()
	args := make([]any, 0, len(keys))
	cols := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := vals.Get(k)
		p, err := value.ToParam(v)
		if err != nil {
			return Statement{}, fmt.Errorf("convert %s: %w", k, err)
		}
		cols = append(cols, QuoteIdent(k))
		args = append(args, p)
	}

	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ","))
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(keys)))
	b.WriteString(");")
	return Statement{SQL: b.String(), Args: args}, nil
}

// Update renders UPDATE table SET a=?,b=? [WHERE ..]; SET parameters come
// before WHERE parameters.
func Update(table string, vals *Values, where queryir.Predicate) (Statement, error) {
	if table == "" {
		return Statement{}, errNoTable
	}
	if vals.Len() == 0 {
		return Statement{}, errors.New("update requires at least one value")
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" SET ")

	keys := vals.Keys()
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		v, _ := vals.Get(k)
		p, err := value.ToParam(v)
		if err != nil {
			return Statement{}, fmt.Errorf("convert %s: %w", k, err)
		}
		b.WriteString(QuoteIdent(k))
		b.WriteString("=?")
		args = append(args, p)
	}

	whereArgs, err := writeWhere(&b, where)
	if err != nil {
		return Statement{}, err
	}
	b.WriteByte(';')
	return Statement{SQL: b.String(), Args: append(args, whereArgs...)}, nil
}

// Delete renders DELETE FROM table [WHERE ..];
func Delete(table string, where queryir.Predicate) (Statement, error) {
	if table == "" {
		return Statement{}, errNoTable
	}
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(QuoteIdent(table))
	args, err := writeWhere(&b, where)
	if err != nil {
		return Statement{}, err
	}
	b.WriteByte(';')
	return Statement{SQL: b.String(), Args: args}, nil
}

func writeWhere(b *strings.Builder, where queryir.Predicate) ([]any, error) {
	sql, args, err := CompilePredicate(where)
	if err != nil {
		return nil, fmt.Errorf("compile where: %w", err)
	}
	if sql != "" {
		b.WriteString(" WHERE ")
		b.WriteString(sql)
	}
	return args, nil
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ",")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
