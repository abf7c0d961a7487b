package querysql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Statement is SQL text with positional parameters.
type Statement struct {
	SQL  string
	Args []any
}

// Inline renders the statement with every parameter substituted as a
// literal. It exists for logs and for showing statements to a person; the
// session never executes inlined text.
//
// Strings are single-quoted with embedded quotes doubled, booleans render
// as 1/0, nil as NULL and byte slices as X'..'.
func (s Statement) Inline() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var b strings.Builder
	b.Grow(len(s.SQL) + 8*len(s.Args))

	next := 0
	var quote byte
	for i := 0; i < len(s.SQL); i++ {
		c := s.SQL[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?' && next < len(s.Args):
			b.WriteString(Literal(s.Args[next]))
			next++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// String implements fmt.Stringer with the inlined form.
func (s Statement) String() string { return s.Inline() }

// Literal renders a database/sql parameter as an SQL literal.
func Literal(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
