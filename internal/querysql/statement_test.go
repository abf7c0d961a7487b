package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInline_EscapesQuotes(t *testing.T) {
	stmt := Statement{SQL: "INSERT INTO t (a) VALUES (?);", Args: []any{"it's"}}
	assert.Equal(t, "INSERT INTO t (a) VALUES ('it''s');", stmt.Inline())
}

func TestInline_SkipsQuotedPlaceholders(t *testing.T) {
	stmt := Statement{SQL: `SELECT '?', "c?" FROM t WHERE a = ?`, Args: []any{int64(1)}}
	assert.Equal(t, `SELECT '?', "c?" FROM t WHERE a = 1`, stmt.Inline())
}

func TestInline_MissingArgsLeavePlaceholder(t *testing.T) {
	stmt := Statement{SQL: "a = ? AND b = ?", Args: []any{"x"}}
	assert.Equal(t, "a = 'x' AND b = ?", stmt.Inline())
	assert.Equal(t, stmt.Inline(), stmt.String())
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "x", "'x'"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 4, "4"},
		{"int64", int64(-9), "-9"},
		{"float", 0.5, "0.5"},
		{"bytes", []byte{0xAB, 0x01}, "X'AB01'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}
