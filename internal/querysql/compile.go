package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/fieldsync/internal/queryir"
	"github.com/roach88/fieldsync/internal/value"
)

// CompilePredicate converts a queryir.Predicate to a WHERE fragment and its
// parameters. Values are never interpolated.
func CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, fmt.Errorf("invalid predicate: %w", err)
	}
	return compilePredicate(p, false)
}

// compilePredicate returns the SQL for p. nested is true inside an And with
// siblings, where a Raw fragment is parenthesized to keep its precedence.
func compilePredicate(p queryir.Predicate, nested bool) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Raw:
		return compileRaw(pred, nested)
	case *queryir.Raw:
		return compileRaw(*pred, nested)
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.IsNull:
		return QuoteIdent(pred.Field) + " IS NULL", nil, nil
	case *queryir.IsNull:
		return QuoteIdent(pred.Field) + " IS NULL", nil, nil
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileRaw(r queryir.Raw, nested bool) (string, []any, error) {
	params, err := toParams(r.Args)
	if err != nil {
		return "", nil, err
	}
	if nested {
		return "(" + r.SQL + ")", params, nil
	}
	return r.SQL, params, nil
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := value.ToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %s: %w", eq.Field, err)
	}
	return QuoteIdent(eq.Field) + " = ?", []any{param}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	nested := len(and.Predicates) > 1
	for _, sub := range and.Predicates {
		sql, subParams, err := compilePredicate(sub, nested)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func toParams(vals []value.Value) ([]any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		p, err := value.ToParam(v)
		if err != nil {
			return nil, fmt.Errorf("convert arg %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// QuoteIdent wraps a bare identifier in double quotes when it needs them.
// Plain names such as "a" or "class_name" stay as-is; reserved words and
// names with other characters are quoted. Anything already qualified or
// quoted ("t.a", `"x"`), expressions containing "(", and "*" pass through.
func QuoteIdent(name string) string {
	switch {
	case name == "*":
		return name
	case strings.ContainsAny(name, ".(\"`["):
		return name
	case isPlainIdent(name) && !reserved[strings.ToUpper(name)]:
		return name
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// reserved lists SQLite keywords likely to collide with column names.
var reserved = map[string]bool{
	"ABORT": true, "ALL": true, "AND": true, "AS": true, "ASC": true,
	"BETWEEN": true, "BY": true, "CASE": true, "CHECK": true, "COLUMN": true,
	"CONSTRAINT": true, "CREATE": true, "DEFAULT": true, "DELETE": true,
	"DESC": true, "DISTINCT": true, "DROP": true, "ELSE": true, "END": true,
	"EXISTS": true, "FROM": true, "GROUP": true, "HAVING": true, "IN": true,
	"INDEX": true, "INSERT": true, "INTO": true, "IS": true, "JOIN": true,
	"KEY": true, "LIKE": true, "LIMIT": true, "NOT": true, "NULL": true,
	"OFFSET": true, "ON": true, "OR": true, "ORDER": true, "PRIMARY": true,
	"REFERENCES": true, "REPLACE": true, "SELECT": true, "SET": true,
	"TABLE": true, "THEN": true, "TO": true, "TRANSACTION": true,
	"UNION": true, "UNIQUE": true, "UPDATE": true, "USING": true,
	"VALUES": true, "WHEN": true, "WHERE": true,
}
