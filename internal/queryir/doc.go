// Package queryir describes WHERE conditions independently of SQL text.
//
// Storage callers build conditions from Raw fragments (the escape hatch the
// session exposes for hand-written clauses), Equals, IsNull and And. The
// querysql package compiles them into parameterized SQL; values are never
// interpolated into the statement text.
//
// Predicate is a sealed interface, so a type switch over its variants is
// exhaustive:
//
//	switch p := pred.(type) {
//	case queryir.Raw:
//	case queryir.Equals:
//	case queryir.IsNull:
//	case queryir.And:
//	}
package queryir
