// Package querysql builds SQLite statements.
//
// Every builder returns a Statement holding parameterized SQL and its
// arguments. Column values and predicate values are always bound as
// parameters; Statement.Inline exists only to show a statement to a person.
package querysql
