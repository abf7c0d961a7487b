package queryir

import "github.com/roach88/fieldsync/internal/value"

// Predicate is a WHERE condition.
//
// This is a sealed interface; the variants are Raw, Equals, IsNull and And.
// querysql compiles a Predicate into parameterized SQL.
type Predicate interface {
	predicateNode()
}

// Raw is a hand-written SQL condition with positional "?" parameters.
//
//	Raw{SQL: "id=5"}
//	Raw{SQL: "class_name = ? AND local_id > ?", Args: []value.Value{value.String("Player"), value.Int(3)}}
//
// The SQL text is emitted verbatim; only Args are bound out of band.
type Raw struct {
	SQL  string
	Args []value.Value
}

func (Raw) predicateNode() {}

// Equals is field = value. Value must not be Null; use IsNull.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// IsNull is field IS NULL.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where is shorthand for a Raw condition.
func Where(sql string, args ...value.Value) Raw {
	return Raw{SQL: sql, Args: args}
}

// Eq is shorthand for Equals.
func Eq(field string, v value.Value) Equals {
	return Equals{Field: field, Value: v}
}

// All is shorthand for And.
func All(preds ...Predicate) And {
	return And{Predicates: preds}
}
