package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/fieldsync/internal/value"
)

func kindOf(p Predicate) string {
	switch p.(type) {
	case Raw:
		return "raw"
	case Equals:
		return "equals"
	case IsNull:
		return "isnull"
	case And:
		return "and"
	default:
		return "unknown"
	}
}

func TestPredicate_Sealed(t *testing.T) {
	assert.Equal(t, "raw", kindOf(Where("id=5")))
	assert.Equal(t, "equals", kindOf(Eq("a", value.Int(1))))
	assert.Equal(t, "isnull", kindOf(IsNull{Field: "a"}))
	assert.Equal(t, "and", kindOf(All()))
}

func TestShorthands(t *testing.T) {
	assert.Equal(t, Raw{SQL: "a > ?", Args: []value.Value{value.Int(2)}}, Where("a > ?", value.Int(2)))
	assert.Equal(t, Equals{Field: "b", Value: value.String("x")}, Eq("b", value.String("x")))
	assert.Equal(t, And{Predicates: []Predicate{IsNull{Field: "c"}}}, All(IsNull{Field: "c"}))
}
