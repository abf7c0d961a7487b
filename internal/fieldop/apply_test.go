package fieldop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/value"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		op         Operation
		old        value.Value
		exists     bool
		want       value.Value
		wantExists bool
	}{
		{"set", Set{Value: value.Int(1)}, value.String("x"), true, value.Int(1), true},
		{"delete", Delete{}, value.Int(1), true, nil, false},
		{"increment absent", IncrementBy(3), nil, false, value.Int(3), true},
		{"increment null", IncrementBy(3), value.Null{}, true, value.Int(3), true},
		{"increment number", IncrementBy(3), value.Float(0.5), true, value.Float(3.5), true},
		{"add absent", NewAdd(value.Int(1)), nil, false, value.Array{value.Int(1)}, true},
		{"add existing", NewAdd(value.Int(1)), value.Array{value.Int(1)}, true, value.Array{value.Int(1), value.Int(1)}, true},
		{"add unique existing", NewAddUnique(value.Int(1), value.Int(2)), value.Array{value.Int(1)}, true, value.Array{value.Int(1), value.Int(2)}, true},
		{"remove absent", NewRemove(value.Int(1)), nil, false, value.Array{}, true},
		{"remove existing", NewRemove(value.Int(1)), value.Array{value.Int(1), value.Int(2)}, true, value.Array{value.Int(2)}, true},
		{"relation absent", mustRelation(t, []value.Pointer{p1}, nil), nil, false, RelationValue("Player"), true},
		{"relation existing", mustRelation(t, nil, []value.Pointer{p1}), RelationValue("Player"), true, RelationValue("Player"), true},
		{"batch", Batch{Ops: []Operation{Delete{}, IncrementBy(2), IncrementBy(2)}}, value.Int(10), true, value.Int(4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, exists, err := Apply(tt.op, tt.old, tt.exists)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantExists, exists)
		})
	}
}

func TestApply_Incompatible(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		old  value.Value
	}{
		{"increment string", IncrementBy(1), value.String("x")},
		{"add to number", NewAdd(value.Int(1)), value.Int(5)},
		{"remove from object", NewRemove(value.Int(1)), value.Object{}},
		{"relation on array", mustRelation(t, []value.Pointer{p1}, nil), value.Array{}},
		{"relation other class", mustRelation(t, []value.Pointer{p1}, nil), RelationValue("Team")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(tt.op, tt.old, true)
			assert.ErrorIs(t, err, ErrIncompatibleValue)
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	old := value.Array{value.Int(1), value.Int(2)}
	_, _, err := Apply(NewRemove(value.Int(1)), old, true)
	require.NoError(t, err)
	assert.Equal(t, value.Array{value.Int(1), value.Int(2)}, old)
}
