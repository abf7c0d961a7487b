package fieldop

import (
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

// Apply returns the field's value after op. old is the current value and
// exists reports whether the field is present at all; a Null value is
// treated like an absent one by the collection and numeric operations.
//
// The returned bool is false when the field ends up absent (Delete).
func Apply(op Operation, old value.Value, exists bool) (value.Value, bool, error) {
	if _, isNull := old.(value.Null); isNull || !exists {
		old = nil
	}

	switch o := op.(type) {
	case nil:
		return old, old != nil || exists, nil

	case Delete:
		return nil, false, nil

	case Set:
		return o.Value, true, nil

	case Increment:
		if old == nil {
			return o.Amount, true, nil
		}
		sum, err := value.AddNumbers(old, o.Amount)
		if err != nil {
			return nil, false, incompatible(op, old)
		}
		return sum, true, nil

	case Add:
		arr, err := arrayOf(op, old)
		if err != nil {
			return nil, false, err
		}
		out := make(value.Array, 0, len(arr)+len(o.Items))
		out = append(out, arr...)
		out = append(out, o.Items...)
		return out, true, nil

	case AddUnique:
		arr, err := arrayOf(op, old)
		if err != nil {
			return nil, false, err
		}
		return unionReplace(arr, o.Items), true, nil

	case Remove:
		arr, err := arrayOf(op, old)
		if err != nil {
			return nil, false, err
		}
		return without(arr, o.Items), true, nil

	case Relation:
		return applyRelation(o, old)

	case Batch:
		cur, present := old, exists
		for _, inner := range o.Ops {
			next, ok, err := Apply(inner, cur, present)
			if err != nil {
				return nil, false, err
			}
			cur, present = next, ok
		}
		return cur, present, nil

	default:
		return nil, false, fmt.Errorf("apply: unsupported operation %T", op)
	}
}

// RelationValue is the placeholder a relation field holds locally: the
// related objects live on the server, only the target class is known here.
func RelationValue(targetClass string) value.Object {
	return value.Object{
		"__type":    value.String("Relation"),
		"className": value.String(targetClass),
	}
}

func applyRelation(rel Relation, old value.Value) (value.Value, bool, error) {
	if old == nil {
		return RelationValue(rel.TargetClass), true, nil
	}
	obj, ok := old.(value.Object)
	if !ok || obj["__type"] != value.String("Relation") {
		return nil, false, incompatible(rel, old)
	}
	if cls, _ := obj["className"].(value.String); rel.TargetClass != "" && string(cls) != rel.TargetClass {
		return nil, false, fmt.Errorf("%w: relation to %q on field related to %q", ErrIncompatibleValue, rel.TargetClass, cls)
	}
	return obj, true, nil
}

func arrayOf(op Operation, old value.Value) (value.Array, error) {
	if old == nil {
		return value.Array{}, nil
	}
	arr, ok := old.(value.Array)
	if !ok {
		return nil, incompatible(op, old)
	}
	return arr, nil
}

func incompatible(op Operation, old value.Value) error {
	return fmt.Errorf("%w: %s on %s", ErrIncompatibleValue, op.Name(), value.Kind(old))
}
