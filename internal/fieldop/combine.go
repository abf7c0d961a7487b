package fieldop

import (
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

// Combine returns the single operation with the same net effect as applying
// prev and then next. A nil prev means the field has nothing pending; a nil
// next leaves prev unchanged.
//
// Delete and Set on the next side absorb any history. A pending Set or Delete
// absorbs a following Increment/Add/AddUnique/Remove by computing the new
// value immediately. Every other pairing of different kinds is a
// MergeConflictError.
func Combine(prev, next Operation) (Operation, error) {
	if b, ok := prev.(Batch); ok {
		resolved, err := Fold(nil, b.Ops...)
		if err != nil {
			return nil, err
		}
		prev = resolved
	}

	if next == nil {
		return prev, nil
	}
	if b, ok := next.(Batch); ok {
		return Fold(prev, b.Ops...)
	}

	switch n := next.(type) {
	case Delete:
		return Delete{}, nil
	case Set:
		return n, nil
	}

	if prev == nil {
		return normalize(next), nil
	}

	switch p := prev.(type) {
	case Set:
		return mergeIntoSet(p, next)

	case Delete:
		return mergeIntoDelete(next)

	case Increment:
		if n, ok := next.(Increment); ok {
			sum, err := value.AddNumbers(p.Amount, n.Amount)
			if err != nil {
				mc := conflict(prev, next)
				mc.Err = err
				return nil, mc
			}
			return Increment{Amount: sum}, nil
		}

	case Add:
		if n, ok := next.(Add); ok {
			items := make(value.Array, 0, len(p.Items)+len(n.Items))
			items = append(items, p.Items...)
			items = append(items, n.Items...)
			return Add{Items: items}, nil
		}

	case AddUnique:
		if n, ok := next.(AddUnique); ok {
			return AddUnique{Items: unionReplace(p.Items, n.Items)}, nil
		}

	case Remove:
		if n, ok := next.(Remove); ok {
			return Remove{Items: unionReplace(p.Items, n.Items)}, nil
		}

	case Relation:
		if n, ok := next.(Relation); ok {
			return mergeRelations(p, n)
		}
	}

	return nil, conflict(prev, next)
}

// Fold combines ops left to right onto start. Fold(nil, ops...) is how a
// decoded Batch collapses back into a single pending operation.
func Fold(start Operation, ops ...Operation) (Operation, error) {
	acc := start
	for _, op := range ops {
		merged, err := Combine(acc, op)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// normalize tidies an operation landing on an empty slot so that set-like
// payloads hold no duplicates.
func normalize(op Operation) Operation {
	switch o := op.(type) {
	case AddUnique:
		return AddUnique{Items: unionReplace(nil, o.Items)}
	case Remove:
		return Remove{Items: unionReplace(nil, o.Items)}
	case Relation:
		return Relation{
			TargetClass: o.TargetClass,
			Adds:        pointerMinus(pointerUnion(nil, o.Adds), o.Removes),
			Removes:     pointerUnion(nil, o.Removes),
		}
	}
	return op
}

func mergeIntoSet(prev Set, next Operation) (Operation, error) {
	if _, ok := next.(Relation); ok {
		return nil, conflict(prev, next)
	}
	v, _, err := Apply(next, prev.Value, true)
	if err != nil {
		mc := conflict(prev, next)
		mc.Err = err
		return nil, mc
	}
	return Set{Value: v}, nil
}

// mergeIntoDelete applies next to an absent field and pins the result as a Set,
// since the server must not see the op against its stale value.
func mergeIntoDelete(next Operation) (Operation, error) {
	if _, ok := next.(Relation); ok {
		return nil, conflict(Delete{}, next)
	}
	v, _, err := Apply(next, nil, false)
	if err != nil {
		mc := conflict(Delete{}, next)
		mc.Err = err
		return nil, mc
	}
	return Set{Value: v}, nil
}

// mergeRelations implements
//
//	adds    = (prev.adds − next.removes) ∪ next.adds
//	removes = (prev.removes − next.adds) ∪ next.removes
func mergeRelations(prev, next Relation) (Operation, error) {
	class := prev.TargetClass
	if class == "" {
		class = next.TargetClass
	} else if next.TargetClass != "" && next.TargetClass != class {
		mc := conflict(prev, next)
		mc.Err = fmt.Errorf("related class %q does not match %q", next.TargetClass, class)
		return nil, mc
	}

	return Relation{
		TargetClass: class,
		Adds:        pointerUnion(pointerMinus(prev.Adds, next.Removes), next.Adds),
		Removes:     pointerUnion(pointerMinus(prev.Removes, next.Adds), next.Removes),
	}, nil
}
