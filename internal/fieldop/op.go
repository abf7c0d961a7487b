package fieldop

import (
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

// Symbolic operation names, as carried in the "__op" field on the wire.
const (
	NameDelete         = "Delete"
	NameIncrement      = "Increment"
	NameAdd            = "Add"
	NameAddUnique      = "AddUnique"
	NameRemove         = "Remove"
	NameAddRelation    = "AddRelation"
	NameRemoveRelation = "RemoveRelation"
	NameBatch          = "Batch"

	// NameRelation and NameSet never appear on the wire: a Relation encodes as
	// AddRelation/RemoveRelation and a Set is the bare value.
	NameRelation = "Relation"
	NameSet      = "Set"
)

// Operation is one atomic intended mutation of a single field.
//
// This is a sealed interface; the variants are Delete, Increment, Add,
// AddUnique, Remove, Relation, Set and Batch.
type Operation interface {
	// Name returns the variant's symbolic name.
	Name() string
	fieldOp()
}

// Delete removes the field.
type Delete struct{}

func (Delete) Name() string { return NameDelete }
func (Delete) fieldOp()     {}

// Increment adds a numeric delta to the field.
type Increment struct {
	Amount value.Value // value.Int or value.Float
}

func (Increment) Name() string { return NameIncrement }
func (Increment) fieldOp()     {}

// Add appends items to an array field. Duplicates are kept.
type Add struct {
	Items value.Array
}

func (Add) Name() string { return NameAdd }
func (Add) fieldOp()     {}

// AddUnique appends items that are not already present.
type AddUnique struct {
	Items value.Array
}

func (AddUnique) Name() string { return NameAddUnique }
func (AddUnique) fieldOp()     {}

// Remove deletes every element equal to one of Items.
type Remove struct {
	Items value.Array
}

func (Remove) Name() string { return NameRemove }
func (Remove) fieldOp()     {}

// Relation is a many-to-many relation delta. Adds and Removes are disjoint
// and every pointer in them has class TargetClass.
type Relation struct {
	TargetClass string
	Adds        []value.Pointer
	Removes     []value.Pointer
}

func (Relation) Name() string { return NameRelation }
func (Relation) fieldOp()     {}

// Set replaces the field with Value.
type Set struct {
	Value value.Value
}

func (Set) Name() string { return NameSet }
func (Set) fieldOp()     {}

// Batch is an ordered sequence of operations. It only shows up while decoding
// and is folded through Combine before anything stores it.
type Batch struct {
	Ops []Operation
}

func (Batch) Name() string { return NameBatch }
func (Batch) fieldOp()     {}

// NewIncrement builds an Increment, rejecting non-numeric amounts.
func NewIncrement(amount value.Value) (Increment, error) {
	if !value.IsNumber(amount) {
		return Increment{}, fmt.Errorf("increment amount must be a number, got %s", value.Kind(amount))
	}
	return Increment{Amount: amount}, nil
}

// IncrementBy is a shorthand for an integral Increment.
func IncrementBy(n int64) Increment {
	return Increment{Amount: value.Int(n)}
}

// NewAdd builds an Add of items in order.
func NewAdd(items ...value.Value) Add {
	return Add{Items: value.Array(items)}
}

// NewAddUnique builds an AddUnique, collapsing duplicates. A later duplicate
// replaces the earlier one in place.
func NewAddUnique(items ...value.Value) AddUnique {
	return AddUnique{Items: unionReplace(nil, items)}
}

// NewRemove builds a Remove with duplicates collapsed.
func NewRemove(items ...value.Value) Remove {
	return Remove{Items: unionReplace(nil, items)}
}

// NewRelation builds a Relation. A pointer named in both adds and removes
// ends up only in removes. All pointers must share one class.
func NewRelation(adds, removes []value.Pointer) (Relation, error) {
	class := ""
	for _, p := range append(append([]value.Pointer{}, adds...), removes...) {
		if class == "" {
			class = p.ClassName
			continue
		}
		if p.ClassName != class {
			return Relation{}, fmt.Errorf("relation pointers must share one class: %q and %q", class, p.ClassName)
		}
	}

	rel := Relation{TargetClass: class}
	rel.Adds = pointerUnion(nil, adds)
	rel.Adds = pointerMinus(rel.Adds, removes)
	rel.Removes = pointerUnion(nil, removes)
	return rel, nil
}

// AddRelation is a shorthand for a Relation that only adds.
func AddRelation(targets ...value.Pointer) (Relation, error) {
	return NewRelation(targets, nil)
}

// RemoveRelation is a shorthand for a Relation that only removes.
func RemoveRelation(targets ...value.Pointer) (Relation, error) {
	return NewRelation(nil, targets)
}

// unionReplace appends each of items to base unless an equal element exists,
// in which case the newer element takes the old one's position.
func unionReplace(base value.Array, items []value.Value) value.Array {
	out := make(value.Array, 0, len(base)+len(items))
	index := make(map[string]int, len(base)+len(items))
	for _, v := range base {
		k := value.Key(v)
		if i, ok := index[k]; ok {
			out[i] = v
			continue
		}
		index[k] = len(out)
		out = append(out, v)
	}
	for _, v := range items {
		k := value.Key(v)
		if i, ok := index[k]; ok {
			out[i] = v
			continue
		}
		index[k] = len(out)
		out = append(out, v)
	}
	return out
}

// without returns base minus every element equal to one of items.
func without(base value.Array, items value.Array) value.Array {
	drop := make(map[string]struct{}, len(items))
	for _, v := range items {
		drop[value.Key(v)] = struct{}{}
	}
	out := make(value.Array, 0, len(base))
	for _, v := range base {
		if _, ok := drop[value.Key(v)]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

func pointerUnion(base, items []value.Pointer) []value.Pointer {
	out := make([]value.Pointer, 0, len(base)+len(items))
	seen := make(map[value.Pointer]struct{}, len(base)+len(items))
	for _, list := range [][]value.Pointer{base, items} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return nilIfEmpty(out)
}

func pointerMinus(base, items []value.Pointer) []value.Pointer {
	drop := make(map[value.Pointer]struct{}, len(items))
	for _, p := range items {
		drop[p] = struct{}{}
	}
	out := make([]value.Pointer, 0, len(base))
	for _, p := range base {
		if _, ok := drop[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return nilIfEmpty(out)
}

// nilIfEmpty keeps empty relation sides nil so Relations compare cleanly.
func nilIfEmpty(ps []value.Pointer) []value.Pointer {
	if len(ps) == 0 {
		return nil
	}
	return ps
}
