package fieldop

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

const (
	keyOp      = "__op"
	keyAmount  = "amount"
	keyObjects = "objects"
	keyOps     = "ops"
)

// Decode turns a wire value into an Operation. Objects carrying "__op" are
// dispatched on that name; any other value decodes as Set. A Batch is folded
// through Combine, so the result is never a Batch.
func Decode(v value.Value) (Operation, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return Set{Value: v}, nil
	}
	rawName, ok := obj[keyOp]
	if !ok {
		return Set{Value: v}, nil
	}
	name, ok := rawName.(value.String)
	if !ok {
		return nil, fmt.Errorf("decode operation: %s must be a string, got %s", keyOp, value.Kind(rawName))
	}

	switch string(name) {
	case NameDelete:
		return Delete{}, nil
	case NameIncrement:
		return decodeIncrement(obj)
	case NameAdd:
		items, err := objectsOf(obj)
		if err != nil {
			return nil, err
		}
		return Add{Items: items}, nil
	case NameAddUnique:
		items, err := objectsOf(obj)
		if err != nil {
			return nil, err
		}
		return NewAddUnique(items...), nil
	case NameRemove:
		items, err := objectsOf(obj)
		if err != nil {
			return nil, err
		}
		return NewRemove(items...), nil
	case NameAddRelation, NameRemoveRelation:
		return decodeRelation(string(name), obj)
	case NameBatch:
		return decodeBatch(obj)
	default:
		return nil, &UnknownOperationError{Name: string(name)}
	}
}

// Unmarshal parses JSON and decodes it as an Operation.
func Unmarshal(data []byte) (Operation, error) {
	v, err := value.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse operation: %w", err)
	}
	return Decode(v)
}

func decodeIncrement(obj value.Object) (Operation, error) {
	amount, ok := obj[keyAmount]
	if !ok {
		return nil, fmt.Errorf("decode %s: missing %q", NameIncrement, keyAmount)
	}
	inc, err := NewIncrement(amount)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", NameIncrement, err)
	}
	return inc, nil
}

func objectsOf(obj value.Object) (value.Array, error) {
	raw, ok := obj[keyObjects]
	if !ok {
		return nil, fmt.Errorf("decode %s: missing %q", obj[keyOp], keyObjects)
	}
	arr, ok := raw.(value.Array)
	if !ok {
		return nil, fmt.Errorf("decode %s: %q must be an array, got %s", obj[keyOp], keyObjects, value.Kind(raw))
	}
	return arr, nil
}

func decodeRelation(name string, obj value.Object) (Operation, error) {
	items, err := objectsOf(obj)
	if err != nil {
		return nil, err
	}
	ptrs := make([]value.Pointer, 0, len(items))
	for i, item := range items {
		p, ok := item.(value.Pointer)
		if !ok {
			return nil, fmt.Errorf("decode %s: objects[%d] must be a pointer, got %s", name, i, value.Kind(item))
		}
		ptrs = append(ptrs, p)
	}

	var rel Relation
	if name == NameAddRelation {
		rel, err = AddRelation(ptrs...)
	} else {
		rel, err = RemoveRelation(ptrs...)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return rel, nil
}

func decodeBatch(obj value.Object) (Operation, error) {
	raw, ok := obj[keyOps].(value.Array)
	if !ok {
		return nil, fmt.Errorf("decode %s: %q must be an array", NameBatch, keyOps)
	}
	if len(raw) == 0 {
		return nil, errors.New("decode Batch: empty batch")
	}
	ops := make([]Operation, 0, len(raw))
	for i, item := range raw {
		op, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("decode Batch ops[%d]: %w", i, err)
		}
		ops = append(ops, op)
	}
	return Fold(nil, ops...)
}

// Encode is the inverse of Decode. A Set encodes as its bare value; a
// Relation that both adds and removes encodes as a Batch of AddRelation then
// RemoveRelation.
func Encode(op Operation) (value.Value, error) {
	switch o := op.(type) {
	case Delete:
		return opObject(NameDelete), nil
	case Set:
		if o.Value == nil {
			return value.Null{}, nil
		}
		return o.Value, nil
	case Increment:
		obj := opObject(NameIncrement)
		obj[keyAmount] = o.Amount
		return obj, nil
	case Add:
		return withObjects(NameAdd, o.Items), nil
	case AddUnique:
		return withObjects(NameAddUnique, o.Items), nil
	case Remove:
		return withObjects(NameRemove, o.Items), nil
	case Relation:
		return encodeRelation(o), nil
	case Batch:
		ops := make(value.Array, 0, len(o.Ops))
		for i, inner := range o.Ops {
			enc, err := Encode(inner)
			if err != nil {
				return nil, fmt.Errorf("encode Batch ops[%d]: %w", i, err)
			}
			ops = append(ops, enc)
		}
		obj := opObject(NameBatch)
		obj[keyOps] = ops
		return obj, nil
	default:
		return nil, fmt.Errorf("encode: unsupported operation %T", op)
	}
}

// Marshal encodes op as canonical JSON.
func Marshal(op Operation) ([]byte, error) {
	v, err := Encode(op)
	if err != nil {
		return nil, err
	}
	return value.Marshal(v)
}

func encodeRelation(rel Relation) value.Value {
	adds := withObjects(NameAddRelation, pointersToArray(rel.Adds))
	removes := withObjects(NameRemoveRelation, pointersToArray(rel.Removes))
	switch {
	case len(rel.Adds) > 0 && len(rel.Removes) > 0:
		obj := opObject(NameBatch)
		obj[keyOps] = value.Array{adds, removes}
		return obj
	case len(rel.Removes) > 0:
		return removes
	default:
		return adds
	}
}

func opObject(name string) value.Object {
	return value.Object{keyOp: value.String(name)}
}

func withObjects(name string, items value.Array) value.Object {
	obj := opObject(name)
	if items == nil {
		items = value.Array{}
	}
	obj[keyObjects] = items
	return obj
}

func pointersToArray(ps []value.Pointer) value.Array {
	out := make(value.Array, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}
