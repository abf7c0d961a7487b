package fieldop

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

// ChangeSet holds at most one pending operation per field of one object.
//
// A ChangeSet is not safe for concurrent use. Callers that share an object
// across goroutines must synchronize themselves.
type ChangeSet struct {
	order []string
	ops   map[string]Operation
}

// NewChangeSet returns an empty change-set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{ops: make(map[string]Operation)}
}

// Apply replaces the field's pending operation with Combine(pending, op).
// On error the change-set is unchanged and a MergeConflictError names the field.
func (cs *ChangeSet) Apply(field string, op Operation) error {
	if op == nil {
		return fmt.Errorf("apply %s: nil operation", field)
	}
	if cs.ops == nil {
		cs.ops = make(map[string]Operation)
	}

	prev, had := cs.ops[field]
	merged, err := Combine(prev, op)
	if err != nil {
		var mc *MergeConflictError
		if errors.As(err, &mc) {
			mc.Field = field
		}
		return err
	}
	if !had {
		cs.order = append(cs.order, field)
	}
	cs.ops[field] = merged
	return nil
}

// Get returns the pending operation for field.
func (cs *ChangeSet) Get(field string) (Operation, bool) {
	op, ok := cs.ops[field]
	return op, ok
}

// Fields returns the fields with a pending operation in first-touched order.
func (cs *ChangeSet) Fields() []string {
	return append([]string(nil), cs.order...)
}

// Len returns the number of fields with a pending operation.
func (cs *ChangeSet) Len() int { return len(cs.order) }

// IsEmpty reports whether nothing is pending.
func (cs *ChangeSet) IsEmpty() bool { return len(cs.order) == 0 }

// Ops returns a copy of the field to operation mapping.
func (cs *ChangeSet) Ops() map[string]Operation {
	out := make(map[string]Operation, len(cs.ops))
	for k, v := range cs.ops {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (cs *ChangeSet) Clone() *ChangeSet {
	return &ChangeSet{order: cs.Fields(), ops: cs.Ops()}
}

// Merge folds every operation of later into cs, as if later's operations had
// been applied after cs's. Either all fields merge or cs is left unchanged.
func (cs *ChangeSet) Merge(later *ChangeSet) error {
	if later == nil {
		return nil
	}
	next := cs.Clone()
	for _, field := range later.order {
		if err := next.Apply(field, later.ops[field]); err != nil {
			return err
		}
	}
	cs.order, cs.ops = next.order, next.ops
	return nil
}

// Encode returns the wire form: an object mapping each field to its encoded
// operation.
func (cs *ChangeSet) Encode() (value.Object, error) {
	out := make(value.Object, len(cs.ops))
	for field, op := range cs.ops {
		enc, err := Encode(op)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", field, err)
		}
		out[field] = enc
	}
	return out, nil
}

// MarshalJSON renders the change-set as canonical JSON.
func (cs *ChangeSet) MarshalJSON() ([]byte, error) {
	obj, err := cs.Encode()
	if err != nil {
		return nil, err
	}
	return value.Marshal(obj)
}

// Digest is a stable content hash of the encoded change-set.
func (cs *ChangeSet) Digest() (string, error) {
	obj, err := cs.Encode()
	if err != nil {
		return "", err
	}
	return value.Digest(value.DomainChangeSet, obj)
}

// DecodeChangeSet rebuilds a change-set from its wire form. Fields are added
// in sorted key order; each Batch collapses to a single operation.
func DecodeChangeSet(v value.Value) (*ChangeSet, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("decode change-set: expected object, got %s", value.Kind(v))
	}
	cs := NewChangeSet()
	for _, field := range obj.SortedKeys() {
		op, err := Decode(obj[field])
		if err != nil {
			return nil, fmt.Errorf("decode field %s: %w", field, err)
		}
		cs.order = append(cs.order, field)
		cs.ops[field] = op
	}
	return cs, nil
}

// UnmarshalChangeSet parses JSON produced by MarshalJSON.
func UnmarshalChangeSet(data []byte) (*ChangeSet, error) {
	v, err := value.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse change-set: %w", err)
	}
	return DecodeChangeSet(v)
}
