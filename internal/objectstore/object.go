package objectstore

import (
	"fmt"

	"github.com/roach88/fieldsync/internal/fieldop"
	"github.com/roach88/fieldsync/internal/value"
)

// Object is a locally cached record: the estimated field values plus the
// operations performed since the last Save.
//
// Object is not safe for concurrent use.
type Object struct {
	localID   string
	className string
	objectID  string

	data    value.Object
	pending *fieldop.ChangeSet
}

func newObject(localID, className string) *Object {
	return &Object{
		localID:   localID,
		className: className,
		data:      make(value.Object),
		pending:   fieldop.NewChangeSet(),
	}
}

// LocalID is the store-assigned id, stable for the object's lifetime.
func (o *Object) LocalID() string { return o.localID }

// ClassName is the object's class.
func (o *Object) ClassName() string { return o.className }

// ObjectID is the server id, empty until acknowledged.
func (o *Object) ObjectID() string { return o.objectID }

// Pointer references this object. Before the server has assigned an id
// the local id stands in.
func (o *Object) Pointer() value.Pointer {
	id := o.objectID
	if id == "" {
		id = o.localID
	}
	return value.Pointer{ClassName: o.className, ObjectID: id}
}

// Get returns the estimated value of field.
func (o *Object) Get(field string) (value.Value, bool) {
	v, ok := o.data[field]
	return v, ok
}

// Data returns a copy of the estimated field values.
func (o *Object) Data() value.Object { return o.data.Clone() }

// Pending returns a copy of the operations not yet saved.
func (o *Object) Pending() *fieldop.ChangeSet { return o.pending.Clone() }

// IsDirty reports whether there are unsaved operations.
func (o *Object) IsDirty() bool { return !o.pending.IsEmpty() }

// Perform records op against field and updates the estimate. If the op
// cannot be merged with the field's pending op, or cannot be applied to the
// current estimate, the object is left unchanged.
func (o *Object) Perform(field string, op fieldop.Operation) error {
	if op == nil {
		return fmt.Errorf("perform on %s.%s: nil operation", o.className, field)
	}
	old, exists := o.data[field]
	next, present, err := fieldop.Apply(op, old, exists)
	if err != nil {
		return fmt.Errorf("perform %s on %s.%s: %w", op.Name(), o.className, field, err)
	}
	if err := o.pending.Apply(field, op); err != nil {
		return fmt.Errorf("perform %s on %s.%s: %w", op.Name(), o.className, field, err)
	}
	if present {
		o.data[field] = next
	} else {
		delete(o.data, field)
	}
	return nil
}

// Set replaces field's value.
func (o *Object) Set(field string, v value.Value) error {
	return o.Perform(field, fieldop.Set{Value: v})
}

// Unset removes field.
func (o *Object) Unset(field string) error {
	return o.Perform(field, fieldop.Delete{})
}

// Increment adds n to a numeric field.
func (o *Object) Increment(field string, n int64) error {
	return o.Perform(field, fieldop.IncrementBy(n))
}

// Add appends items to an array field.
func (o *Object) Add(field string, items ...value.Value) error {
	return o.Perform(field, fieldop.NewAdd(items...))
}

// AddUnique appends the items not already in an array field.
func (o *Object) AddUnique(field string, items ...value.Value) error {
	return o.Perform(field, fieldop.NewAddUnique(items...))
}

// Remove removes every occurrence of items from an array field.
func (o *Object) Remove(field string, items ...value.Value) error {
	return o.Perform(field, fieldop.NewRemove(items...))
}

// Relate adds targets to a relation field.
func (o *Object) Relate(field string, targets ...value.Pointer) error {
	rel, err := fieldop.AddRelation(targets...)
	if err != nil {
		return err
	}
	return o.Perform(field, rel)
}

// Unrelate removes targets from a relation field.
func (o *Object) Unrelate(field string, targets ...value.Pointer) error {
	rel, err := fieldop.RemoveRelation(targets...)
	if err != nil {
		return err
	}
	return o.Perform(field, rel)
}
