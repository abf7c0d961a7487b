package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/fieldsync/internal/fieldop"
	"github.com/roach88/fieldsync/internal/objectstore"
	"github.com/roach88/fieldsync/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Object   string
	Field    string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	target := e.Object
	if e.Field != "" {
		target += "." + e.Field
	}
	if target != "" {
		return fmt.Sprintf("%s %s: expected %s, got %s", e.Type, target, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func (h *Harness) check(ctx context.Context, a Assertion) error {
	if a.Type == AssertPendingIDs {
		return h.checkPendingIDs(ctx, a)
	}

	obj, ok := h.objects[a.Object]
	if !ok {
		return fmt.Errorf("%s: unknown object %q", a.Type, a.Object)
	}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Object: a.Object, Field: a.Field, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertValue:
		want, err := value.FromAny(a.Expect)
		if err != nil {
			return fmt.Errorf("%s: expect: %w", a.Type, err)
		}
		got, present := obj.Get(a.Field)
		if !present {
			return fail(value.Key(want), "absent")
		}
		if !value.Equal(got, want) {
			return fail(value.Key(want), value.Key(got))
		}

	case AssertAbsent:
		if got, present := obj.Get(a.Field); present {
			return fail("absent", value.Key(got))
		}

	case AssertPending:
		return h.checkPending(ctx, obj, a, fail)

	case AssertStored:
		want, err := value.FromAny(a.Expect)
		if err != nil {
			return fmt.Errorf("%s: expect: %w", a.Type, err)
		}
		stored, err := h.store.Load(ctx, obj.LocalID())
		if err != nil {
			return fail(value.Key(want), err.Error())
		}
		got, present := stored.Get(a.Field)
		if !present {
			return fail(value.Key(want), "absent")
		}
		if !value.Equal(got, want) {
			return fail(value.Key(want), value.Key(got))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkPending compares wire forms, so {"__op":"Increment","amount":5.0}
// matches an Increment of Int 5 and a Batch matches its folded operation.
func (h *Harness) checkPending(ctx context.Context, obj *objectstore.Object, a Assertion, fail func(string, string) error) error {
	cs, err := h.pending(ctx, obj)
	if err != nil {
		return fail("pending operations", errorCode(err))
	}
	got, has := cs.Get(a.Field)

	if a.Expect == nil {
		if has {
			return fail("nothing pending", wire(got))
		}
		return nil
	}

	v, err := value.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("%s: expect: %w", a.Type, err)
	}
	want, err := fieldop.Decode(v)
	if err != nil {
		return fmt.Errorf("%s: expect: %w", a.Type, err)
	}
	if !has {
		return fail(wire(want), "nothing pending")
	}
	if wire(got) != wire(want) {
		return fail(wire(want), wire(got))
	}
	return nil
}

func (h *Harness) checkPendingIDs(ctx context.Context, a Assertion) error {
	var want []string
	if a.Expect != nil {
		items, ok := a.Expect.([]any)
		if !ok {
			return fmt.Errorf("%s: expect must be a list of object names", a.Type)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%s: expect must be a list of object names", a.Type)
			}
			want = append(want, s)
		}
	}

	got, err := h.pendingAliases(ctx)
	if err != nil {
		return err
	}
	if !slices.Equal(got, want) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}

// wire renders op as canonical JSON.
func wire(op fieldop.Operation) string {
	data, err := fieldop.Marshal(op)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
