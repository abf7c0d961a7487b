package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fieldsync/internal/fieldop"
	"github.com/roach88/fieldsync/internal/objectstore"
	"github.com/roach88/fieldsync/internal/session"
	"github.com/roach88/fieldsync/internal/testutil"
	"github.com/roach88/fieldsync/internal/value"
)

// Step error codes.
const (
	CodeMergeConflict    = "merge_conflict"
	CodeIncompatible     = "incompatible_value"
	CodeUnknownOperation = "unknown_operation"
	CodeUnknownObject    = "unknown_object"
	CodeNotFound         = "not_found"
	CodeStorageFailure   = "storage_failure"
	CodeInvalid          = "invalid"
)

var errUnknownObject = errors.New("object has no class: name its class on first use")

// Harness runs scenarios against an object store, tracking objects by
// alias.
type Harness struct {
	store   *objectstore.Store
	sess    *session.Session // set when the harness opened the store itself
	objects map[string]*objectstore.Object
	logger  *slog.Logger
}

// New creates a harness over a fresh in-memory database. Local ids come
// from a sequential generator and session sequence numbers from a
// deterministic clock, so two runs of one scenario store identical rows.
func New(ctx context.Context, logger *slog.Logger) (*Harness, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sess, err := session.Open(ctx, session.SQLiteDriver{}, ":memory:",
		session.WithSchema(objectstore.Schema()),
		session.WithClock(testutil.NewDeterministicClock()),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	st := objectstore.New(sess,
		objectstore.WithIDGenerator(testutil.NewSequentialIDGenerator("obj")),
		objectstore.WithLogger(logger),
	)
	h := NewWithStore(st, logger)
	h.sess = sess
	return h, nil
}

// NewWithStore creates a harness over an existing store.
func NewWithStore(st *objectstore.Store, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{
		store:   st,
		objects: make(map[string]*objectstore.Object),
		logger:  logger,
	}
}

// Close releases the in-memory database opened by New.
func (h *Harness) Close(ctx context.Context) error {
	if h.sess == nil {
		return nil
	}
	if _, err := h.sess.Close().Wait(ctx); err != nil && !session.IsSessionClosed(err) {
		return fmt.Errorf("close harness store: %w", err)
	}
	return nil
}

// Run executes a scenario on a fresh harness and returns its result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	h, err := New(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer h.Close(ctx)
	return h.Run(ctx, sc), nil
}

// Run executes every step and then every assertion. Step failures that
// were not expected and failed assertions are collected in the result;
// execution always continues.
func (h *Harness) Run(ctx context.Context, sc *Scenario) *Result {
	result := NewResult()

	for i, step := range sc.Steps {
		sr, err := h.execute(ctx, step)
		result.Steps = append(result.Steps, sr)

		if sr.Error != step.ExpectError {
			msg := fmt.Sprintf("steps[%d] %s %s: expected error %q, got %q", i, step.Action, step.Object, step.ExpectError, sr.Error)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}
		h.logger.Debug("scenario step", "scenario", sc.Name, "index", i, "action", step.Action, "object", step.Object, "error", sr.Error)
	}

	for i, a := range sc.Assertions {
		if err := h.check(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result
}

func (h *Harness) execute(ctx context.Context, step Step) (StepResult, error) {
	action := step.Action
	if action == "" {
		action = ActionPerform
	}
	sr := StepResult{Action: action, Object: step.Object, Field: step.Field}

	err := func() error {
		obj, err := h.object(step)
		if err != nil {
			return err
		}
		switch action {
		case ActionPerform:
			v, err := value.FromAny(step.Op)
			if err != nil {
				return err
			}
			op, err := fieldop.Decode(v)
			if err != nil {
				return err
			}
			sr.Op = op.Name()
			return obj.Perform(step.Field, op)
		case ActionSave:
			return h.store.Save(ctx, obj)
		case ActionAck:
			_, err := h.store.AcknowledgeObject(ctx, obj, step.ObjectID)
			return err
		case ActionDelete:
			if err := h.store.Delete(ctx, obj.LocalID()); err != nil {
				return err
			}
			delete(h.objects, step.Object)
			return nil
		default:
			return fmt.Errorf("unknown action %q", action)
		}
	}()

	sr.Error = errorCode(err)
	return sr, err
}

// object returns the object for step's alias, creating it when the step
// names a class.
func (h *Harness) object(step Step) (*objectstore.Object, error) {
	if obj, ok := h.objects[step.Object]; ok {
		if step.Class != "" && step.Class != obj.ClassName() {
			return nil, fmt.Errorf("object %s is a %s, not a %s", step.Object, obj.ClassName(), step.Class)
		}
		return obj, nil
	}
	if step.Class == "" {
		return nil, fmt.Errorf("%s: %w", step.Object, errUnknownObject)
	}
	obj := h.store.NewObject(step.Class)
	h.objects[step.Object] = obj
	return obj, nil
}

// Object returns the object bound to alias.
func (h *Harness) Object(alias string) (*objectstore.Object, bool) {
	obj, ok := h.objects[alias]
	return obj, ok
}

// pending is what would be sent for obj: its saved rows folded with its
// unsaved operations.
func (h *Harness) pending(ctx context.Context, obj *objectstore.Object) (*fieldop.ChangeSet, error) {
	cs, err := h.store.Pending(ctx, obj.LocalID())
	if err != nil {
		return nil, err
	}
	if err := cs.Merge(obj.Pending()); err != nil {
		return nil, err
	}
	return cs, nil
}

// pendingAliases lists the objects with saved rows, by alias where known.
func (h *Harness) pendingAliases(ctx context.Context) ([]string, error) {
	ids, err := h.store.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(h.objects))
	for alias, obj := range h.objects {
		byID[obj.LocalID()] = alias
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if alias, ok := byID[id]; ok {
			out[i] = alias
		} else {
			out[i] = id
		}
	}
	return out, nil
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case fieldop.IsMergeConflict(err):
		return CodeMergeConflict
	case errors.Is(err, fieldop.ErrIncompatibleValue):
		return CodeIncompatible
	case fieldop.IsUnknownOperation(err):
		return CodeUnknownOperation
	case errors.Is(err, errUnknownObject):
		return CodeUnknownObject
	case errors.Is(err, objectstore.ErrNotFound):
		return CodeNotFound
	case session.IsStorageFailure(err):
		return CodeStorageFailure
	default:
		return CodeInvalid
	}
}
