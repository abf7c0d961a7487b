package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fieldsync/internal/value"
)

// Snapshot captures a finished run: what each step did, every live object's
// estimate and outstanding operations, and which objects have saved rows.
// It marshals to canonical JSON, so equal runs give byte-identical output.
func (h *Harness) Snapshot(ctx context.Context, name string, res *Result) (value.Object, error) {
	steps := make(value.Array, len(res.Steps))
	for i, sr := range res.Steps {
		entry := value.Object{
			"action": value.String(sr.Action),
			"object": value.String(sr.Object),
		}
		if sr.Field != "" {
			entry["field"] = value.String(sr.Field)
		}
		if sr.Op != "" {
			entry["op"] = value.String(sr.Op)
		}
		if sr.Error != "" {
			entry["error"] = value.String(sr.Error)
		}
		steps[i] = entry
	}

	objects := make(value.Object, len(h.objects))
	for alias, obj := range h.objects {
		entry := value.Object{
			"class":    value.String(obj.ClassName()),
			"local_id": value.String(obj.LocalID()),
			"data":     obj.Data(),
		}
		if id := obj.ObjectID(); id != "" {
			entry["object_id"] = value.String(id)
		}
		cs, err := h.pending(ctx, obj)
		if err != nil {
			entry["pending_error"] = value.String(errorCode(err))
		} else {
			enc, err := cs.Encode()
			if err != nil {
				return nil, err
			}
			entry["pending"] = enc
		}
		objects[alias] = entry
	}

	aliases, err := h.pendingAliases(ctx)
	if err != nil {
		return nil, err
	}
	pendingIDs := make(value.Array, len(aliases))
	for i, a := range aliases {
		pendingIDs[i] = value.String(a)
	}

	return value.Object{
		"scenario":    value.String(name),
		"steps":       steps,
		"objects":     objects,
		"pending_ids": pendingIDs,
	}, nil
}

// RunWithGolden runs a scenario on a fresh harness and compares its
// canonical snapshot with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()
	ctx := context.Background()

	h, err := New(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer h.Close(ctx)

	res := h.Run(ctx, sc)
	snap, err := h.Snapshot(ctx, sc.Name, res)
	if err != nil {
		return res, err
	}
	data, err := value.Marshal(snap)
	if err != nil {
		return res, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return res, nil
}
