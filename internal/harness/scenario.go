package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of field operations against local
// objects, followed by assertions on the resulting estimates and pending
// operations. Scenarios are written in YAML or CUE.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Steps run in order against a fresh in-memory store.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step actions.
const (
	ActionPerform = "perform"
	ActionSave    = "save"
	ActionAck     = "ack"
	ActionDelete  = "delete"
)

// Step is one scripted action on a named object.
//
// Objects are referred to by an alias. The first step that names an alias
// must give its Class; the object is created then.
type Step struct {
	// Action is perform (the default), save, ack or delete.
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	Object string `yaml:"object" json:"object"`
	Class  string `yaml:"class,omitempty" json:"class,omitempty"`

	// Field and Op are used by perform. Op is in wire form: an object with
	// "__op", or any other value meaning Set.
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	Op    any    `yaml:"op,omitempty" json:"op,omitempty"`

	// ObjectID is the server id recorded by ack.
	ObjectID string `yaml:"object_id,omitempty" json:"object_id,omitempty"`

	// ExpectError is the error code the step must fail with, e.g.
	// merge_conflict. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Assertion types.
const (
	AssertValue      = "value"
	AssertAbsent     = "absent"
	AssertPending    = "pending"
	AssertPendingIDs = "pending_ids"
	AssertStored     = "stored"
)

// Assertion checks the final state of the run.
//
//   - value: the object's estimated Field equals Expect
//   - absent: the object's estimated Field is not set
//   - pending: the object's outstanding op for Field (saved rows folded with
//     unsaved operations) encodes to the same wire form as Expect
//   - pending_ids: the aliases with saved, unacknowledged rows, in order
//   - stored: the last saved value of Field equals Expect
type Assertion struct {
	Type   string `yaml:"type" json:"type"`
	Object string `yaml:"object,omitempty" json:"object,omitempty"`
	Field  string `yaml:"field,omitempty" json:"field,omitempty"`
	Expect any    `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// LoadScenario reads a scenario file. Files ending in .cue are evaluated as
// CUE; anything else is parsed as YAML.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(data, path)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML scenario. Unknown fields are rejected so typos
// like "assertion:" fail loudly.
func ParseYAML(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// ParseCUE evaluates a CUE scenario and decodes it. Labels starting with an
// underscore are hidden in CUE, so wire keys must be quoted: "__op".
func ParseCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate CUE: %w", err)
	}

	var sc Scenario
	if err := v.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode CUE: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Action == "" {
			step.Action = ActionPerform
		}
		if step.Object == "" {
			return fmt.Errorf("steps[%d]: object is required", i)
		}
		switch step.Action {
		case ActionPerform:
			if step.Field == "" {
				return fmt.Errorf("steps[%d]: field is required for perform", i)
			}
		case ActionSave, ActionAck, ActionDelete:
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertValue, AssertAbsent, AssertPending, AssertStored:
		if a.Object == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: object and field are required for %s", index, a.Type)
		}
	case AssertPendingIDs:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
