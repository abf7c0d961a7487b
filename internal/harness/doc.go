// Package harness runs scripted field-operation scenarios against an
// object store and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files:
//
//	name: counter_and_tags
//	description: "What this scenario demonstrates"
//	steps:
//	  - object: score          # alias, created on first use
//	    class: GameScore
//	    field: points
//	    op: {__op: Increment, amount: 2}
//	  - action: save
//	    object: score
//	  - object: score
//	    field: tags
//	    op: {__op: Remove, objects: [a]}
//	    expect_error: merge_conflict
//	assertions:
//	  - type: value
//	    object: score
//	    field: points
//	    expect: 2
//
// Ops use the wire form: an object with "__op", or any other value for a
// plain Set. In CUE, quote the underscore keys ("__op", "__type"); bare
// labels starting with an underscore are hidden fields.
//
// # Step Actions
//
//   - perform (default): decode op and apply it to field
//   - save: persist the object and its pending operations
//   - ack: drop the saved pending rows, recording object_id
//   - delete: remove the object and its rows
//
// # Assertion Types
//
//   - value / absent: the in-memory estimate of a field
//   - pending: the outstanding op for a field, saved and unsaved combined
//   - pending_ids: aliases with saved rows, oldest first
//   - stored: the last saved value of a field
//
// # Deterministic Testing
//
// New opens a fresh in-memory database with sequential local ids and a
// deterministic session clock, so Snapshot output is byte-identical across
// runs and can be compared with goldie golden files.
package harness
