// Package fieldop implements the field operation algebra.
//
// An Operation describes one intended mutation of a single field. Successive
// operations on the same field fold into one through Combine, so a ChangeSet
// holds at most one pending operation per field:
//
//	Increment(2) then Increment(3)   -> Increment(5)
//	Add([a]) then Add([b])           -> Add([a b])
//	Set(v) then Increment(1)         -> Set(v+1)
//	anything then Delete             -> Delete
//	Add([a]) then Increment(1)       -> MergeConflictError
//
// Apply computes the value a field would take after an operation, which is
// how a pending Set absorbs later operations and how callers keep a local
// estimate of an object's data.
//
// # Wire form
//
// Decode and Encode convert between operations and value.Value using the
// "__op" naming (Delete, Increment, Add, AddUnique, Remove, AddRelation,
// RemoveRelation, Batch). A value without "__op" is a Set. Decoding a Batch
// folds it immediately, so Batch never reaches a ChangeSet.
package fieldop
