// Package objectstore keeps objects and their unsent field operations in a
// local SQLite database.
//
// Each Object carries an estimate of its fields (what the server will hold
// once everything is sent) and the operations performed since the last
// Save. Save writes the estimate and appends those operations as one
// pending_ops row; Pending folds the rows back into a single change-set in
// the order they were saved. All database work goes through a
// session.Session, so concurrent callers are serialized.
package objectstore
