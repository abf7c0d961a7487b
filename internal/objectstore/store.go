package objectstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/fieldsync/internal/fieldop"
	"github.com/roach88/fieldsync/internal/queryir"
	"github.com/roach88/fieldsync/internal/querysql"
	"github.com/roach88/fieldsync/internal/session"
	"github.com/roach88/fieldsync/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - objects and pending_ops tables
const currentSchemaVersion = 1

const (
	objectsTable = "objects"
	pendingTable = "pending_ops"
)

// ErrNotFound is returned by Load for an unknown local id.
var ErrNotFound = errors.New("object not found")

// Store persists objects and their unsent operations through a session.
// Every database action goes through the session queue, so a Store is safe
// for concurrent use; the Objects it hands out are not.
type Store struct {
	sess   *session.Session
	owned  bool
	ids    IDGenerator
	logger *slog.Logger
}

// Schema is the session schema the store's tables need. Sessions passed to
// New must have been opened with it.
func Schema() session.Schema {
	return session.Schema{
		Version: currentSchemaVersion,
		OnCreate: func(ctx context.Context, u session.Unit) error {
			if _, err := u.ExecSQL(ctx, schemaSQL); err != nil {
				return fmt.Errorf("execute schema: %w", err)
			}
			return nil
		},
	}
}

// Open opens (creating if needed) a SQLite database at path and returns a
// Store that owns its session.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := build(opts)
	sess, err := session.Open(ctx, session.SQLiteDriver{}, path,
		session.WithSchema(Schema()),
		session.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}
	s.sess = sess
	s.owned = true
	return s, nil
}

// New wraps an already open session. Close leaves the session open.
func New(sess *session.Session, opts ...Option) *Store {
	s := build(opts)
	s.sess = sess
	return s
}

func build(opts []Option) *Store {
	s := &Store{ids: UUIDv7Generator{}, logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the underlying session.
func (s *Store) Session() *session.Session { return s.sess }

// Close closes the session if the store opened it.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	if _, err := s.sess.Close().Wait(ctx); err != nil && !session.IsSessionClosed(err) {
		return fmt.Errorf("close object store: %w", err)
	}
	return nil
}

// NewObject creates an empty object of class with a fresh local id. Nothing
// is written until Save.
func (s *Store) NewObject(className string) *Object {
	return newObject(s.ids.Generate(), className)
}

// Save writes obj's estimated data and appends its pending operations as
// one pending_ops row, in a single queued write. On success the object's
// in-memory pending set is cleared. If those operations cannot be merged
// onto the rows already saved, Save writes nothing, returns the
// MergeConflictError and keeps the in-memory pending set.
func (s *Store) Save(ctx context.Context, obj *Object) error {
	data, err := value.Marshal(obj.data)
	if err != nil {
		return fmt.Errorf("save %s: encode data: %w", obj.localID, err)
	}

	var pendingRow *querysql.Values
	if !obj.pending.IsEmpty() {
		ops, err := obj.pending.MarshalJSON()
		if err != nil {
			return fmt.Errorf("save %s: encode operations: %w", obj.localID, err)
		}
		hash, err := obj.pending.Digest()
		if err != nil {
			return fmt.Errorf("save %s: hash operations: %w", obj.localID, err)
		}
		pendingRow = querysql.NewValues(
			value.O("local_id", value.String(obj.localID)),
			value.O("ops", value.String(ops)),
			value.O("ops_hash", value.String(hash)),
		)
	}

	objectRow := querysql.NewValues(
		value.O("local_id", value.String(obj.localID)),
		value.O("class_name", value.String(obj.className)),
		value.O("object_id", nullIfEmpty(obj.objectID)),
		value.O("data", value.String(data)),
	)

	_, err = s.sess.Do("saveObject", func(ctx context.Context, u session.Unit) error {
		if pendingRow != nil {
			// The new row must fold onto the rows already saved, or Pending
			// could never read this object back.
			stmt, err := pendingQuery(obj.localID).Build()
			if err != nil {
				return err
			}
			cur, err := u.Query(ctx, stmt)
			if err != nil {
				return fmt.Errorf("read pending operations: %w", err)
			}
			saved, err := foldPending(cur)
			if err != nil {
				return err
			}
			if err := saved.Merge(obj.pending); err != nil {
				return err
			}
		}

		stmt, err := querysql.InsertWithConflict(objectsTable, objectRow, querysql.ConflictReplace)
		if err != nil {
			return err
		}
		if _, err := u.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("write object: %w", err)
		}
		if pendingRow == nil {
			return nil
		}
		stmt, err = querysql.Insert(pendingTable, pendingRow)
		if err != nil {
			return err
		}
		if _, err := u.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("append pending operations: %w", err)
		}
		return nil
	}).Wait(ctx)
	if err != nil {
		return fmt.Errorf("save %s: %w", obj.localID, err)
	}

	s.logger.Debug("saved object", "local_id", obj.localID, "class", obj.className, "pending_fields", obj.pending.Len())
	obj.pending = fieldop.NewChangeSet()
	return nil
}

// Load reads an object's last saved state. The returned object has no
// unsaved operations; use Pending for what is still waiting to be sent.
func (s *Store) Load(ctx context.Context, localID string) (*Object, error) {
	cur, err := s.sess.Query(querysql.Select{
		Table:   objectsTable,
		Columns: objectColumns,
		Where:   queryir.Eq("local_id", value.String(localID)),
	}).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", localID, err)
	}
	if !cur.Next() {
		return nil, fmt.Errorf("load %s: %w", localID, ErrNotFound)
	}
	obj, err := scanObject(cur)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", localID, err)
	}
	return obj, nil
}

// List returns every saved object of className, ordered by local id.
func (s *Store) List(ctx context.Context, className string) ([]*Object, error) {
	cur, err := s.sess.Query(querysql.Select{
		Table:   objectsTable,
		Columns: objectColumns,
		Where:   queryir.Eq("class_name", value.String(className)),
		OrderBy: "local_id",
	}).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", className, err)
	}
	objs := make([]*Object, 0, cur.Len())
	for cur.Next() {
		obj, err := scanObject(cur)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", className, err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Pending folds every saved pending_ops row of an object, oldest first,
// into one change-set. An object with nothing pending yields an empty set.
func (s *Store) Pending(ctx context.Context, localID string) (*fieldop.ChangeSet, error) {
	cur, err := s.sess.Query(pendingQuery(localID)).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending %s: %w", localID, err)
	}
	merged, err := foldPending(cur)
	if err != nil {
		return nil, fmt.Errorf("pending %s: %w", localID, err)
	}
	return merged, nil
}

func pendingQuery(localID string) querysql.Select {
	return querysql.Select{
		Table:   pendingTable,
		Columns: []string{"id", "ops", "ops_hash"},
		Where:   queryir.Eq("local_id", value.String(localID)),
		OrderBy: "id",
	}
}

// foldPending merges pending_ops rows read by pendingQuery, in order.
func foldPending(cur *session.Cursor) (*fieldop.ChangeSet, error) {
	merged := fieldop.NewChangeSet()
	for cur.Next() {
		var (
			id        int64
			ops, hash string
		)
		if err := cur.Scan(&id, &ops, &hash); err != nil {
			return nil, err
		}
		cs, err := decodePending(id, ops, hash)
		if err != nil {
			return nil, err
		}
		if err := merged.Merge(cs); err != nil {
			return nil, fmt.Errorf("row %d: %w", id, err)
		}
	}
	return merged, nil
}

func decodePending(id int64, ops, hash string) (*fieldop.ChangeSet, error) {
	v, err := value.Parse([]byte(ops))
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", id, err)
	}
	got, err := value.Digest(value.DomainChangeSet, v)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", id, err)
	}
	if got != hash {
		return nil, fmt.Errorf("row %d: operations hash mismatch", id)
	}
	cs, err := fieldop.DecodeChangeSet(v)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", id, err)
	}
	return cs, nil
}

// PendingIDs lists the local ids that have saved, unacknowledged
// operations, in the order their oldest row was written.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	cur, err := s.sess.RawQuery(
		"SELECT local_id FROM pending_ops GROUP BY local_id ORDER BY MIN(id)",
	).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending ids: %w", err)
	}
	ids := make([]string, 0, cur.Len())
	for cur.Next() {
		var id string
		if err := cur.Scan(&id); err != nil {
			return nil, fmt.Errorf("pending ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Acknowledge drops an object's saved pending operations once the server
// has accepted them, recording the server's objectID when given. It
// returns the number of pending rows removed.
func (s *Store) Acknowledge(ctx context.Context, localID, objectID string) (int64, error) {
	var removed int64
	_, err := s.sess.Do("acknowledge", func(ctx context.Context, u session.Unit) error {
		stmt, err := querysql.Delete(pendingTable, queryir.Eq("local_id", value.String(localID)))
		if err != nil {
			return err
		}
		if removed, err = u.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("delete pending operations: %w", err)
		}
		if objectID == "" {
			return nil
		}
		stmt, err = querysql.Update(objectsTable,
			querysql.NewValues(value.O("object_id", value.String(objectID))),
			queryir.Eq("local_id", value.String(localID)),
		)
		if err != nil {
			return err
		}
		if _, err := u.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("record object id: %w", err)
		}
		return nil
	}).Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("acknowledge %s: %w", localID, err)
	}
	s.logger.Debug("acknowledged object", "local_id", localID, "rows", removed)
	return removed, nil
}

// AcknowledgeObject is Acknowledge for an object in hand. It also records
// objectID on obj.
func (s *Store) AcknowledgeObject(ctx context.Context, obj *Object, objectID string) (int64, error) {
	n, err := s.Acknowledge(ctx, obj.localID, objectID)
	if err != nil {
		return 0, err
	}
	if objectID != "" {
		obj.objectID = objectID
	}
	return n, nil
}

// Delete removes an object and its pending operations.
func (s *Store) Delete(ctx context.Context, localID string) error {
	where := queryir.Eq("local_id", value.String(localID))
	_, err := s.sess.Do("deleteObject", func(ctx context.Context, u session.Unit) error {
		for _, table := range []string{pendingTable, objectsTable} {
			stmt, err := querysql.Delete(table, where)
			if err != nil {
				return err
			}
			if _, err := u.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	}).Wait(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", localID, err)
	}
	return nil
}

var objectColumns = []string{"local_id", "class_name", "object_id", "data"}

func scanObject(cur *session.Cursor) (*Object, error) {
	var localID, className, objectID, data string
	if err := cur.Scan(&localID, &className, &objectID, &data); err != nil {
		return nil, err
	}
	v, err := value.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode data of %s: %w", localID, err)
	}
	fields, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("decode data of %s: expected object, got %s", localID, value.Kind(v))
	}
	obj := newObject(localID, className)
	obj.objectID = objectID
	obj.data = fields
	return obj, nil
}

func nullIfEmpty(s string) value.Value {
	if s == "" {
		return value.Null{}
	}
	return value.String(s)
}
