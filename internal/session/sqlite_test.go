package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/queryir"
	"github.com/roach88/fieldsync/internal/querysql"
	"github.com/roach88/fieldsync/internal/value"
)

var peopleSchema = Schema{
	Version: 1,
	OnCreate: func(ctx context.Context, u Unit) error {
		_, err := u.ExecSQL(ctx, `CREATE TABLE people (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			age  INTEGER
		)`)
		return err
	},
}

func openPeople(t *testing.T) (*Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")
	s, err := Open(context.Background(), SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func person(name string, age int64) *querysql.Values {
	return querysql.NewValues(value.O("name", value.String(name)), value.O("age", value.Int(age)))
}

func wait[T any](t *testing.T, f *Future[T]) T {
	t.Helper()
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	return v
}

func TestSQLite_CRUD(t *testing.T) {
	s, _ := openPeople(t)

	assert.Equal(t, int64(1), wait(t, s.Insert("people", person("ada", 36))))
	assert.Equal(t, int64(1), wait(t, s.Insert("people", person("alan", 41))))

	cur := wait(t, s.Query(querysql.Select{
		Table:   "people",
		Columns: []string{"name", "age"},
		OrderBy: "name",
	}))
	require.Equal(t, 2, cur.Len())
	assert.Equal(t, []string{"name", "age"}, cur.Columns())

	require.True(t, cur.Next())
	var name string
	var age int64
	require.NoError(t, cur.Scan(&name, &age))
	assert.Equal(t, "ada", name)
	assert.Equal(t, int64(36), age)

	n := wait(t, s.Update("people", querysql.NewValues(value.O("age", value.Int(37))), queryir.Eq("name", value.String("ada"))))
	assert.Equal(t, int64(1), n)

	cur = wait(t, s.Query(querysql.Select{Table: "people", Columns: []string{"age"}, Where: queryir.Eq("name", value.String("ada"))}))
	require.True(t, cur.Next())
	got, _ := cur.Get("age")
	assert.Equal(t, int64(37), got)

	n = wait(t, s.Delete("people", queryir.Where("age > ?", value.Int(40))))
	assert.Equal(t, int64(1), n)

	cur = wait(t, s.RawQuery("SELECT COUNT(*) AS n FROM people"))
	require.True(t, cur.Next())
	var count int
	require.NoError(t, cur.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLite_ConflictPolicies(t *testing.T) {
	s, _ := openPeople(t)
	wait(t, s.Insert("people", person("ada", 36)))

	_, err := s.InsertOrThrow("people", person("ada", 99)).Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsStorageFailure(err))

	n := wait(t, s.InsertWithConflict("people", person("ada", 99), querysql.ConflictIgnore))
	assert.Equal(t, int64(0), n)

	n = wait(t, s.InsertWithConflict("people", person("ada", 50), querysql.ConflictReplace))
	assert.Equal(t, int64(1), n)

	cur := wait(t, s.RawQuery("SELECT age FROM people WHERE name = ?", "ada"))
	require.True(t, cur.Next())
	var age int
	require.NoError(t, cur.Scan(&age))
	assert.Equal(t, 50, age)
}

func TestSQLite_FailedWriteLeavesNoPartialState(t *testing.T) {
	s, _ := openPeople(t)

	_, err := s.Do("two inserts", func(ctx context.Context, u Unit) error {
		stmt, err := querysql.Insert("people", person("grace", 85))
		if err != nil {
			return err
		}
		if _, err := u.Exec(ctx, stmt); err != nil {
			return err
		}
		// Violates UNIQUE(name); the first insert must roll back too.
		_, err = u.Exec(ctx, stmt)
		return err
	}).Wait(context.Background())
	require.Error(t, err)

	cur := wait(t, s.RawQuery("SELECT COUNT(*) FROM people"))
	require.True(t, cur.Next())
	var count int
	require.NoError(t, cur.Scan(&count))
	assert.Equal(t, 0, count)

	// The connection still takes writes.
	assert.Equal(t, int64(1), wait(t, s.Insert("people", person("grace", 85))))
}

func TestSQLite_CommittedDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	s, err := Open(ctx, SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.NoError(t, err)
	wait(t, s.Insert("people", person("ada", 36)))
	wait(t, s.Close())

	s, err = Open(ctx, SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.NoError(t, err)
	defer s.Close()

	cur := wait(t, s.Query(querysql.Select{Table: "people"}))
	assert.Equal(t, 1, cur.Len())
}

func TestSQLite_SchemaUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upgrade.db")
	ctx := context.Background()

	s, err := Open(ctx, SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.NoError(t, err)
	assert.Equal(t, 1, wait(t, s.Version()))
	wait(t, s.Close())

	var upgradedFrom int
	v2 := Schema{
		Version: 2,
		OnUpgrade: func(ctx context.Context, u Unit, from, to int) error {
			upgradedFrom = from
			_, err := u.ExecSQL(ctx, "ALTER TABLE people ADD COLUMN email TEXT")
			return err
		},
	}
	s, err = Open(ctx, SQLiteDriver{}, path, WithSchema(v2))
	require.NoError(t, err)
	assert.Equal(t, 1, upgradedFrom)
	assert.Equal(t, 2, wait(t, s.Version()))

	cur := wait(t, s.RawQuery("SELECT email FROM people"))
	assert.Equal(t, []string{"email"}, cur.Columns())
	wait(t, s.Close())

	// Opening with an older schema is refused.
	_, err = Open(ctx, SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than schema version")
}

func TestSQLite_FailedUpgradeKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badupgrade.db")
	ctx := context.Background()

	s, err := Open(ctx, SQLiteDriver{}, path, WithSchema(peopleSchema))
	require.NoError(t, err)
	wait(t, s.Close())

	_, err = Open(ctx, SQLiteDriver{}, path, WithSchema(Schema{
		Version: 2,
		OnUpgrade: func(ctx context.Context, u Unit, from, to int) error {
			return errors.New("migration bug")
		},
	}))
	require.Error(t, err)

	s, err = Open(ctx, SQLiteDriver{}, path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, wait(t, s.Version()))
}

func TestSQLite_SetVersion(t *testing.T) {
	s, _ := openPeople(t)
	wait(t, s.SetVersion(7))
	assert.Equal(t, 7, wait(t, s.Version()))
}

func TestSQLite_Execute(t *testing.T) {
	s, _ := openPeople(t)
	wait(t, s.Execute("CREATE TABLE extra (k TEXT PRIMARY KEY)"))
	wait(t, s.Execute("INSERT INTO extra (k) VALUES (?)", "x"))

	cur := wait(t, s.RawQuery("SELECT k FROM extra"))
	require.True(t, cur.Next())
	assert.Equal(t, []any{"x"}, cur.Row())
}

func TestSQLite_DeleteDatabase(t *testing.T) {
	s, path := openPeople(t)
	wait(t, s.Insert("people", person("ada", 36)))

	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.DeleteDatabase(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(path + "-wal")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = s.Insert("people", person("x", 1)).Wait(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := Open(context.Background(), SQLiteDriver{}, ":memory:", WithSchema(peopleSchema))
	require.NoError(t, err)
	defer s.Close()

	wait(t, s.Insert("people", person("ada", 36)))
	cur := wait(t, s.Query(querysql.Select{Table: "people", Columns: []string{"name"}}))
	assert.Equal(t, []map[string]any{{"name": "ada"}}, cur.Maps())
}

func TestSQLiteDriver_RemoveMissingFile(t *testing.T) {
	assert.NoError(t, SQLiteDriver{}.Remove(filepath.Join(t.TempDir(), "nope.db")))
}
