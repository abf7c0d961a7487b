package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/fieldop"
	"github.com/roach88/fieldsync/internal/value"
)

func TestObject_PerformUpdatesEstimateAndPending(t *testing.T) {
	obj := newObject("local-1", "GameScore")

	require.NoError(t, obj.Increment("score", 2))
	require.NoError(t, obj.Increment("score", 3))
	require.NoError(t, obj.Set("name", value.String("ada")))
	require.NoError(t, obj.AddUnique("tags", value.String("a"), value.String("b")))
	require.NoError(t, obj.AddUnique("tags", value.String("a")))

	v, ok := obj.Get("score")
	require.True(t, ok)
	assert.Equal(t, value.Int(5), v)

	v, _ = obj.Get("tags")
	assert.Equal(t, value.NewArray(value.String("a"), value.String("b")), v)

	pending := obj.Pending()
	assert.Equal(t, []string{"score", "name", "tags"}, pending.Fields())
	op, _ := pending.Get("score")
	assert.Equal(t, fieldop.IncrementBy(5), op)
	assert.True(t, obj.IsDirty())
}

func TestObject_UnsetRemovesField(t *testing.T) {
	obj := newObject("local-1", "Item")
	require.NoError(t, obj.Set("color", value.String("red")))
	require.NoError(t, obj.Unset("color"))

	_, ok := obj.Get("color")
	assert.False(t, ok)

	op, _ := obj.Pending().Get("color")
	assert.Equal(t, fieldop.Delete{}, op)
}

func TestObject_ConflictLeavesObjectUnchanged(t *testing.T) {
	obj := newObject("local-1", "Item")
	require.NoError(t, obj.Add("list", value.Int(1)))
	before := obj.Data()

	err := obj.Increment("list", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Item.list")

	assert.Equal(t, before, obj.Data())
	op, _ := obj.Pending().Get("list")
	assert.Equal(t, fieldop.NewAdd(value.Int(1)), op)
}

func TestObject_MergeConflictIsReported(t *testing.T) {
	obj := newObject("local-1", "Item")
	require.NoError(t, obj.Add("list", value.Int(1)))

	// Remove on an array estimate applies, but Add then Remove cannot be
	// held as one pending operation.
	err := obj.Remove("list", value.Int(1))
	require.Error(t, err)
	assert.True(t, fieldop.IsMergeConflict(err))

	v, _ := obj.Get("list")
	assert.Equal(t, value.NewArray(value.Int(1)), v)
}

func TestObject_Relations(t *testing.T) {
	obj := newObject("local-1", "Post")
	alice := value.Pointer{ClassName: "_User", ObjectID: "alice"}
	bob := value.Pointer{ClassName: "_User", ObjectID: "bob"}

	require.NoError(t, obj.Relate("likes", alice, bob))
	require.NoError(t, obj.Unrelate("likes", bob))

	v, _ := obj.Get("likes")
	assert.Equal(t, fieldop.RelationValue("_User"), v)

	op, _ := obj.Pending().Get("likes")
	rel, ok := op.(fieldop.Relation)
	require.True(t, ok)
	assert.Equal(t, []value.Pointer{alice}, rel.Adds)
	assert.Equal(t, []value.Pointer{bob}, rel.Removes)

	err := obj.Relate("likes", value.Pointer{ClassName: "Team", ObjectID: "t1"})
	assert.Error(t, err, "a relation field holds one target class")
}

func TestObject_PointerFallsBackToLocalID(t *testing.T) {
	obj := newObject("local-1", "Post")
	assert.Equal(t, value.Pointer{ClassName: "Post", ObjectID: "local-1"}, obj.Pointer())

	obj.objectID = "srv-9"
	assert.Equal(t, value.Pointer{ClassName: "Post", ObjectID: "srv-9"}, obj.Pointer())
}

func TestObject_NilOperation(t *testing.T) {
	obj := newObject("local-1", "Post")
	assert.Error(t, obj.Perform("x", nil))
}
