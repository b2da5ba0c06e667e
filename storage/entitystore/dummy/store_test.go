package dummystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KuramaMr/formation-platform/core"
)

func TestStore_GetPut(t *testing.T) {
	store, err := Open()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "things", "t1")
	assert.Equal(t, core.ErrNotFound, err)

	doc := core.Document{"name": "one", "tags": []interface{}{"a"}}
	require.NoError(t, store.Put(ctx, "things", "t1", doc))

	got, err := store.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got["id"])
	assert.Equal(t, "one", got["name"])

	// returned documents are copies; mutating one must not leak into the store
	got["name"] = "mutated"
	got["tags"].([]interface{})[0] = "mutated"
	again, err := store.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, "one", again["name"])
	assert.Equal(t, "a", again["tags"].([]interface{})[0])
}

func TestStore_Query(t *testing.T) {
	store, err := Open()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "units", "u1", core.Document{"formationId": "p1", "ordre": 2}))
	require.NoError(t, store.Put(ctx, "units", "u2", core.Document{"formationId": "p1", "ordre": 1}))
	require.NoError(t, store.Put(ctx, "units", "u3", core.Document{"formationId": "p2", "ordre": 1}))

	docs, err := store.Query(ctx, "units", []core.Filter{core.Eq("formationId", "p1")})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.Query(ctx, "units",
		[]core.Filter{core.Eq("formationId", "p1")},
		core.Ordering{Field: "ordre", Ascending: true},
	)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "u2", docs[0]["id"])
	assert.Equal(t, "u1", docs[1]["id"])

	// compound equality
	docs, err = store.Query(ctx, "units", []core.Filter{core.Eq("formationId", "p2"), core.Eq("ordre", 1)})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u3", docs[0]["id"])

	docs, err = store.Query(ctx, "nothing", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_BatchWrite(t *testing.T) {
	store, err := Open()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "things", "t1", core.Document{"n": 1}))

	err = store.BatchWrite(ctx, []core.WriteOp{
		core.PutOp("things", "t2", core.Document{"n": 2}),
		core.DeleteOp("things", "t1"),
		core.DeleteOp("things", "absent"), // no-op, not an error
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count("things"))
	_, err = store.Get(ctx, "things", "t1")
	assert.Equal(t, core.ErrNotFound, err)

	t.Run("oversized batch rejected", func(t *testing.T) {
		store.SetBatchLimit(2)
		err := store.BatchWrite(ctx, []core.WriteOp{
			core.DeleteOp("things", "a"),
			core.DeleteOp("things", "b"),
			core.DeleteOp("things", "c"),
		})
		assert.Error(t, err)
	})

	t.Run("injected failures", func(t *testing.T) {
		store.SetBatchLimit(10)
		store.FailBatchesFrom(1)
		require.NoError(t, store.BatchWrite(ctx, []core.WriteOp{core.DeleteOp("things", "t2")}))
		assert.Error(t, store.BatchWrite(ctx, []core.WriteOp{core.DeleteOp("things", "t2")}))
		store.FailBatchesFrom(-1)
		assert.NoError(t, store.BatchWrite(ctx, []core.WriteOp{core.DeleteOp("things", "t2")}))
	})
}

func TestStore_ContextCancellation(t *testing.T) {
	store, err := Open()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Get(ctx, "things", "t1")
	assert.Equal(t, context.Canceled, err)
	_, err = store.Query(ctx, "things", nil)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, context.Canceled, store.Put(ctx, "things", "t1", core.Document{}))
	assert.Equal(t, context.Canceled, store.BatchWrite(ctx, nil))
}
