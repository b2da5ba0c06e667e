package dummystore

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/KuramaMr/formation-platform/core"
)

// Store is an in-memory EntityStore for tests and local development. It
// mirrors the production contract exactly: equality-only queries, bounded
// all-or-nothing batches, deletes of absent documents as no-ops.
type Store struct {
	sync.RWMutex
	collections map[string]map[string]core.Document
	batchLimit  int

	// test hooks
	failBatchesFrom int // fail BatchWrite calls once this many committed; <0 disabled
	batchCalls      int
}

var _ core.EntityStore = (*Store)(nil) // interface compliance check

var errBatchFailure = errors.New("dummystore: injected batch failure")

func Open() (*Store, error) {
	return &Store{
		collections:     make(map[string]map[string]core.Document),
		batchLimit:      core.Conf.GetInt("storeBatchLimit"),
		failBatchesFrom: -1,
	}, nil
}

// SetBatchLimit overrides the atomic-batch bound (tests exercise chunking
// with tiny limits).
func (s *Store) SetBatchLimit(n int) {
	s.Lock()
	defer s.Unlock()
	s.batchLimit = n
}

// FailBatchesFrom makes every BatchWrite after the first n fail, simulating a
// crash between cascade sub-batches. Pass a negative value to disable.
func (s *Store) FailBatchesFrom(n int) {
	s.Lock()
	defer s.Unlock()
	s.failBatchesFrom = n
	s.batchCalls = 0
}

func (s *Store) MaxBatchSize() int {
	s.RLock()
	defer s.RUnlock()
	return s.batchLimit
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	if doc, ok := s.collections[collection][id]; ok {
		return cloneDoc(doc, id), nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) Query(ctx context.Context, collection string, filters []core.Filter, orderBy ...core.Ordering) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	var out []core.Document
	for id, doc := range s.collections[collection] {
		if matches(doc, id, filters) {
			out = append(out, cloneDoc(doc, id))
		}
	}
	for i := len(orderBy) - 1; i >= 0; i-- {
		ord := orderBy[i]
		sort.SliceStable(out, func(a, b int) bool {
			less := lessValues(out[a][ord.Field], out[b][ord.Field])
			if ord.Ascending {
				return less
			}
			return lessValues(out[b][ord.Field], out[a][ord.Field])
		})
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.put(collection, id, doc)
	return nil
}

func (s *Store) BatchWrite(ctx context.Context, ops []core.WriteOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()

	if len(ops) > s.batchLimit {
		return errors.Errorf("dummystore: batch of %d exceeds limit %d", len(ops), s.batchLimit)
	}
	if s.failBatchesFrom >= 0 && s.batchCalls >= s.failBatchesFrom {
		return errBatchFailure
	}
	s.batchCalls++

	// everything below cannot fail, so the batch is trivially all-or-nothing
	for _, op := range ops {
		if op.Delete {
			delete(s.collections[op.Collection], op.ID) // absent doc: no-op
			continue
		}
		s.put(op.Collection, op.ID, op.Doc)
	}
	return nil
}

func (s *Store) put(collection, id string, doc core.Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]core.Document)
	}
	stored := make(core.Document, len(doc))
	for k, v := range doc {
		if k == "id" {
			continue
		}
		stored[k] = cloneValue(v)
	}
	s.collections[collection][id] = stored
}

// Count reports how many documents a collection holds (test helper).
func (s *Store) Count(collection string) int {
	s.RLock()
	defer s.RUnlock()
	return len(s.collections[collection])
}

func matches(doc core.Document, id string, filters []core.Filter) bool {
	for _, f := range filters {
		if f.Field == "id" {
			if id != f.Value {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func lessValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int:
		bv, _ := b.(int)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	}
	return false
}

func cloneDoc(doc core.Document, id string) core.Document {
	out := make(core.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	out["id"] = id
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case core.Document:
		out := make(core.Document, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
