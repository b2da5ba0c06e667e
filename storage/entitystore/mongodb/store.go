package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/KuramaMr/formation-platform/core"
)

// Store implements core.EntityStore on MongoDB. Each logical collection maps
// to a Mongo collection; document IDs are the string _id. BatchWrite runs in
// a multi-document transaction so the batch stays all-or-nothing even when
// ops span collections, which cascade deletions always do.
type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	batchLimit int
}

var _ core.EntityStore = (*Store)(nil) // interface compliance check

func Open(ctx context.Context) (*Store, error) {
	uri := core.Conf.GetString("mongoURI")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrapf(err, "mongostore.Open(%s)", uri)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrapf(err, "mongostore.Open.Ping(%s)", uri)
	}
	return &Store{
		client:     client,
		db:         client.Database(core.Conf.GetString("mongoDatabase")),
		batchLimit: core.Conf.GetInt("storeBatchLimit"),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) MaxBatchSize() int {
	return s.batchLimit
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, core.ErrNotFound
		}
		return nil, errors.Wrapf(err, "mongostore.Get(%s, %s)", collection, id)
	}
	return docFromBSON(raw), nil
}

func (s *Store) Query(ctx context.Context, collection string, filters []core.Filter, orderBy ...core.Ordering) ([]core.Document, error) {
	filter := bson.M{}
	for _, f := range filters {
		filter[fieldName(f.Field)] = f.Value
	}
	opts := options.Find()
	if len(orderBy) > 0 {
		sort := bson.D{}
		for _, ord := range orderBy {
			dir := -1
			if ord.Ascending {
				dir = 1
			}
			sort = append(sort, bson.E{Key: fieldName(ord.Field), Value: dir})
		}
		opts.SetSort(sort)
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "mongostore.Query(%s)", collection)
	}
	defer cur.Close(ctx)

	var out []core.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "mongostore.Query(%s).Decode", collection)
		}
		out = append(out, docFromBSON(raw))
	}
	return out, errors.Wrapf(cur.Err(), "mongostore.Query(%s)", collection)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc core.Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": id},
		docToBSON(doc),
		options.Replace().SetUpsert(true),
	)
	return errors.Wrapf(err, "mongostore.Put(%s, %s)", collection, id)
}

func (s *Store) BatchWrite(ctx context.Context, ops []core.WriteOp) error {
	if len(ops) > s.batchLimit {
		return errors.Errorf("mongostore: batch of %d exceeds limit %d", len(ops), s.batchLimit)
	}
	if len(ops) == 0 {
		return nil
	}

	// per-collection bulk writes, wrapped in one transaction
	grouped := make(map[string][]mongo.WriteModel)
	var order []string
	for _, op := range ops {
		if _, ok := grouped[op.Collection]; !ok {
			order = append(order, op.Collection)
		}
		var model mongo.WriteModel
		if op.Delete {
			model = mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID})
		} else {
			model = mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": op.ID}).
				SetReplacement(docToBSON(op.Doc)).
				SetUpsert(true)
		}
		grouped[op.Collection] = append(grouped[op.Collection], model)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "mongostore.BatchWrite.StartSession")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, collection := range order {
			if _, err := s.db.Collection(collection).BulkWrite(sessCtx, grouped[collection]); err != nil {
				return nil, errors.Wrapf(err, "mongostore.BatchWrite(%s)", collection)
			}
		}
		return nil, nil
	})
	return err
}

func fieldName(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func docToBSON(doc core.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

func docFromBSON(raw bson.M) core.Document {
	doc := make(core.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			doc["id"] = v
			continue
		}
		doc[k] = normalize(v)
	}
	return doc
}

// normalize maps bson wire types back onto the plain Go values the engine's
// Document decoding expects.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.M: // bson.M aliases this
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case int32:
		return int(val)
	case int64:
		return int(val)
	case time.Time:
		return val.UTC()
	}
	return v
}
