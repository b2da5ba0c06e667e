package core

import (
	"context"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Physical collections. "Reference" fields inside documents are plain string
// IDs with no enforced integrity; every consistency rule is enforced in code.
const (
	ColPrograms    = "formations"
	ColUnits       = "cours"
	ColAssessments = "quizzes"
	ColResults     = "resultats"

	// Enrollment facts live redundantly in two collections written by
	// different historical code paths. ColEnrollments is the canonical one;
	// ColLegacyEnrollments is read-only legacy data that must stay readable.
	ColEnrollments       = "inscriptions"
	ColLegacyEnrollments = "eleves_formations"

	ColSignatures = "signatures"
)

// Document is a schemaless record as the store hands it out. Implementations
// always include the document ID under the "id" key.
type Document map[string]interface{}

// Filter is a single equality predicate; a Query applies all of its filters
// with AND semantics.
type Filter struct {
	Field string
	Value interface{}
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

type Ordering struct {
	Field     string
	Ascending bool
}

// WriteOp is one entry of an atomic batch: either a full-document put or a
// delete. Deleting an absent document is a no-op, not an error.
type WriteOp struct {
	Collection string
	ID         string
	Doc        Document // nil for deletes
	Delete     bool
}

func PutOp(collection, id string, doc Document) WriteOp {
	return WriteOp{Collection: collection, ID: id, Doc: doc}
}

func DeleteOp(collection, id string) WriteOp {
	return WriteOp{Collection: collection, ID: id, Delete: true}
}

type (
	// EntityStore is the full contract the engine requires from the backing
	// document store: no joins, no foreign keys, equality-filter queries and a
	// bounded all-or-nothing batch. All calls honor ctx cancellation.
	EntityStore interface {
		// Get returns ErrNotFound when no document exists under id.
		Get(ctx context.Context, collection, id string) (Document, error)
		Query(ctx context.Context, collection string, filters []Filter, orderBy ...Ordering) ([]Document, error)
		Put(ctx context.Context, collection, id string, doc Document) error
		// BatchWrite applies all ops or none of them. len(ops) must not
		// exceed MaxBatchSize.
		BatchWrite(ctx context.Context, ops []WriteOp) error
		// MaxBatchSize bounds how many ops one BatchWrite may carry.
		MaxBatchSize() int
	}
)

// Decode maps a schemaless document onto a typed struct using `mapstructure`
// field tags. Numeric wire types are converted loosely since stores differ on
// integer widths.
func (d Document) Decode(out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       nullStringHook,
	})
	if err != nil {
		return errors.Wrap(err, "core.Document.Decode")
	}
	if err := dec.Decode(map[string]interface{}(d)); err != nil {
		return errors.Wrapf(err, "core.Document.Decode(%v)", d["id"])
	}
	return nil
}

var nullStringType = reflect.TypeOf(null.String{})

// nullStringHook lets optional document fields decode into null.String.
func nullStringHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != nullStringType || from == nullStringType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return null.StringFrom(v), nil
	case nil:
		return null.String{}, nil
	}
	return data, nil
}
