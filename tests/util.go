package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/KuramaMr/formation-platform/core"
	logsvc "github.com/KuramaMr/formation-platform/services/logger"
	dummystore "github.com/KuramaMr/formation-platform/storage/entitystore/dummy"
)

// Logger returns a discard logger for wiring services under test.
func Logger() core.Logger {
	return logsvc.NewStdLogger(log.New(io.Discard, "", 0))
}

// Fixture helpers write raw documents straight into the store so tests can
// set up historical data (including legacy-shape records) without going
// through the services under test.

func OpenStore(t *testing.T) *dummystore.Store {
	store, err := dummystore.Open()
	if err != nil {
		t.Fatalf("OpenStore() failed: %v", err)
	}
	return store
}

func put(t *testing.T, store core.EntityStore, collection string, doc core.Document) string {
	id := uuid.NewString()
	if err := store.Put(context.Background(), collection, id, doc); err != nil {
		t.Fatalf("put(%s) failed: %v", collection, err)
	}
	return id
}

func CreateProgram(t *testing.T, store core.EntityStore, ownerID, title string) string {
	now := time.Now().UTC()
	return put(t, store, core.ColPrograms, core.Document{
		"title":       title,
		"description": "",
		"ownerId":     ownerID,
		"createdAt":   now,
		"updatedAt":   now,
	})
}

func CreateUnit(t *testing.T, store core.EntityStore, programID, title string, order int) string {
	return put(t, store, core.ColUnits, core.Document{
		"formationId": programID,
		"title":       title,
		"ordre":       order,
		"contenu":     "",
	})
}

func CreateAssessment(t *testing.T, store core.EntityStore, unitID, title string) string {
	return put(t, store, core.ColAssessments, core.Document{
		"coursId": unitID,
		"title":   title,
		"questions": []interface{}{
			map[string]interface{}{
				"text":    "2 + 2 ?",
				"options": []interface{}{"3", "4"},
				"answer":  1,
			},
		},
	})
}

func CreateResult(t *testing.T, store core.EntityStore, assessmentID, learnerID string) string {
	return put(t, store, core.ColResults, core.Document{
		"quizId":    assessmentID,
		"userId":    learnerID,
		"answers":   []interface{}{1},
		"score":     float64(100),
		"createdAt": time.Now().UTC(),
	})
}

// CreateEnrollment writes a canonical-shape enrollment fact.
func CreateEnrollment(t *testing.T, store core.EntityStore, programID, learnerID string, at time.Time) string {
	return put(t, store, core.ColEnrollments, core.Document{
		"formationId": programID,
		"userId":      learnerID,
		"createdAt":   at.UTC(),
	})
}

// CreateLegacyEnrollment writes the legacy shape (learner under "eleveId").
func CreateLegacyEnrollment(t *testing.T, store core.EntityStore, programID, learnerID string, at time.Time) string {
	return put(t, store, core.ColLegacyEnrollments, core.Document{
		"formationId": programID,
		"eleveId":     learnerID,
		"createdAt":   at.UTC(),
	})
}

func CreateSignature(t *testing.T, store core.EntityStore, programID, learnerID string, at time.Time) string {
	return put(t, store, core.ColSignatures, core.Document{
		"formationId": programID,
		"userId":      learnerID,
		"imageRef":    "uploads/" + uuid.NewString(),
		"signedAt":    at.UTC(),
	})
}
