package enrollment

import (
	"time"

	"github.com/KuramaMr/formation-platform/core"
)

// Enrollment is the logical "learner L is enrolled in Program P" fact,
// regardless of which physical collection the record came from.
type Enrollment struct {
	ID         string    `json:"id"`
	ProgramID  string    `json:"program_id"`
	LearnerID  string    `json:"learner_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// The two persisted shapes. canonicalRecord ("inscriptions") is the only one
// new writes use; legacyRecord ("eleves_formations") differs only in the name
// of the learner field and must stay readable indefinitely.
type (
	canonicalRecord struct {
		ID        string    `mapstructure:"id"`
		ProgramID string    `mapstructure:"formationId"`
		LearnerID string    `mapstructure:"userId"`
		CreatedAt time.Time `mapstructure:"createdAt"`
	}

	legacyRecord struct {
		ID        string    `mapstructure:"id"`
		ProgramID string    `mapstructure:"formationId"`
		LearnerID string    `mapstructure:"eleveId"`
		CreatedAt time.Time `mapstructure:"createdAt"`
	}
)

func (e Enrollment) doc() core.Document {
	return core.Document{
		"formationId": e.ProgramID,
		"userId":      e.LearnerID,
		"createdAt":   e.EnrolledAt,
	}
}

func normalizeCanonical(doc core.Document) (Enrollment, error) {
	var rec canonicalRecord
	if err := doc.Decode(&rec); err != nil {
		return Enrollment{}, err
	}
	return Enrollment{ID: rec.ID, ProgramID: rec.ProgramID, LearnerID: rec.LearnerID, EnrolledAt: rec.CreatedAt}, nil
}

func normalizeLegacy(doc core.Document) (Enrollment, error) {
	var rec legacyRecord
	if err := doc.Decode(&rec); err != nil {
		return Enrollment{}, err
	}
	return Enrollment{ID: rec.ID, ProgramID: rec.ProgramID, LearnerID: rec.LearnerID, EnrolledAt: rec.CreatedAt}, nil
}
