package attendance

import (
	"time"

	"github.com/KuramaMr/formation-platform/core"
)

// Status classifies one (learner, day) cell of the attendance grid.
type Status string

const (
	StatusSigned   Status = "signed"
	StatusAbsent   Status = "absent"
	StatusUpcoming Status = "upcoming"
)

// Signature is a timestamped proof-of-presence record. ImageRef points at the
// captured signature image held by the upload collaborator; the engine never
// touches the bytes. At most one Signature per (learner, program, day) —
// enforced by Sign at write time and recomputed by readers, never by the store.
type Signature struct {
	ID        string    `json:"id" mapstructure:"id"`
	ProgramID string    `json:"program_id" mapstructure:"formationId"`
	LearnerID string    `json:"learner_id" mapstructure:"userId"`
	ImageRef  string    `json:"image_ref" mapstructure:"imageRef"`
	SignedAt  time.Time `json:"signed_at" mapstructure:"signedAt"`
}

func (s Signature) doc() core.Document {
	return core.Document{
		"formationId": s.ProgramID,
		"userId":      s.LearnerID,
		"imageRef":    s.ImageRef,
		"signedAt":    s.SignedAt,
	}
}

// NewSignature contains information needed to record a signature.
type NewSignature struct {
	ProgramID string `json:"program_id" validate:"required"`
	ImageRef  string `json:"image_ref" validate:"required"`
}

func (ns *NewSignature) Validate() error {
	return core.TranslateError(core.Validate.Struct(ns))
}
