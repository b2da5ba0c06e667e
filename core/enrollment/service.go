package enrollment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KuramaMr/formation-platform/core"
)

var (
	// ErrAlreadyEnrolled is an advisory rejection, not a hard uniqueness
	// guarantee: the existence check and the insert are not atomic, so two
	// racing Enroll calls for the same pair may both pass the check. Reads
	// deduplicate, so the race costs a redundant record, not a broken graph.
	ErrAlreadyEnrolled = errors.New("learner is already enrolled in this program")
)

var nowFunc = time.Now // mockable

// Service reconciles the two redundant enrollment collections into one
// deduplicated fact set and owns the (canonical-shape-only) enroll write path.
type Service struct {
	store core.EntityStore
	log   core.Logger
}

func NewService(store core.EntityStore, log core.Logger) *Service {
	return &Service{store: store, log: log}
}

// readBoth queries the canonical and legacy collections with the given
// per-collection learner filter and returns normalized records from each.
func (svc *Service) readBoth(ctx context.Context, canonFilters, legacyFilters []core.Filter) ([]Enrollment, error) {
	canonDocs, err := svc.store.Query(ctx, core.ColEnrollments, canonFilters)
	if err != nil {
		return nil, err
	}
	legacyDocs, err := svc.store.Query(ctx, core.ColLegacyEnrollments, legacyFilters)
	if err != nil {
		return nil, err
	}

	recs := make([]Enrollment, 0, len(canonDocs)+len(legacyDocs))
	for _, doc := range canonDocs {
		rec, err := normalizeCanonical(doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	for _, doc := range legacyDocs {
		rec, err := normalizeLegacy(doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// dedupe collapses records to one fact per (learner, program), keeping the
// earliest EnrolledAt when the same pair appears in both collections.
func dedupe(recs []Enrollment) []Enrollment {
	type key struct{ learner, program string }
	seen := make(map[key]int, len(recs))
	out := make([]Enrollment, 0, len(recs))
	for _, rec := range recs {
		k := key{rec.LearnerID, rec.ProgramID}
		if i, ok := seen[k]; ok {
			if rec.EnrolledAt.Before(out[i].EnrolledAt) {
				out[i] = rec
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, rec)
	}
	return out
}

// ListEnrollees returns one fact per learner enrolled in the Program.
func (svc *Service) ListEnrollees(ctx context.Context, programID string) ([]Enrollment, error) {
	filters := []core.Filter{core.Eq("formationId", programID)}
	recs, err := svc.readBoth(ctx, filters, filters)
	if err != nil {
		return nil, err
	}
	recs = dedupe(recs)
	sort.Slice(recs, func(i, j int) bool { return recs[i].LearnerID < recs[j].LearnerID })
	return recs, nil
}

// ListEnrollments returns one fact per Program the learner is enrolled in.
func (svc *Service) ListEnrollments(ctx context.Context, learnerID string) ([]Enrollment, error) {
	recs, err := svc.readBoth(ctx,
		[]core.Filter{core.Eq("userId", learnerID)},
		[]core.Filter{core.Eq("eleveId", learnerID)},
	)
	if err != nil {
		return nil, err
	}
	recs = dedupe(recs)
	sort.Slice(recs, func(i, j int) bool { return recs[i].ProgramID < recs[j].ProgramID })
	return recs, nil
}

func (svc *Service) IsEnrolled(ctx context.Context, programID, learnerID string) (bool, error) {
	recs, err := svc.readBoth(ctx,
		[]core.Filter{core.Eq("formationId", programID), core.Eq("userId", learnerID)},
		[]core.Filter{core.Eq("formationId", programID), core.Eq("eleveId", learnerID)},
	)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// Enroll records the caller's enrollment in the Program. New enrollments only
// ever land in the canonical collection; the legacy one stays read-only.
// Returns ErrAlreadyEnrolled when a fact for the pair exists in either
// collection. Idempotent from the caller's point of view.
func (svc *Service) Enroll(ctx context.Context, ident core.Identity, programID string) (Enrollment, error) {
	if _, err := svc.store.Get(ctx, core.ColPrograms, programID); err != nil {
		return Enrollment{}, err // core.ErrNotFound is a hard failure here
	}
	enrolled, err := svc.IsEnrolled(ctx, programID, ident.ID)
	if err != nil {
		return Enrollment{}, err
	}
	if enrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	rec := Enrollment{
		ID:         uuid.NewString(),
		ProgramID:  programID,
		LearnerID:  ident.ID,
		EnrolledAt: nowFunc().UTC(),
	}
	if err := svc.store.Put(ctx, core.ColEnrollments, rec.ID, rec.doc()); err != nil {
		return Enrollment{}, err
	}
	return rec, nil
}
