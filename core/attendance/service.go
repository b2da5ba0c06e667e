package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/KuramaMr/formation-platform/core"
)

var (
	// errors
	ErrDuplicateSignature = errors.New("a signature already exists for this learner, program and day")
	ErrLearnerRequired    = errors.New("learner role required")
)

var nowFunc = time.Now // mockable

// Service aggregates raw signature documents into calendar-day buckets and
// owns the signature write path. Day boundaries are computed in the
// configured institution timezone for every caller; a signature at 23:30 and
// one at 00:30 belong to different days only if the institution says so.
type Service struct {
	store core.EntityStore
	log   core.Logger
	loc   *time.Location
}

func NewService(store core.EntityStore, log core.Logger) *Service {
	return &Service{store: store, log: log, loc: core.AttendanceLocation()}
}

// Location exposes the institution timezone used for day bucketing.
func (svc *Service) Location() *time.Location {
	return svc.loc
}

// Today returns the current date in the institution timezone.
func (svc *Service) Today() Date {
	return DateOf(nowFunc(), svc.loc)
}

// Sign records the caller's signature for the Program, rejecting a second
// signature for the same calendar day with ErrDuplicateSignature.
func (svc *Service) Sign(ctx context.Context, ident core.Identity, ns NewSignature) (Signature, error) {
	if !ident.IsLearner() {
		return Signature{}, ErrLearnerRequired
	}
	if err := ns.Validate(); err != nil {
		return Signature{}, err
	}
	if _, err := svc.store.Get(ctx, core.ColPrograms, ns.ProgramID); err != nil {
		return Signature{}, err
	}

	now := nowFunc()
	today := DateOf(now, svc.loc)
	existing, err := svc.querySignatures(ctx, []core.Filter{
		core.Eq("formationId", ns.ProgramID),
		core.Eq("userId", ident.ID),
	})
	if err != nil {
		return Signature{}, err
	}
	for _, sig := range existing {
		if DateOf(sig.SignedAt, svc.loc) == today {
			return Signature{}, ErrDuplicateSignature
		}
	}

	sig := Signature{
		ID:        uuid.NewString(),
		ProgramID: ns.ProgramID,
		LearnerID: ident.ID,
		ImageRef:  ns.ImageRef,
		SignedAt:  now.UTC(),
	}
	if err := svc.store.Put(ctx, core.ColSignatures, sig.ID, sig.doc()); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func (svc *Service) querySignatures(ctx context.Context, filters []core.Filter) ([]Signature, error) {
	docs, err := svc.store.Query(ctx, core.ColSignatures, filters)
	if err != nil {
		return nil, err
	}
	sigs := make([]Signature, 0, len(docs))
	for _, doc := range docs {
		var sig Signature
		if err := doc.Decode(&sig); err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// ByDay groups all of the Program's signatures by calendar day.
func (svc *Service) ByDay(ctx context.Context, programID string) (map[Date][]Signature, error) {
	sigs, err := svc.querySignatures(ctx, []core.Filter{core.Eq("formationId", programID)})
	if err != nil {
		return nil, err
	}
	byDay := make(map[Date][]Signature)
	for _, sig := range sigs {
		day := DateOf(sig.SignedAt, svc.loc)
		byDay[day] = append(byDay[day], sig)
	}
	return byDay, nil
}

// ByDayInPeriod is ByDay restricted to [start, end]. The store only supports
// equality filters, so the range is applied client-side after fetching the
// Program's signatures.
func (svc *Service) ByDayInPeriod(ctx context.Context, programID string, start, end Date) (map[Date][]Signature, error) {
	byDay, err := svc.ByDay(ctx, programID)
	if err != nil {
		return nil, err
	}
	for day := range byDay {
		if day.Before(start) || day.After(end) {
			delete(byDay, day)
		}
	}
	return byDay, nil
}

// Classify is a pure function of its inputs: Signed when the learner signed
// that day, Upcoming when the day is still ahead of today, Absent otherwise.
// "today" is an explicit parameter, never read from a clock here.
func Classify(learnerID string, date, today Date, signaturesForDay []Signature) Status {
	for _, sig := range signaturesForDay {
		if sig.LearnerID == learnerID {
			return StatusSigned
		}
	}
	if date.After(today) {
		return StatusUpcoming
	}
	return StatusAbsent
}
