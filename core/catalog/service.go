package catalog

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KuramaMr/formation-platform/core"
)

var (
	// errors
	ErrProgramNotFound    = errors.New("program not found")
	ErrUnitNotFound       = errors.New("unit not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInstructorRequired = errors.New("instructor role required")
	ErrLearnerRequired    = errors.New("learner role required")

	errInvalidQuestion = errors.New("each question needs at least two options and a valid answer index")
	errAnswerCount     = errors.New("answer count does not match question count")
)

// Service owns the instructor-side catalog lifecycle (Programs, Units,
// Assessments) and the learner write path for AssessmentResults. All catalog
// mutations require the caller to own the enclosing Program. Deletions are
// not handled here; they always go through the cascade planner.
type Service struct {
	store core.EntityStore
	log   core.Logger
}

func NewService(store core.EntityStore, log core.Logger) *Service {
	return &Service{store: store, log: log}
}

func (svc *Service) CreateProgram(ctx context.Context, ident core.Identity, np NewProgram) (Program, error) {
	if !ident.IsInstructor() {
		return Program{}, ErrInstructorRequired
	}
	if err := np.Validate(); err != nil {
		return Program{}, err
	}
	now := time.Now().UTC()
	prog := Program{
		ID:          uuid.NewString(),
		Title:       np.Title,
		Description: np.Description,
		OwnerID:     ident.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.store.Put(ctx, core.ColPrograms, prog.ID, prog.doc()); err != nil {
		return Program{}, err
	}
	return prog, nil
}

func (svc *Service) GetProgram(ctx context.Context, id string) (Program, error) {
	doc, err := svc.store.Get(ctx, core.ColPrograms, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Program{}, ErrProgramNotFound
		}
		return Program{}, err
	}
	var prog Program
	if err := doc.Decode(&prog); err != nil {
		return Program{}, err
	}
	return prog, nil
}

func (svc *Service) ListProgramsByOwner(ctx context.Context, ownerID string) ([]Program, error) {
	docs, err := svc.store.Query(ctx, core.ColPrograms, []core.Filter{core.Eq("ownerId", ownerID)})
	if err != nil {
		return nil, err
	}
	progs := make([]Program, 0, len(docs))
	for _, doc := range docs {
		var prog Program
		if err := doc.Decode(&prog); err != nil {
			return nil, err
		}
		progs = append(progs, prog)
	}
	sort.Slice(progs, func(i, j int) bool { return progs[i].Title < progs[j].Title })
	return progs, nil
}

func (svc *Service) UpdateProgram(ctx context.Context, ident core.Identity, id string, up UpdateProgram) (Program, error) {
	prog, err := svc.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	if prog.OwnerID != ident.ID {
		return Program{}, core.ErrNotOwner
	}
	if err := up.Validate(prog); err != nil {
		return Program{}, err
	}
	prog.Title = up.Title
	prog.Description = up.Description
	prog.UpdatedAt = time.Now().UTC()
	if err := svc.store.Put(ctx, core.ColPrograms, prog.ID, prog.doc()); err != nil {
		return Program{}, err
	}
	return prog, nil
}

// OwnsProgram reports whether ident owns the Program; ErrProgramNotFound when
// it does not exist.
func (svc *Service) OwnsProgram(ctx context.Context, ident core.Identity, programID string) error {
	prog, err := svc.GetProgram(ctx, programID)
	if err != nil {
		return err
	}
	if prog.OwnerID != ident.ID {
		return core.ErrNotOwner
	}
	return nil
}

func (svc *Service) CreateUnit(ctx context.Context, ident core.Identity, nu NewUnit) (Unit, error) {
	if err := nu.Validate(); err != nil {
		return Unit{}, err
	}
	if err := svc.OwnsProgram(ctx, ident, nu.ProgramID); err != nil {
		return Unit{}, err
	}
	unit := Unit{
		ID:           uuid.NewString(),
		ProgramID:    nu.ProgramID,
		Title:        nu.Title,
		Order:        nu.Order,
		Content:      nu.Content,
		AttachmentID: nu.AttachmentID,
	}
	if err := svc.store.Put(ctx, core.ColUnits, unit.ID, unit.doc()); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

func (svc *Service) GetUnit(ctx context.Context, id string) (Unit, error) {
	doc, err := svc.store.Get(ctx, core.ColUnits, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Unit{}, ErrUnitNotFound
		}
		return Unit{}, err
	}
	var unit Unit
	if err := doc.Decode(&unit); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

// ListUnits returns the Program's Units in display order. Order indexes are
// not unique, so ties fall back to title for a stable listing.
func (svc *Service) ListUnits(ctx context.Context, programID string) ([]Unit, error) {
	docs, err := svc.store.Query(ctx, core.ColUnits, []core.Filter{core.Eq("formationId", programID)})
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(docs))
	for _, doc := range docs {
		var unit Unit
		if err := doc.Decode(&unit); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Order != units[j].Order {
			return units[i].Order < units[j].Order
		}
		return units[i].Title < units[j].Title
	})
	return units, nil
}

func (svc *Service) CreateAssessment(ctx context.Context, ident core.Identity, na NewAssessment) (Assessment, error) {
	if err := na.Validate(); err != nil {
		return Assessment{}, err
	}
	unit, err := svc.GetUnit(ctx, na.UnitID)
	if err != nil {
		return Assessment{}, err
	}
	if err := svc.OwnsProgram(ctx, ident, unit.ProgramID); err != nil {
		return Assessment{}, err
	}
	assessment := Assessment{
		ID:        uuid.NewString(),
		UnitID:    na.UnitID,
		Title:     na.Title,
		Questions: na.Questions,
	}
	if err := svc.store.Put(ctx, core.ColAssessments, assessment.ID, assessment.doc()); err != nil {
		return Assessment{}, err
	}
	return assessment, nil
}

func (svc *Service) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	doc, err := svc.store.Get(ctx, core.ColAssessments, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Assessment{}, ErrAssessmentNotFound
		}
		return Assessment{}, err
	}
	var assessment Assessment
	if err := doc.Decode(&assessment); err != nil {
		return Assessment{}, err
	}
	return assessment, nil
}

func (svc *Service) ListAssessments(ctx context.Context, unitID string) ([]Assessment, error) {
	docs, err := svc.store.Query(ctx, core.ColAssessments, []core.Filter{core.Eq("coursId", unitID)})
	if err != nil {
		return nil, err
	}
	assessments := make([]Assessment, 0, len(docs))
	for _, doc := range docs {
		var assessment Assessment
		if err := doc.Decode(&assessment); err != nil {
			return nil, err
		}
		assessments = append(assessments, assessment)
	}
	return assessments, nil
}

// SubmitResult records a learner's attempt. The percentage score is computed
// here from the Assessment's answer key; results are immutable once written.
func (svc *Service) SubmitResult(ctx context.Context, ident core.Identity, nr NewResult) (AssessmentResult, error) {
	if !ident.IsLearner() {
		return AssessmentResult{}, ErrLearnerRequired
	}
	if err := nr.Validate(); err != nil {
		return AssessmentResult{}, err
	}
	assessment, err := svc.GetAssessment(ctx, nr.AssessmentID)
	if err != nil {
		return AssessmentResult{}, err
	}
	if len(nr.Answers) != len(assessment.Questions) {
		return AssessmentResult{}, core.NewValidationError(
			errAnswerCount,
			core.FieldError{Field: "answers", Error: errAnswerCount.Error()},
		)
	}
	var correct int
	for i, q := range assessment.Questions {
		if nr.Answers[i] == q.Answer {
			correct++
		}
	}
	res := AssessmentResult{
		ID:           uuid.NewString(),
		AssessmentID: assessment.ID,
		LearnerID:    ident.ID,
		Answers:      nr.Answers,
		Score:        math.Round(float64(correct) / float64(len(assessment.Questions)) * 100),
		CreatedAt:    time.Now().UTC(),
	}
	if err := svc.store.Put(ctx, core.ColResults, res.ID, res.doc()); err != nil {
		return AssessmentResult{}, err
	}
	return res, nil
}

// ListResults returns all results for an Assessment (instructor review path).
func (svc *Service) ListResults(ctx context.Context, assessmentID string) ([]AssessmentResult, error) {
	docs, err := svc.store.Query(ctx, core.ColResults, []core.Filter{core.Eq("quizId", assessmentID)})
	if err != nil {
		return nil, err
	}
	results := make([]AssessmentResult, 0, len(docs))
	for _, doc := range docs {
		var res AssessmentResult
		if err := doc.Decode(&res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
