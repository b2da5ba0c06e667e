package cascade

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/KuramaMr/formation-platform/core"
)

// Entity types the planner can delete.
const (
	TypeProgram    = "program"
	TypeUnit       = "unit"
	TypeAssessment = "assessment"
	TypeEnrollment = "enrollment"
)

// childRule is one edge of the dependency graph: documents in `collection`
// whose `refField` equals the parent ID must go when the parent goes.
// entityType is set when those children carry cascades of their own.
type childRule struct {
	collection string
	refField   string
	entityType string
}

// The graph is data, not code: a new dependent collection is a new edge here,
// not a new recursive function.
var (
	typeCollections = map[string]string{
		TypeProgram:    core.ColPrograms,
		TypeUnit:       core.ColUnits,
		TypeAssessment: core.ColAssessments,
	}

	dependencyGraph = map[string][]childRule{
		TypeProgram: {
			{collection: core.ColUnits, refField: "formationId", entityType: TypeUnit},
			{collection: core.ColEnrollments, refField: "formationId"},
			{collection: core.ColLegacyEnrollments, refField: "formationId"},
			{collection: core.ColSignatures, refField: "formationId"},
		},
		TypeUnit: {
			{collection: core.ColAssessments, refField: "coursId", entityType: TypeAssessment},
		},
		TypeAssessment: {
			{collection: core.ColResults, refField: "quizId"},
		},
	}
)

// Report describes a completed (or partially completed) cascade. A cascade
// larger than the store's batch bound runs as sequential atomic sub-batches;
// CommittedBatches is the resume token: a retry re-plans and re-executes, and
// deleting already-absent documents is a no-op, so retrying never over-deletes.
type Report struct {
	EntityType       string `json:"entity_type"`
	EntityID         string `json:"entity_id"`
	PlannedOps       int    `json:"planned_ops"`
	Batches          int    `json:"batches"`
	CommittedBatches int    `json:"committed_batches"`
	DeletedOps       int    `json:"deleted_ops"`
}

// PartialFailureError reports a cascade that committed some sub-batches and
// then failed. The graph is in a well-defined intermediate state: descendants
// first, ancestors last, so no ancestor is ever gone while descendants remain.
// The caller must retry the same deletion, not restart anything else.
type PartialFailureError struct {
	Report Report
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf(
		"cascade on %s %s failed after %d/%d batches: %v",
		e.Report.EntityType, e.Report.EntityID, e.Report.CommittedBatches, e.Report.Batches, e.Err,
	)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
func (e *PartialFailureError) Cause() error  { return e.Err }

// Planner computes the transitive closure of dependents for a deletion and
// executes it as a sequence of atomic batches, descendants before ancestors.
// All entity destruction goes through here; nothing else issues deletes.
type Planner struct {
	store core.EntityStore
	log   core.Logger
}

func NewPlanner(store core.EntityStore, log core.Logger) *Planner {
	return &Planner{store: store, log: log}
}

// DeleteProgram removes the Program and everything under it: Units, their
// Assessments and AssessmentResults, enrollment facts in both collections and
// all AttendanceSignatures. Only the owning instructor may call it.
func (p *Planner) DeleteProgram(ctx context.Context, ident core.Identity, programID string) (*Report, error) {
	doc, err := p.store.Get(ctx, core.ColPrograms, programID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			// already deleted; a no-op success, not an error
			return &Report{EntityType: TypeProgram, EntityID: programID}, nil
		}
		return nil, err
	}
	if owner, _ := doc["ownerId"].(string); owner != ident.ID {
		return nil, core.ErrNotOwner
	}
	return p.PlanAndExecute(ctx, TypeProgram, programID)
}

// DeleteUnit removes the Unit, its Assessments and their results.
func (p *Planner) DeleteUnit(ctx context.Context, ident core.Identity, unitID string) (*Report, error) {
	doc, err := p.store.Get(ctx, core.ColUnits, unitID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return &Report{EntityType: TypeUnit, EntityID: unitID}, nil
		}
		return nil, err
	}
	programID, _ := doc["formationId"].(string)
	if err := p.checkProgramOwner(ctx, ident, programID); err != nil {
		return nil, err
	}
	return p.PlanAndExecute(ctx, TypeUnit, unitID)
}

// DeleteAssessment removes the Assessment and its results.
func (p *Planner) DeleteAssessment(ctx context.Context, ident core.Identity, assessmentID string) (*Report, error) {
	doc, err := p.store.Get(ctx, core.ColAssessments, assessmentID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return &Report{EntityType: TypeAssessment, EntityID: assessmentID}, nil
		}
		return nil, err
	}
	unitID, _ := doc["coursId"].(string)
	unitDoc, err := p.store.Get(ctx, core.ColUnits, unitID)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return nil, err
	}
	if err == nil {
		programID, _ := unitDoc["formationId"].(string)
		if err := p.checkProgramOwner(ctx, ident, programID); err != nil {
			return nil, err
		}
	}
	return p.PlanAndExecute(ctx, TypeAssessment, assessmentID)
}

// checkProgramOwner allows the mutation when the Program is owned by ident.
// A dangling Program reference is an orphan being cleaned up; it passes.
func (p *Planner) checkProgramOwner(ctx context.Context, ident core.Identity, programID string) error {
	doc, err := p.store.Get(ctx, core.ColPrograms, programID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return nil
		}
		return err
	}
	if owner, _ := doc["ownerId"].(string); owner != ident.ID {
		return core.ErrNotOwner
	}
	return nil
}

// PlanAndExecute computes the full deletion closure for the entity and runs
// it. Callers that need authorization use the typed Delete* entry points;
// this one trusts its caller.
func (p *Planner) PlanAndExecute(ctx context.Context, entityType, entityID string) (*Report, error) {
	col, ok := typeCollections[entityType]
	if !ok {
		return nil, errors.Errorf("cascade: unknown entity type %q", entityType)
	}
	report := &Report{EntityType: entityType, EntityID: entityID}

	if _, err := p.store.Get(ctx, col, entityID); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return report, nil
		}
		return nil, err
	}

	ops, err := p.planEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return report, p.execute(ctx, report, ops)
}

// Unenroll removes learner L from Program P: the enrollment fact(s) in both
// collections, all of L's signatures for P, and L's AssessmentResults under
// any Assessment of any Unit of P. Other learners' records are untouched.
// Learners may unenroll themselves; the owning instructor may unenroll anyone.
func (p *Planner) Unenroll(ctx context.Context, ident core.Identity, programID, learnerID string) (*Report, error) {
	report := &Report{EntityType: TypeEnrollment, EntityID: learnerID + "/" + programID}

	if ident.ID != learnerID {
		doc, err := p.store.Get(ctx, core.ColPrograms, programID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return report, nil
			}
			return nil, err
		}
		if owner, _ := doc["ownerId"].(string); owner != ident.ID {
			return nil, core.ErrNotOwner
		}
	}

	var ops []core.WriteOp
	appendMatches := func(collection string, filters ...core.Filter) error {
		docs, err := p.store.Query(ctx, collection, filters)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			id, _ := doc["id"].(string)
			ops = append(ops, core.DeleteOp(collection, id))
		}
		return nil
	}

	if err := appendMatches(core.ColEnrollments, core.Eq("formationId", programID), core.Eq("userId", learnerID)); err != nil {
		return nil, err
	}
	if err := appendMatches(core.ColLegacyEnrollments, core.Eq("formationId", programID), core.Eq("eleveId", learnerID)); err != nil {
		return nil, err
	}
	if err := appendMatches(core.ColSignatures, core.Eq("formationId", programID), core.Eq("userId", learnerID)); err != nil {
		return nil, err
	}

	// the learner's results under every Assessment transitively below P
	units, err := p.store.Query(ctx, core.ColUnits, []core.Filter{core.Eq("formationId", programID)})
	if err != nil {
		return nil, err
	}
	for _, unit := range units {
		unitID, _ := unit["id"].(string)
		assessments, err := p.store.Query(ctx, core.ColAssessments, []core.Filter{core.Eq("coursId", unitID)})
		if err != nil {
			return nil, err
		}
		for _, assessment := range assessments {
			assessmentID, _ := assessment["id"].(string)
			if err := appendMatches(core.ColResults, core.Eq("quizId", assessmentID), core.Eq("userId", learnerID)); err != nil {
				return nil, err
			}
		}
	}

	return report, p.execute(ctx, report, ops)
}

// planEntity emits delete ops for the entity's whole subtree, descendants
// first and the entity itself last.
func (p *Planner) planEntity(ctx context.Context, entityType, entityID string) ([]core.WriteOp, error) {
	var ops []core.WriteOp
	for _, rule := range dependencyGraph[entityType] {
		docs, err := p.store.Query(ctx, rule.collection, []core.Filter{core.Eq(rule.refField, entityID)})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			id, _ := doc["id"].(string)
			if rule.entityType != "" {
				childOps, err := p.planEntity(ctx, rule.entityType, id)
				if err != nil {
					return nil, err
				}
				ops = append(ops, childOps...)
				continue
			}
			ops = append(ops, core.DeleteOp(rule.collection, id))
		}
	}
	ops = append(ops, core.DeleteOp(typeCollections[entityType], entityID))
	return ops, nil
}

// execute runs the plan as sequential atomic sub-batches. Op order is already
// descendants-before-ancestors, so a crash between batches can only leave a
// subtree whose ancestor is intact.
func (p *Planner) execute(ctx context.Context, report *Report, ops []core.WriteOp) error {
	report.PlannedOps = len(ops)
	limit := p.store.MaxBatchSize()
	report.Batches = (len(ops) + limit - 1) / limit

	var batch int
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		if err := p.store.BatchWrite(ctx, ops[start:end]); err != nil {
			p.log.Error("cascade: batch failed",
				err, map[string]interface{}{"entity": report.EntityID, "batch": batch})
			return &PartialFailureError{Report: *report, Err: errors.Wrap(err, "cascade.execute")}
		}
		batch++
		report.CommittedBatches++
		report.DeletedOps += end - start
	}
	p.log.Info("cascade: completed",
		map[string]interface{}{"entity": report.EntityID, "deleted": report.DeletedOps})
	return nil
}
