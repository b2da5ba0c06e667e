package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/KuramaMr/formation-platform/core"
	testutil "github.com/KuramaMr/formation-platform/tests"
)

var owner = core.Identity{ID: "teach1", Role: core.RoleInstructor}

func TestPlanner_DeleteProgram(t *testing.T) {
	store := testutil.OpenStore(t)
	planner := NewPlanner(store, testutil.Logger())
	ctx := context.Background()

	// P has U1 (order 1) and U2 (order 2); U1 has A1 with one result from l1
	prog := testutil.CreateProgram(t, store, owner.ID, "Go 101")
	u1 := testutil.CreateUnit(t, store, prog, "Basics", 1)
	testutil.CreateUnit(t, store, prog, "Slices", 2)
	a1 := testutil.CreateAssessment(t, store, u1, "Quiz 1")
	testutil.CreateResult(t, store, a1, "l1")

	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	testutil.CreateEnrollment(t, store, prog, "l1", at)
	testutil.CreateLegacyEnrollment(t, store, prog, "l2", at)
	testutil.CreateSignature(t, store, prog, "l1", at)

	// an unrelated program must survive
	other := testutil.CreateProgram(t, store, owner.ID, "Go 102")
	otherUnit := testutil.CreateUnit(t, store, other, "Intro", 1)

	t.Run("not the owner", func(t *testing.T) {
		_, err := planner.DeleteProgram(ctx, core.Identity{ID: "teach2", Role: core.RoleInstructor}, prog)
		if err != core.ErrNotOwner {
			t.Fatalf("DeleteProgram() error = %v, want %v", err, core.ErrNotOwner)
		}
	})

	report, err := planner.DeleteProgram(ctx, owner, prog)
	if err != nil {
		t.Fatalf("DeleteProgram() failed: %v", err)
	}
	// 2 units + 1 assessment + 1 result + 2 enrollment facts + 1 signature + program
	if report.PlannedOps != 8 || report.DeletedOps != 8 {
		t.Errorf("report = %+v, want 8 planned and deleted ops", report)
	}
	if report.CommittedBatches != report.Batches {
		t.Errorf("report = %+v, want all batches committed", report)
	}

	// nothing referencing the subtree remains queryable
	counts := map[string]int{
		core.ColPrograms:          1, // the unrelated program
		core.ColUnits:             1, // its unit
		core.ColAssessments:       0,
		core.ColResults:           0,
		core.ColEnrollments:       0,
		core.ColLegacyEnrollments: 0,
		core.ColSignatures:        0,
	}
	for collection, want := range counts {
		if got := store.Count(collection); got != want {
			t.Errorf("Count(%s) = %d, want %d", collection, got, want)
		}
	}
	if _, err := store.Get(ctx, core.ColUnits, otherUnit); err != nil {
		t.Errorf("unrelated unit was deleted: %v", err)
	}

	t.Run("idempotent on an already-deleted entity", func(t *testing.T) {
		report, err := planner.DeleteProgram(ctx, owner, prog)
		if err != nil {
			t.Fatalf("DeleteProgram() retry failed: %v", err)
		}
		if report.PlannedOps != 0 || report.DeletedOps != 0 {
			t.Errorf("retry report = %+v, want zero additional deletions", report)
		}
	})
}

func TestPlanner_DeleteUnit(t *testing.T) {
	store := testutil.OpenStore(t)
	planner := NewPlanner(store, testutil.Logger())
	ctx := context.Background()

	prog := testutil.CreateProgram(t, store, owner.ID, "Go 101")
	u1 := testutil.CreateUnit(t, store, prog, "Basics", 1)
	a1 := testutil.CreateAssessment(t, store, u1, "Quiz 1")
	testutil.CreateResult(t, store, a1, "l1")
	u2 := testutil.CreateUnit(t, store, prog, "Slices", 2)

	report, err := planner.DeleteUnit(ctx, owner, u1)
	if err != nil {
		t.Fatalf("DeleteUnit() failed: %v", err)
	}
	if report.DeletedOps != 3 { // assessment + result + unit
		t.Errorf("report.DeletedOps = %d, want 3", report.DeletedOps)
	}
	if _, err := store.Get(ctx, core.ColPrograms, prog); err != nil {
		t.Errorf("program was deleted: %v", err)
	}
	if _, err := store.Get(ctx, core.ColUnits, u2); err != nil {
		t.Errorf("sibling unit was deleted: %v", err)
	}
}

func TestPlanner_partialFailureAndResume(t *testing.T) {
	store := testutil.OpenStore(t)
	planner := NewPlanner(store, testutil.Logger())
	ctx := context.Background()

	prog := testutil.CreateProgram(t, store, owner.ID, "Go 101")
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for _, learner := range []string{"l1", "l2", "l3", "l4", "l5"} {
		testutil.CreateEnrollment(t, store, prog, learner, at)
	}

	// 6 ops against a batch limit of 2 = 3 batches; fail from the 2nd
	store.SetBatchLimit(2)
	store.FailBatchesFrom(1)

	_, err := planner.DeleteProgram(ctx, owner, prog)
	pErr, ok := err.(*PartialFailureError)
	if !ok {
		t.Fatalf("DeleteProgram() error = %v, want *PartialFailureError", err)
	}
	if pErr.Report.Batches != 3 || pErr.Report.CommittedBatches != 1 || pErr.Report.DeletedOps != 2 {
		t.Errorf("partial report = %+v, want 1/3 batches committed", pErr.Report)
	}
	// ancestors are deleted last: the program must still exist after a
	// mid-cascade failure, only some descendants may be gone
	if _, err := store.Get(ctx, core.ColPrograms, prog); err != nil {
		t.Fatalf("program deleted before its descendants: %v", err)
	}

	// retry resumes: already-deleted records are no-ops
	store.FailBatchesFrom(-1)
	report, err := planner.DeleteProgram(ctx, owner, prog)
	if err != nil {
		t.Fatalf("DeleteProgram() retry failed: %v", err)
	}
	if report.CommittedBatches != report.Batches {
		t.Errorf("retry report = %+v, want full commit", report)
	}
	if got := store.Count(core.ColEnrollments); got != 0 {
		t.Errorf("Count(enrollments) = %d, want 0", got)
	}
	if got := store.Count(core.ColPrograms); got != 0 {
		t.Errorf("Count(programs) = %d, want 0", got)
	}
}

func TestPlanner_Unenroll(t *testing.T) {
	store := testutil.OpenStore(t)
	planner := NewPlanner(store, testutil.Logger())
	ctx := context.Background()

	prog := testutil.CreateProgram(t, store, owner.ID, "Go 101")
	unit := testutil.CreateUnit(t, store, prog, "Basics", 1)
	assessment := testutil.CreateAssessment(t, store, unit, "Quiz 1")

	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	testutil.CreateEnrollment(t, store, prog, "l1", at)
	testutil.CreateLegacyEnrollment(t, store, prog, "l1", at) // duplicated fact
	testutil.CreateSignature(t, store, prog, "l1", at)
	l1Result := testutil.CreateResult(t, store, assessment, "l1")

	// l2's records must be untouched
	testutil.CreateEnrollment(t, store, prog, "l2", at)
	testutil.CreateSignature(t, store, prog, "l2", at)
	l2Result := testutil.CreateResult(t, store, assessment, "l2")

	t.Run("stranger cannot unenroll someone else", func(t *testing.T) {
		_, err := planner.Unenroll(ctx, core.Identity{ID: "teach2", Role: core.RoleInstructor}, prog, "l1")
		if err != core.ErrNotOwner {
			t.Fatalf("Unenroll() error = %v, want %v", err, core.ErrNotOwner)
		}
	})

	report, err := planner.Unenroll(ctx, core.Identity{ID: "l1", Role: core.RoleLearner}, prog, "l1")
	if err != nil {
		t.Fatalf("Unenroll() failed: %v", err)
	}
	if report.DeletedOps != 4 { // 2 enrollment facts + signature + result
		t.Errorf("report.DeletedOps = %d, want 4", report.DeletedOps)
	}

	if _, err := store.Get(ctx, core.ColResults, l1Result); err != core.ErrNotFound {
		t.Errorf("l1's result survived unenrollment")
	}
	if _, err := store.Get(ctx, core.ColResults, l2Result); err != nil {
		t.Errorf("l2's result was deleted: %v", err)
	}
	if got := store.Count(core.ColSignatures); got != 1 {
		t.Errorf("Count(signatures) = %d, want 1 (l2's)", got)
	}
	if got := store.Count(core.ColEnrollments); got != 1 {
		t.Errorf("Count(enrollments) = %d, want 1 (l2's)", got)
	}
	if got := store.Count(core.ColLegacyEnrollments); got != 0 {
		t.Errorf("Count(legacy enrollments) = %d, want 0", got)
	}
	// catalog untouched
	if _, err := store.Get(ctx, core.ColAssessments, assessment); err != nil {
		t.Errorf("assessment was deleted: %v", err)
	}

	t.Run("owner can unenroll any learner", func(t *testing.T) {
		report, err := planner.Unenroll(ctx, owner, prog, "l2")
		if err != nil {
			t.Fatalf("Unenroll() failed: %v", err)
		}
		if report.DeletedOps != 3 {
			t.Errorf("report.DeletedOps = %d, want 3", report.DeletedOps)
		}
	})
}
