package main

import (
	"context"
	"fmt"
	"time"

	"github.com/KuramaMr/formation-platform/core"
	"github.com/KuramaMr/formation-platform/core/attendance"
	"github.com/KuramaMr/formation-platform/core/cascade"
)

func instructor(id string) core.Identity {
	return core.Identity{ID: id, Role: core.RoleInstructor}
}

func (cli *commandLine) deleteProgram(id, as string) error {
	report, err := cli.planner.DeleteProgram(context.Background(), instructor(as), id)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func (cli *commandLine) deleteUnit(id, as string) error {
	report, err := cli.planner.DeleteUnit(context.Background(), instructor(as), id)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func (cli *commandLine) unenroll(programID, learnerID, as string) error {
	role := core.RoleInstructor
	if as == learnerID {
		role = core.RoleLearner
	}
	report, err := cli.planner.Unenroll(context.Background(), core.Identity{ID: as, Role: role}, programID, learnerID)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func (cli *commandLine) enrollees(programID string) error {
	recs, err := cli.enrollSvc.ListEnrollees(context.Background(), programID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Printf("%s\tenrolled since %s\n", rec.LearnerID, rec.EnrolledAt.Format("2006-01-02"))
	}
	fmt.Printf("%d enrollee(s)\n", len(recs))
	return nil
}

func (cli *commandLine) attendanceReport(programID, from, to string) error {
	start, err := parseDate(from)
	if err != nil {
		return err
	}
	end, err := parseDate(to)
	if err != nil {
		return err
	}

	ctx := context.Background()
	byDay, err := cli.attSvc.ByDayInPeriod(ctx, programID, start, end)
	if err != nil {
		return err
	}
	recs, err := cli.enrollSvc.ListEnrollees(ctx, programID)
	if err != nil {
		return err
	}
	roster := make([]attendance.RosterEntry, 0, len(recs))
	for _, rec := range recs {
		// display names come from the auth collaborator in the web app; the
		// ops CLI falls back to raw learner IDs
		roster = append(roster, attendance.RosterEntry{LearnerID: rec.LearnerID, DisplayName: rec.LearnerID})
	}

	matrix := cli.attSvc.BuildMatrix(roster, byDay, start, end, cli.attSvc.Today())
	printMatrix(matrix)
	return nil
}

func parseDate(s string) (attendance.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return attendance.Date{}, err
	}
	return attendance.DateOf(t, time.UTC), nil
}

func printReport(report *cascade.Report) {
	fmt.Printf(
		"%s %s: %d op(s) in %d batch(es), %d committed, %d deleted\n",
		report.EntityType, report.EntityID,
		report.PlannedOps, report.Batches, report.CommittedBatches, report.DeletedOps,
	)
}

func printMatrix(m attendance.Matrix) {
	for _, week := range m.Weeks {
		fmt.Printf("%s: %s .. %s\n", week.Label, week.Dates[0], week.Dates[len(week.Dates)-1])
	}
	for _, day := range m.Dates {
		fmt.Printf("\t%s", day)
	}
	fmt.Println()
	marks := map[attendance.Status]string{
		attendance.StatusSigned:   "X",
		attendance.StatusAbsent:   "-",
		attendance.StatusUpcoming: ".",
	}
	for _, row := range m.Rows {
		fmt.Printf("%s", row.DisplayName)
		for _, status := range row.Statuses {
			fmt.Printf("\t%s", marks[status])
		}
		fmt.Println()
	}
}
