package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/KuramaMr/formation-platform/core/attendance"
	"github.com/KuramaMr/formation-platform/core/cascade"
	"github.com/KuramaMr/formation-platform/core/enrollment"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	planner   *cascade.Planner
	enrollSvc *enrollment.Service
	attSvc    *attendance.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  delete-program -id ID -as INSTRUCTOR          - delete a program and everything under it")
	fmt.Println("  delete-unit -id ID -as INSTRUCTOR             - delete a unit, its assessments and results")
	fmt.Println("  unenroll -program ID -learner ID -as CALLER   - remove a learner's enrollment, signatures and results")
	fmt.Println("  enrollees -program ID                         - list reconciled enrollments for a program")
	fmt.Println("  attendance-report -program ID -from DATE -to DATE - print the attendance grid (DATE: 2006-01-02)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	deleteProgramCmd := flag.NewFlagSet("delete-program", flag.ExitOnError)
	deleteProgramID := deleteProgramCmd.String("id", "", "The program ID.")
	deleteProgramAs := deleteProgramCmd.String("as", "", "The acting instructor's ID.")

	deleteUnitCmd := flag.NewFlagSet("delete-unit", flag.ExitOnError)
	deleteUnitID := deleteUnitCmd.String("id", "", "The unit ID.")
	deleteUnitAs := deleteUnitCmd.String("as", "", "The acting instructor's ID.")

	unenrollCmd := flag.NewFlagSet("unenroll", flag.ExitOnError)
	unenrollProgram := unenrollCmd.String("program", "", "The program ID.")
	unenrollLearner := unenrollCmd.String("learner", "", "The learner ID.")
	unenrollAs := unenrollCmd.String("as", "", "The acting caller's ID (the learner or the owning instructor).")

	enrolleesCmd := flag.NewFlagSet("enrollees", flag.ExitOnError)
	enrolleesProgram := enrolleesCmd.String("program", "", "The program ID.")

	reportCmd := flag.NewFlagSet("attendance-report", flag.ExitOnError)
	reportProgram := reportCmd.String("program", "", "The program ID.")
	reportFrom := reportCmd.String("from", "", "Period start, 2006-01-02.")
	reportTo := reportCmd.String("to", "", "Period end, 2006-01-02.")

	switch args[1] {
	case "delete-program":
		if err := deleteProgramCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteProgramID == "" || *deleteProgramAs == "" {
			deleteProgramCmd.Usage()
			return errHelp
		}
		return cli.deleteProgram(*deleteProgramID, *deleteProgramAs)
	case "delete-unit":
		if err := deleteUnitCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteUnitID == "" || *deleteUnitAs == "" {
			deleteUnitCmd.Usage()
			return errHelp
		}
		return cli.deleteUnit(*deleteUnitID, *deleteUnitAs)
	case "unenroll":
		if err := unenrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *unenrollProgram == "" || *unenrollLearner == "" || *unenrollAs == "" {
			unenrollCmd.Usage()
			return errHelp
		}
		return cli.unenroll(*unenrollProgram, *unenrollLearner, *unenrollAs)
	case "enrollees":
		if err := enrolleesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrolleesProgram == "" {
			enrolleesCmd.Usage()
			return errHelp
		}
		return cli.enrollees(*enrolleesProgram)
	case "attendance-report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportProgram == "" || *reportFrom == "" || *reportTo == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.attendanceReport(*reportProgram, *reportFrom, *reportTo)
	default:
		cli.printUsage()
		return errHelp
	}
}
