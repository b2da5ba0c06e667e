package main

import (
	"context"
	"log"
	"os"

	"github.com/KuramaMr/formation-platform/core"
	"github.com/KuramaMr/formation-platform/core/attendance"
	"github.com/KuramaMr/formation-platform/core/cascade"
	"github.com/KuramaMr/formation-platform/core/enrollment"
	logsvc "github.com/KuramaMr/formation-platform/services/logger"
	mongostore "github.com/KuramaMr/formation-platform/storage/entitystore/mongodb"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var appLog core.Logger
	if core.Conf.GetString("rollbarToken") != "" {
		appLog = logsvc.NewRollbarLogger(logger)
	} else {
		appLog = logsvc.NewStdLogger(logger)
	}

	// set up the store
	ctx := context.Background()
	store, err := mongostore.Open(ctx)
	errAndDie(err)
	defer store.Close(ctx)

	// start CLI
	cli := commandLine{
		planner:   cascade.NewPlanner(store, appLog),
		enrollSvc: enrollment.NewService(store, appLog),
		attSvc:    attendance.NewService(store, appLog),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
