package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/log"
	"github.com/mbolis/barrio-survey/syncjob"
)

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	job, db, err := openJob(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return job.Run(cmd.Context())
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	job, db, err := openJob(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := syncjob.NewScheduler(job, cfg.Interval, log.Logger)
	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()

	cmd.Printf("%d runs, %d failed\n", sched.Runs(), sched.Failures())
	return nil
}

func runSmoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// no workbook: nothing is written
	job := syncjob.NewJob(cfg, backend.New(cfg.BaseURL, nil), nil, log.Logger)
	reports := job.Smoke(cmd.Context())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
