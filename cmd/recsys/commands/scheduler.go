package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamnt/fashionstore/internal/scheduler"
	"github.com/lamnt/fashionstore/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  mining_pipeline - 3 AM daily (full mining pipeline run)

Subcommands:
  start - start the scheduler daemon
  list  - list registered jobs
  run   - run a job immediately

Example:
  go run ./cmd/recsys scheduler start
  go run ./cmd/recsys scheduler run mining_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func buildScheduler() (*scheduler.Scheduler, *services, error) {
	svcs, err := buildServices()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(svcs.log)
	if err := sched.AddJob(jobs.NewMiningJob(svcs.orchestrator, svcs.log)); err != nil {
		svcs.Close()
		return nil, nil, err
	}

	return sched, svcs, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, svcs, err := buildScheduler()
	if err != nil {
		return err
	}
	defer svcs.Close()

	sched.Start()
	fmt.Println("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, svcs, err := buildScheduler()
	if err != nil {
		return err
	}
	defer svcs.Close()

	fmt.Println("Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  %s\n", name)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	sched, svcs, err := buildScheduler()
	if err != nil {
		return err
	}
	defer svcs.Close()

	jobName := args[0]
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	fmt.Printf("Job %s started\n", jobName)

	// The job runs in the background; wait for the history entry.
	for {
		time.Sleep(time.Second)

		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		if len(history.Results) > 0 {
			last := history.Results[len(history.Results)-1]
			if last.Success {
				fmt.Printf("Job %s completed in %s\n", jobName, last.Duration)
			} else {
				fmt.Printf("Job %s failed: %s\n", jobName, last.Error)
			}
			return nil
		}
	}
}
