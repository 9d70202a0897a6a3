package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ignatij/memoflow/internal/log"
	internal_storage "github.com/ignatij/memoflow/internal/storage"
	"github.com/ignatij/memoflow/internal/service"
	"github.com/ignatij/memoflow/pkg/models"
	"github.com/spf13/cobra"
)

func SetupCLI(rootCmd *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list [task=NAME]",
		Short: "List recorded runs, most recent first (CLI)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			log.GetLogger().Debugf("Running list with db: %s", dbConnStr)
			taskName := ""
			if len(args) == 1 {
				taskName = keyValue(args[0], "task")
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewHistoryService(store)
			listRuns(svc, taskName)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show id=N",
		Short: "Show a recorded run (CLI)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			id, err := strconv.Atoi(keyValue(args[0], "id"))
			if err != nil {
				log.GetLogger().Errorf("Error parsing id as number: %v", err)
				fmt.Printf("Error parsing id as number: %v", err)
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewHistoryService(store)
			showRun(svc, int64(id))
		},
	}

	rootCmd.AddCommand(listCmd, showCmd)
}

func listRuns(svc *service.HistoryService, taskName string) {
	runs, err := svc.ListRuns(taskName)
	if err != nil {
		log.GetLogger().Errorf("Failed to list runs: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Fprintf(os.Stdout, "No runs found.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Runs:\n")
	for _, run := range runs {
		fmt.Fprintf(os.Stdout, "- ID: %d, Task: %s, Identity: %s, Status: %s, Created: %s\n",
			run.ID, run.TaskName, run.Identity, run.Status, run.CreatedAt.Format(time.RFC3339))
	}
}

func showRun(svc *service.HistoryService, id int64) {
	run, err := svc.GetRun(id)
	if err != nil {
		log.GetLogger().Errorf("Failed to get run: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to get run: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "ID: %d\nTask: %s\nIdentity: %s\nStatus: %s\n",
		run.ID, run.TaskName, run.Identity, run.Status)
	if run.ErrorMsg != "" {
		fmt.Fprintf(os.Stdout, "Error: %s\n", run.ErrorMsg)
	}
	if run.StartedAt != nil {
		fmt.Fprintf(os.Stdout, "Started: %s\n", run.StartedAt.Format(time.RFC3339))
	}
	if run.FinishedAt != nil {
		fmt.Fprintf(os.Stdout, "Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	if run.Status == models.CompletedRunStatus || run.Status == models.FailedRunStatus {
		fmt.Fprintf(os.Stdout, "Elapsed: %dms\n", run.ElapsedMS)
	}
}

// keyValue extracts the value of a "key=value" positional argument.
func keyValue(arg, key string) string {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 || parts[0] != key {
		fmt.Fprintf(os.Stderr, "Error: expected %s=VALUE, got %q\n", key, arg)
		os.Exit(1)
	}
	return parts[1]
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
