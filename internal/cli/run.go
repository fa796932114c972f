package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/routing"
)

var (
	taskID          string
	taskTitle       string
	taskDescription string
	taskType        string
	taskPriority    string
	taskFiles       []string
	runMode         string
	runMaxRetries   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a task through the provider chain",
	Run:   runTask,
}

func init() {
	runCmd.Flags().StringVar(&taskID, "id", "", "task id")
	runCmd.Flags().StringVar(&taskTitle, "title", "", "task title")
	runCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	runCmd.Flags().StringVar(&taskType, "type", "", "task type (feature, bugfix, refactor, ...)")
	runCmd.Flags().StringVar(&taskPriority, "priority", "", "task priority")
	runCmd.Flags().StringSliceVar(&taskFiles, "file", nil, "file relevant to the task (repeatable)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "execution mode: fallback, circuit, best, advised")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "retries forwarded to each provider")
	_ = runCmd.MarkFlagRequired("id")
	_ = runCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cfg := loadApp(ctx)
	defer app.Close()

	modeName := cfg.Execution.Mode
	if runMode != "" {
		modeName = runMode
	}
	mode, err := routing.ParseMode(modeName)
	if err != nil {
		slog.Error("Invalid mode", "error", err)
		os.Exit(1)
	}
	if runMaxRetries >= 0 {
		cfg.Execution.MaxRetries = runMaxRetries
	}

	task := domain.Task{
		ID:          taskID,
		Title:       taskTitle,
		Description: taskDescription,
		Type:        taskType,
		Priority:    taskPriority,
		Files:       taskFiles,
	}

	report, runErr := app.RunTask(ctx, task, mode)
	printRunReport(os.Stdout, report)

	// Stats are saved even when the run was interrupted.
	if err := app.SaveStats(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Failed to save provider stats", "error", err)
	}

	if runErr != nil {
		slog.Error("Task failed", "task", task.ID, "error", runErr)
		app.Close()
		os.Exit(1)
	}
}
