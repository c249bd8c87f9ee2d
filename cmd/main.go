package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-todo-client/internal/app"
	"github.com/adanyl0v/go-todo-client/internal/models"
	"github.com/adanyl0v/go-todo-client/internal/report"
)

var Version = "dev"

const loadTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "todo",
		Short:         "Task manager client with optimistic updates",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	application := app.New()
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		application.MustReadEnv()
		application.MustInitApplicationLogger()
	}

	rootCmd.AddCommand(serveCmd(application))
	rootCmd.AddCommand(listCmd(application))
	rootCmd.AddCommand(reportCmd(application))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(application *app.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task list with live updates over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			resetCache, _ := cmd.Flags().GetBool("reset-cache")

			defer application.Shutdown()

			application.MustConnectCache()
			if resetCache {
				application.ResetCache(cmd.Context())
			}
			application.MustInitTaskService()

			ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
			defer cancel()

			// On failure the list stays empty until a mutation refetches it.
			_ = application.LoadTasks(ctx)

			application.MustListenAndServeHTTP()
			return nil
		},
	}

	cmd.Flags().Bool("reset-cache", false, "Drop the mirrored task list left by a previous run")

	return cmd
}

func listCmd(application *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := loadTasks(cmd.Context(), application)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}
}

func reportCmd(application *app.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a PDF report of all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			tasks, err := loadTasks(cmd.Context(), application)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			defer f.Close()

			err = report.Write(f, tasks, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tasks to %s\n", len(tasks), output)
			return f.Close()
		},
	}

	cmd.Flags().StringP("output", "o", report.Filename, "Report file path")

	return cmd
}

func loadTasks(ctx context.Context, application *app.Application) ([]models.Task, error) {
	defer application.Shutdown()

	application.MustConnectCache()
	application.MustInitTaskService()

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	err := application.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}
	return application.TaskStore().Tasks(), nil
}

func printTasks(w io.Writer, tasks []models.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tDESCRIPTION")
	for _, task := range tasks {
		status := "[ ]"
		if task.Completed {
			status = "[x]"
		}

		description := ""
		if task.Description != nil {
			description = models.Preview(*task.Description)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", task.ID, status, task.Title, description)
	}
	return tw.Flush()
}
