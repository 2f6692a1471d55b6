package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"taskmanager/internal/core/model/request"
	"taskmanager/pkg/client"
)

var serverURL string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks on a running server",
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDue(raw string) (*request.DueDate, error) {
	if raw == "" {
		return nil, nil
	}
	var d request.DueDate
	if err := d.UnmarshalJSON([]byte(strconv.Quote(raw))); err != nil {
		return nil, err
	}
	return &d, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")

		var completed *bool
		if cmd.Flags().Changed("completed") {
			v, _ := cmd.Flags().GetBool("completed")
			completed = &v
		}

		tasks, err := newClient().ListTasks(cmd.Context(), query, completed)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), tasks)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := newClient().GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), task)
	},
}

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		dueRaw, _ := cmd.Flags().GetString("due")
		done, _ := cmd.Flags().GetBool("completed")

		due, err := parseDue(dueRaw)
		if err != nil {
			return err
		}

		req := request.CreateTaskRequest{Title: args[0], IsCompleted: done, DueDate: due}
		if description != "" {
			req.Description = &description
		}

		task, err := newClient().CreateTask(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), task)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req request.UpdateTaskRequest
		flags := cmd.Flags()

		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			req.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			req.Description = &v
		}
		if flags.Changed("completed") {
			v, _ := flags.GetBool("completed")
			req.IsCompleted = &v
		}
		if flags.Changed("due") {
			v, _ := flags.GetString("due")
			due, err := parseDue(v)
			if err != nil {
				return err
			}
			req.DueDate = due
		}

		task, err := newClient().UpdateTask(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), task)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteTask(cmd.Context(), args[0]); err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("task %s not found", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	tasksCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the task API")

	listCmd.Flags().String("query", "", "case-insensitive text filter on title and description")
	listCmd.Flags().Bool("completed", false, "only completed (true) or pending (false) tasks")

	createCmd.Flags().String("description", "", "task description")
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD or RFC3339)")
	createCmd.Flags().Bool("completed", false, "mark as completed")

	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("description", "", "new description")
	updateCmd.Flags().String("due", "", "new due date (YYYY-MM-DD or RFC3339)")
	updateCmd.Flags().Bool("completed", false, "completion state")

	tasksCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	rootCmd.AddCommand(tasksCmd)
}
