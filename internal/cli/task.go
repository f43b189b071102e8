package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
)

func newTaskCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show a remote task by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := r.app.Tasks.GetTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get task: %w", err)
			}
			return render(cmd.OutOrStdout(), r.output, task, func(w io.Writer) error {
				return printTask(w, task)
			})
		},
	}
}

func printTask(w io.Writer, task *cloudconvert.Task) error {
	fmt.Fprintf(w, "Id: %s\n", task.ID)
	if task.Operation != "" {
		fmt.Fprintf(w, "Operation: %s\n", task.Operation)
	}
	fmt.Fprintf(w, "Status: %s\n", task.Status)
	if task.Code != "" || task.Message != "" {
		fmt.Fprintf(w, "Error: %s %s\n", task.Code, task.Message)
	}
	if task.Result != nil {
		for _, file := range task.Result.Files {
			fmt.Fprintf(w, "File: %s %s\n", file.Filename, file.URL)
		}
	}
	return nil
}
