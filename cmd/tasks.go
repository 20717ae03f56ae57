package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/executor"
)

// NewTasksCmd creates the `tasks` command, which lists the runnable
// gradle tasks of the project.
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the gradle tasks of the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = cwd
			}

			tasks, err := backend.GradleTasks(cmd.Context(), executor.New(), dir)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				data, err := json.MarshalIndent(tasks, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			group := ""
			for _, task := range tasks {
				if task.Group != group {
					group = task.Group
					fmt.Printf("\n%s\n", group)
				}
				if task.Description != "" {
					fmt.Printf("  %s - %s\n", task.Name, task.Description)
				} else {
					fmt.Printf("  %s\n", task.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	return cmd
}
