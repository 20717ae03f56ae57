package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/pkg/daemon"
)

// NewProjectCmd creates the `project` command, which reports the
// detected backend and manifest summary of a project directory.
func NewProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project [dir]",
		Short: "Inspect a project and report its detected backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = cwd
			}

			client := daemon.New()
			defer client.Close()

			info, err := client.InspectProject(cmd.Context(), dir)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Name:    %s\n", info.Name)
			fmt.Printf("Path:    %s\n", info.Path)
			fmt.Printf("Backend: %s\n", info.Type)
			if len(info.Dependencies) > 0 {
				fmt.Printf("Dependencies: %s\n", strings.Join(info.Dependencies, ", "))
			}
			if len(info.Features) > 0 {
				fmt.Printf("Features: %s\n", strings.Join(info.Features, ", "))
			}
			return nil
		},
	}
	return cmd
}
