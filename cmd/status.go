package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/pkg/daemon"
)

// NewStatusCmd creates the `status` command, which reports the
// installed toolchains and environment health.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report toolchain versions and environment health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			toolchains, health, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				data, err := json.MarshalIndent(map[string]interface{}{
					"toolchains": toolchains,
					"health":     health,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			printVersion := func(name, version string) {
				if version == "" {
					fmt.Printf("  %-8s not found\n", name)
				} else {
					fmt.Printf("  %-8s %s\n", name, version)
				}
			}
			fmt.Println("Toolchains:")
			printVersion("rustc", toolchains.RustVersion)
			printVersion("cargo", toolchains.CargoVersion)
			printVersion("gradle", toolchains.GradleVersion)
			if toolchains.NDKInstalled {
				fmt.Println("  ndk      installed")
			} else {
				fmt.Println("  ndk      not found")
			}

			fmt.Printf("\nHealth: %s (%s)\n", health.Status, health.Message)
			for _, check := range health.Checks {
				fmt.Printf("  [%s] %s: %s\n", check.Status, check.Name, check.Message)
			}
			return nil
		},
	}
}
