// Command pantry runs the food factory and its two pantries in a terminal,
// printing every item as it is generated and as it lands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pantry",
		Short: "A food factory feeding two pantries",
		Long: `pantry runs a single food factory whose output is shared by two pantries.

The left pantry takes everything until the pantries are switched.
The right pantry ignores everything until the switch, then takes everything.
The factory can be stopped early, and everything shuts down
when the run ends or is interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
