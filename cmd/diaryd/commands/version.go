package commands

import (
	"fmt"
	"runtime"

	internal "github.com/ZanzyTHEbar/intern-diary/diary"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s version %s go=%s\n", internal.DefaultAppName, internal.Version, runtime.Version())
}
