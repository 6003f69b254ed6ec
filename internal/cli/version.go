package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskstream/internal/console"
	"deskstream/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the deskstream version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %s%s%s%s %sv%s%s\n", console.ColorBold, console.ColorCyan, constants.AppName, console.ColorReset, console.ColorBold, constants.Version, console.ColorReset)
		fmt.Fprintf(out, "  %sDesktop streaming over MJPEG%s\n", console.ColorDim, console.ColorReset)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
