package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskstream/internal/constants"
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Stream your desktop to any browser as MJPEG",
	Long: `deskstream shares the screen of this machine as a Motion-JPEG stream.
Viewers open the printed share URL in a browser or media player; the URL
carries a one-time key that changes every time the stream starts.

Settings come from DESKSTREAM_* environment variables, an optional .env
file, and the flags below (flags win). Editing the .env file while running
restarts the stream with a fresh key.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.Version = constants.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s version {{.Version}}\n", constants.AppName))
	addStreamFlags(rootCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
