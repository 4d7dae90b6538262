package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var verbose bool

// logger is shared by every subcommand; level is set from --verbose in
// the root PersistentPreRun.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "zync-maya",
})

var rootCmd = &cobra.Command{
	Use:   "zync-maya",
	Short: "Scene dependency resolution for Maya render submissions",
	Long: `zync-maya resolves the external file dependencies of an exported
Maya scene: textures, caches, geometry and archive files, including the
references buried inside RIB and V-Ray archives.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
