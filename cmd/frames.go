package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zync/zync-maya/internal/frames"
)

var framesCmd = &cobra.Command{
	Use:   "frames [expression]",
	Short: "Expand a frame range expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := frames.Parse(args[0])
		if err != nil {
			return err
		}
		for _, f := range r {
			fmt.Println(f)
		}
		logger.Info("expanded", "frames", len(r), "distinct", r.Distinct())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(framesCmd)
}
