package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zync/zync-maya/internal/tokens"
)

var (
	expandSceneName string
	expandCamera    string
	expandLayer     string
	expandFrame     int
)

func init() {
	expandCmd.Flags().StringVar(&expandSceneName, "scene-name", "", "Value for the scene name token")
	expandCmd.Flags().StringVar(&expandCamera, "camera", "", "Value for the camera token")
	expandCmd.Flags().StringVar(&expandLayer, "layer", "", "Value for the render layer token")
	expandCmd.Flags().IntVar(&expandFrame, "frame", 0, "Expand frame tokens to this frame instead of a wildcard")
	rootCmd.AddCommand(expandCmd)
}

var expandCmd = &cobra.Command{
	Use:   "expand [template]",
	Short: "Expand the tokens in a path template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := tokens.Context{
			SceneName: expandSceneName,
			Camera:    expandCamera,
			Layer:     expandLayer,
		}
		if cmd.Flags().Changed("frame") {
			ctx.Frame = &expandFrame
		}
		expanded, err := tokens.Expand(args[0], ctx)
		if err != nil {
			return err
		}
		fmt.Println(expanded)
		return nil
	},
}
