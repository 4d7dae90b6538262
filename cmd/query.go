package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/zync/zync-maya/internal/scene"
)

var queryCmd = &cobra.Command{
	Use:   "query [export.json] [jsonpath]",
	Short: "Run a JSONPath query against a scene export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		sc, err := scene.LoadDocument(osfs.New("/"), exportPath)
		if err != nil {
			return fmt.Errorf("load scene export: %w", err)
		}
		results, err := sc.Query(args[1])
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Println(oj.JSON(r, 2))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
