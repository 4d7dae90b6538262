package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/zync/zync-maya/internal/collect"
	"github.com/zync/zync-maya/internal/frames"
	"github.com/zync/zync-maya/internal/globs"
	"github.com/zync/zync-maya/internal/manifest"
	"github.com/zync/zync-maya/internal/scene"
)

var (
	frangeExpr   string
	layerNames   []string
	extraPaths   []string
	manifestPath string
	materialize  bool
)

func init() {
	collectCmd.Flags().StringVar(&frangeExpr, "frange", "", "Frame range expression, e.g. 1-100,150")
	collectCmd.Flags().StringSliceVar(&layerNames, "layers", nil, "Render layers to collect for (default: scene selection)")
	collectCmd.Flags().StringSliceVar(&extraPaths, "extra", nil, "Extra file paths to include verbatim")
	collectCmd.Flags().StringVar(&manifestPath, "manifest", "", "Record the result in this manifest database")
	collectCmd.Flags().BoolVar(&materialize, "materialize", false, "Expand glob patterns to the files currently on disk")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect [export.json]",
	Short: "Resolve every external file a scene export depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		fs := osfs.New("/")

		sc, err := scene.LoadDocument(fs, exportPath)
		if err != nil {
			return fmt.Errorf("load scene export: %w", err)
		}

		var frange frames.Range
		if frangeExpr != "" {
			frange, err = frames.Parse(frangeExpr)
			if err != nil {
				return err
			}
		}

		// Interrupt stops the archive scan; whatever was collected up to
		// that point is still printed.
		var interrupted atomic.Bool
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			interrupted.Store(true)
		}()

		res, err := collect.Collect(collect.Options{
			Scene:      sc,
			FS:         fs,
			Layers:     layerNames,
			FrameRange: frange,
			ExtraPaths: extraPaths,
			Cancel:     interrupted.Load,
			Progress: func(done, total int) {
				logger.Debug("scanning archives", "done", done, "total", total)
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}

		for _, p := range res.Files {
			if materialize && strings.ContainsAny(p, "*?[") {
				for _, m := range globs.Resolve(fs, p) {
					fmt.Println(m)
				}
				continue
			}
			fmt.Println(p)
		}
		if res.Cancelled {
			logger.Warn("collection interrupted, file list is partial")
		}
		logger.Info("collection finished",
			"files", len(res.Files), "edges", len(res.Edges), "frames", res.FrameCount)

		if manifestPath != "" {
			store, err := manifest.Open(manifestPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			id, err := store.Write(manifest.Manifest{
				Scene:      exportPath,
				FrameCount: res.FrameCount,
				Cancelled:  res.Cancelled,
				Files:      res.Files,
				Edges:      res.Edges,
			})
			if err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			logger.Info("manifest recorded", "id", id, "db", manifestPath)
		}
		return nil
	},
}
