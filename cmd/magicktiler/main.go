package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ait-dme/magicktiler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	tileSize   int
	scheme     string
	system     string
	background string
	quality    int
	preview    bool
	startTime  time.Time
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "magicktiler",
	Short: "tile pyramid generator and validator",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		startTime = time.Now()
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		logger.Sugar().Debugf("command %s took %.1fs", cmd.Name(), time.Since(startTime).Seconds())
		logger.Sync()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.AddCommand(convertCmd, validateCmd)

	convertCmd.Flags().IntVar(&tileSize, "tile-size", 256, "tile width/height in pixels")
	convertCmd.Flags().StringVar(&scheme, "scheme", "zoomify", "tiling scheme: zoomify, googlemaps, tms")
	convertCmd.Flags().StringVar(&system, "system", "gm", "image processing system: gm or im")
	convertCmd.Flags().StringVar(&background, "background", "#ffffffff", "canvas background color")
	convertCmd.Flags().IntVar(&quality, "quality", 75, "jpeg quality")
	convertCmd.Flags().BoolVar(&preview, "preview", false, "generate preview.html")

	validateCmd.Flags().IntVar(&tileSize, "tile-size", 256, "unused: validators read the tile size from the tileset's metadata")
	validateCmd.Flags().StringVar(&scheme, "scheme", "zoomify", "tiling scheme: zoomify, googlemaps")
}

var convertCmd = &cobra.Command{
	Use:   "convert <source> <tileset-dir>",
	Short: "generate a tile pyramid from a source image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]

		procSystem, err := magicktiler.ParseImageProcessingSystem(system)
		if err != nil {
			return err
		}
		proc := magicktiler.NewShellProcessor(logger,
			magicktiler.WithProcessingSystem(procSystem),
			magicktiler.WithJPEGQuality(quality),
			magicktiler.WithProcessorBackground(background))

		tctx, err := magicktiler.NewTilerContext(proc, dst,
			magicktiler.WithTileSize(tileSize, tileSize),
			magicktiler.WithBackgroundColor(background),
			magicktiler.WithGeneratePreview(preview),
			magicktiler.WithLogger(logger))
		if err != nil {
			return err
		}

		tiler, err := newTiler(scheme, tctx)
		if err != nil {
			return err
		}
		return tiler.Convert(src)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <tileset-dir>",
	Short: "validate a previously generated tileset against its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		var v magicktiler.Validator
		switch scheme {
		case "zoomify":
			v = magicktiler.NewZoomifyValidator(magicktiler.FormatJPEG)
		case "googlemaps":
			v = magicktiler.NewGoogleMapsValidator()
		default:
			return fmt.Errorf("no validator for scheme %q (tms tilesets carry no failure-detecting metadata beyond directory layout)", scheme)
		}
		if !v.IsTilesetDir(root) {
			return fmt.Errorf("%s does not look like a %s tileset", root, scheme)
		}
		return v.Validate(root)
	},
}

func newTiler(scheme string, tctx *magicktiler.TilerContext) (magicktiler.Tiler, error) {
	switch scheme {
	case "zoomify":
		return magicktiler.NewZoomifyTiler(tctx), nil
	case "googlemaps":
		return magicktiler.NewGoogleMapsTiler(tctx), nil
	case "tms":
		return magicktiler.NewTMSTiler(tctx), nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}
}
