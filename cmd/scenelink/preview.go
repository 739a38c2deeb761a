package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phanxgames/scenelink/preview"
)

var previewScript string

// previewCmd renders a scene in a local window
var previewCmd = &cobra.Command{
	Use:   "preview FILE [LIBRARY...]",
	Short: "Open a local window on the scene rendered from FILE",
	Long: `Renders FILE in a window projected onto the XY plane. Click to select an
element, drag the selection to move it, and use w, e and r to switch between
translate, rotate and scale. Escape clears the selection. Source changes are
hot-reloaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewScript, "script", "", "Automation script to run after the scene loads")
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "Window width (overrides config)")
	previewCmd.Flags().IntVar(&previewHeight, "height", 0, "Window height (overrides config)")
}

var previewWidth, previewHeight int

func runPreview(cmd *cobra.Command, args []string) error {
	if previewWidth > 0 {
		cfg.Preview.Width = previewWidth
	}
	if previewHeight > 0 {
		cfg.Preview.Height = previewHeight
	}

	sess, err := newSession(cfg, logger, args[0], args[1:])
	if err != nil {
		return err
	}
	if previewScript != "" {
		if err := sess.loadScript(previewScript); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := sess.watcher.Start(ctx); err != nil {
		return err
	}
	defer sess.watcher.Stop()

	err = preview.Run(sess.scene, preview.Config{
		Title:         "scenelink: " + sess.host.IdentityPath(args[0]),
		Width:         cfg.Preview.Width,
		Height:        cfg.Preview.Height,
		PixelsPerUnit: cfg.Preview.PixelsPerUnit,
		Logger:        logger,
	})
	logger.Info("preview closed", zap.Error(err))
	return err
}
