package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/scenelink"
)

const frameInterval = time.Second / 60

var (
	serveListen   string
	serveTestMode bool
	serveScript   string
)

// serveCmd exposes the runtime side of the bridge over WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve FILE [LIBRARY...]",
	Short: "Serve the runtime side of the editor bridge over WebSocket",
	Long: `Listens for editor connections on /bridge. Each connection gets its own
scene rendered from FILE, with LIBRARY files available as components, and a
watcher that hot-reloads them when they change on disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveTestMode, "test-mode", false, "Respond with null when a handler returns no result")
	serveCmd.Flags().StringVar(&serveScript, "script", "", "Automation script to run in each session")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if cmd.Flags().Changed("test-mode") {
		cfg.TestMode = serveTestMode
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		ch, err := scenelink.UpgradeWebSocket(w, r, logger)
		if err != nil {
			logger.Warn("upgrade failed", zap.Error(err))
			return
		}
		log := logger.With(zap.String("remote", r.RemoteAddr))
		sess, err := newSession(cfg, log, args[0], args[1:])
		if err != nil {
			log.Error("session setup failed", zap.Error(err))
			_ = ch.Close()
			return
		}
		if serveScript != "" {
			if err := sess.loadScript(serveScript); err != nil {
				log.Error("script load failed", zap.Error(err))
			}
		}
		log.Info("editor connected")
		if err := sess.serve(ctx, ch, cfg.TestMode, frameInterval); err != nil {
			log.Warn("session failed", zap.Error(err))
		}
	})

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Listen), zap.String("file", args[0]))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
