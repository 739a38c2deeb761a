package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/scenelink"
	"github.com/phanxgames/scenelink/host"
)

// session is one running scene: the host that renders the open file, and
// the watcher that recompiles it when sources change.
type session struct {
	scene   *scenelink.Scene
	host    *host.Host
	watcher *scenelink.Watcher
	log     *zap.Logger
}

func newSession(cfg *Config, log *zap.Logger, file string, libs []string) (*session, error) {
	scene := scenelink.NewScene()
	scene.SetLogger(log)

	h := host.New(scene,
		host.WithLogger(log),
		host.WithRootDir(cfg.Root),
		host.WithInstrumentOptions(instrumentOptions()...))
	for _, lib := range libs {
		if err := h.AddLibrary(lib); err != nil {
			return nil, fmt.Errorf("library %s: %w", lib, err)
		}
	}
	if err := h.Open(file); err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}

	w, err := scenelink.NewWatcher(cfg.Watch, cfg.Extensions, cfg.Debounce, h.Reload, log)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return &session{scene: scene, host: h, watcher: w, log: log}, nil
}

// loadScript installs an automation script on the scene.
func (s *session) loadScript(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	runner, err := scenelink.LoadTestScript(data)
	if err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	s.scene.Post(func() { s.scene.SetTestRunner(runner) })
	return nil
}

// serve runs the runtime side of the link over ch until ch closes or ctx is
// done. Frames are driven by a ticker.
func (s *session) serve(ctx context.Context, ch scenelink.Channel, testMode bool, frame time.Duration) error {
	bridge := scenelink.NewBridge(ch, scenelink.WithLogger(s.log), scenelink.WithTestMode(testMode))
	defer bridge.Close()
	s.scene.SetBridge(bridge)
	unsubscribe := scenelink.RegisterRuntimeHandlers(bridge, s.scene)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	if err := s.watcher.Start(gctx); err != nil {
		return err
	}
	defer s.watcher.Stop()

	g.Go(func() error {
		err := bridge.Run(gctx)
		if errors.Is(err, scenelink.ErrClosed) {
			s.log.Info("editor disconnected")
			return errSessionEnded
		}
		return err
	})
	g.Go(func() error {
		s.scene.SetFrameTime(frame.Seconds())
		ticker := time.NewTicker(frame)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.scene.Update()
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, errSessionEnded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var errSessionEnded = errors.New("session ended")
