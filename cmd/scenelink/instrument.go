package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phanxgames/scenelink/host"
	"github.com/phanxgames/scenelink/instrument"
)

var (
	instrumentOut       string
	instrumentPositions bool
)

// instrumentCmd tags one source file and prints the result
var instrumentCmd = &cobra.Command{
	Use:   "instrument FILE",
	Short: "Wrap every element of a scene source in a position-tagged carrier",
	Long: `Instruments FILE and prints the rewritten code.

With --positions the element table is printed as JSON instead: one entry per
tagged element with its identity, tag name and transform capabilities.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstrument,
}

func init() {
	instrumentCmd.Flags().StringVarP(&instrumentOut, "out", "o", "", "Write to this file instead of stdout")
	instrumentCmd.Flags().BoolVar(&instrumentPositions, "positions", false, "Print the element position table as JSON")
}

type positionEntry struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Name      string `json:"name"`
	Attached  bool   `json:"attached,omitempty"`
	Translate bool   `json:"translate"`
	Rotate    bool   `json:"rotate"`
	Scale     bool   `json:"scale"`
}

func runInstrument(cmd *cobra.Command, args []string) error {
	h := host.New(nil, host.WithLogger(logger), host.WithRootDir(cfg.Root), host.WithInstrumentOptions(instrumentOptions()...))
	res, err := h.Compile(args[0])
	if err != nil {
		return fmt.Errorf("instrument %s: %w", args[0], err)
	}
	logger.Debug("instrumented", zap.String("path", res.Path), zap.Int("elements", len(res.Elements)))

	var w io.Writer = cmd.OutOrStdout()
	if instrumentOut != "" {
		f, err := os.Create(instrumentOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if !instrumentPositions {
		_, err = w.Write(res.Code)
		return err
	}
	return writePositions(w, res)
}

func writePositions(w io.Writer, res *instrument.Result) error {
	entries := make([]positionEntry, len(res.Elements))
	for i, e := range res.Elements {
		entries[i] = positionEntry{
			Path:      e.Identity.Path,
			Line:      e.Identity.Line,
			Column:    e.Identity.Column,
			Name:      e.Name,
			Attached:  e.Attached,
			Translate: e.Caps.Translate,
			Rotate:    e.Caps.Rotate,
			Scale:     e.Caps.Scale,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func instrumentOptions() []instrument.Option {
	if cfg.CarrierTag == "" {
		return nil
	}
	return []instrument.Option{instrument.WithCarrierTag(cfg.CarrierTag)}
}
