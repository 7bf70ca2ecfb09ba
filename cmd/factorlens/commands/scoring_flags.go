package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/selection"
)

// scoringFlags are per-call overrides of the engine defaults
type scoringFlags struct {
	weights       string
	sectorNeutral bool
	dipWeight     float64
	noDip         bool
}

func (f *scoringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.weights, "weights", "", `factor weights, e.g. "growth=0.4,valuation=0.2"`)
	cmd.Flags().BoolVar(&f.sectorNeutral, "sector-neutral", false, "rank factors within each sector")
	cmd.Flags().Float64Var(&f.dipWeight, "dip-weight", selection.DefaultDipWeight, "dip bonus weight")
	cmd.Flags().BoolVar(&f.noDip, "no-dip", false, "disable the dip bonus")
}

// apply overlays the flags the user actually set on opts
func (f *scoringFlags) apply(cmd *cobra.Command, opts selection.Options) (selection.Options, error) {
	if cmd.Flags().Changed("weights") {
		wm, err := parseWeightFlag(f.weights)
		if err != nil {
			return opts, err
		}
		opts.Weights = opts.Weights.Overlay(wm)
	}
	if cmd.Flags().Changed("sector-neutral") {
		opts.SectorNeutral = f.sectorNeutral
	}
	if cmd.Flags().Changed("dip-weight") {
		if f.dipWeight < 0 {
			return opts, fmt.Errorf("--dip-weight must be >= 0, got %v", f.dipWeight)
		}
		opts.DipWeight = f.dipWeight
	}
	if f.noDip {
		opts.UseDipBonus = false
	}
	return opts, nil
}

// parseWeightFlag reads only the keys given, without defaults
func parseWeightFlag(s string) (*contracts.WeightMap, error) {
	wm := &contracts.WeightMap{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("--weights: %q is not key=value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("--weights: %q: %w", strings.TrimSpace(k), err)
		}
		if f < 0 {
			return nil, fmt.Errorf("--weights: %q must be >= 0", strings.TrimSpace(k))
		}
		wm.Set(strings.TrimSpace(k), f)
	}
	return wm, nil
}
