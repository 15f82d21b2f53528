// Package config loads the TALP/barrier configuration: a set of named
// options bindable from a DLB_ARGS-style environment string, from
// individual DLB_* environment variables, and optionally from a YAML file
// for the talpctl observer's own settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every TALP/barrier option, bound one field per flag.
type Config struct {
	TALP                 bool
	TALPExternalProfiler bool
	TALPPAPI             bool // accepted, always forced false: PAPI is out of scope
	TALPSummary          string
	TALPRegionSelect     string
	TALPOutputFile       string
	TALPModel            string

	ShmKey            string
	ShmSizeMultiplier float64

	Barrier           bool
	LewiBarrier       bool
	LewiBarrierSelect string
	BarrierID         string
}

// Default returns the option defaults, matching the flag defaults bound in
// newFlagSet.
func Default() Config {
	var c Config
	newFlagSet(&c)
	return c
}

func newFlagSet(c *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("dlb", pflag.ContinueOnError)
	fs.BoolVar(&c.TALP, "talp", false, "enable the TALP profiling engine")
	fs.BoolVar(&c.TALPExternalProfiler, "talp-external-profiler", false,
		"publish per-region times into the node-shared registry for an external observer")
	fs.BoolVar(&c.TALPPAPI, "talp-papi", false, "enable PAPI hardware counters (always forced off)")
	fs.StringVar(&c.TALPSummary, "talp-summary", "", "comma-separated summary reports to print at finalize")
	fs.StringVar(&c.TALPRegionSelect, "talp-region-select", "all", "region-select filter grammar")
	fs.StringVar(&c.TALPOutputFile, "talp-output-file", "", "write the POP metrics report to this file")
	fs.StringVar(&c.TALPModel, "talp-model", "hybrid-v2", "POP efficiency model variant (hybrid-v1, hybrid-v2)")
	fs.StringVar(&c.ShmKey, "shm-key", "", "suffix distinguishing this job's /dev/shm segments")
	fs.Float64Var(&c.ShmSizeMultiplier, "shm-size-multiplier", 1.0, "scales the preallocated shared-memory region size")
	fs.BoolVar(&c.Barrier, "barrier", false, "enable the named shared barrier")
	fs.BoolVar(&c.LewiBarrier, "lewi-barrier", false, "enable the LeWI-aware barrier variant")
	fs.StringVar(&c.LewiBarrierSelect, "lewi-barrier-select", "", "LeWI barrier participant selection")
	fs.StringVar(&c.BarrierID, "barrier-id", "default", "named barrier identifier")
	return fs
}

// envOverrides maps each DLB_* environment variable to the setter applied
// when it's present, mirroring env.c's var-by-var override of whatever
// DLB_ARGS already parsed.
func envOverrides(c *Config) map[string]func(string){
	return map[string]func(string){
		"DLB_TALP": func(v string) { c.TALP = isTruthy(v) },
		"DLB_TALP_EXTERNAL_PROFILER": func(v string) { c.TALPExternalProfiler = isTruthy(v) },
		"DLB_TALP_SUMMARY":           func(v string) { c.TALPSummary = v },
		"DLB_TALP_REGION_SELECT":     func(v string) { c.TALPRegionSelect = v },
		"DLB_TALP_OUTPUT_FILE":       func(v string) { c.TALPOutputFile = v },
		"DLB_TALP_MODEL":             func(v string) { c.TALPModel = v },
		"DLB_SHM_KEY":                func(v string) { c.ShmKey = v },
		"DLB_BARRIER":                func(v string) { c.Barrier = isTruthy(v) },
		"DLB_LEWI_BARRIER":           func(v string) { c.LewiBarrier = isTruthy(v) },
		"DLB_LEWI_BARRIER_SELECT":    func(v string) { c.LewiBarrierSelect = v },
		"DLB_BARRIER_ID":             func(v string) { c.BarrierID = v },
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Load builds a Config the way the original resolves options: start from
// defaults, parse DLB_ARGS (a single space-separated flag string, the
// original's argument-injection mechanism) if present, then let individual
// DLB_* environment variables override specific fields, then apply cliArgs
// (the process's actual argv, taking final precedence). PAPI is always
// forced false regardless of what any layer requested.
func Load(cliArgs []string) (Config, error) {
	var c Config
	fs := newFlagSet(&c)

	if dlbArgs := os.Getenv("DLB_ARGS"); dlbArgs != "" {
		if err := fs.Parse(strings.Fields(dlbArgs)); err != nil {
			return c, fmt.Errorf("config: parsing DLB_ARGS: %w", err)
		}
	}

	for name, set := range envOverrides(&c) {
		if v, ok := os.LookupEnv(name); ok {
			set(v)
		}
	}

	if len(cliArgs) > 0 {
		if err := fs.Parse(cliArgs); err != nil {
			return c, fmt.Errorf("config: parsing arguments: %w", err)
		}
	}

	c.TALPPAPI = false
	return c, nil
}

// LoadYAML reads Config fields from a YAML file layered on top of an
// already resolved Config; any field left zero in the file keeps c's value.
func LoadYAML(c Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return c, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return mergeNonZero(c, overlay), nil
}

func mergeNonZero(base, overlay Config) Config {
	if overlay.TALP {
		base.TALP = true
	}
	if overlay.TALPExternalProfiler {
		base.TALPExternalProfiler = true
	}
	if overlay.TALPSummary != "" {
		base.TALPSummary = overlay.TALPSummary
	}
	if overlay.TALPRegionSelect != "" {
		base.TALPRegionSelect = overlay.TALPRegionSelect
	}
	if overlay.TALPOutputFile != "" {
		base.TALPOutputFile = overlay.TALPOutputFile
	}
	if overlay.TALPModel != "" {
		base.TALPModel = overlay.TALPModel
	}
	if overlay.ShmKey != "" {
		base.ShmKey = overlay.ShmKey
	}
	if overlay.ShmSizeMultiplier != 0 {
		base.ShmSizeMultiplier = overlay.ShmSizeMultiplier
	}
	if overlay.Barrier {
		base.Barrier = true
	}
	if overlay.LewiBarrier {
		base.LewiBarrier = true
	}
	if overlay.LewiBarrierSelect != "" {
		base.LewiBarrierSelect = overlay.LewiBarrierSelect
	}
	if overlay.BarrierID != "" {
		base.BarrierID = overlay.BarrierID
	}
	return base
}
