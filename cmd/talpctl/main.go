//go:build linux

// Command talpctl is an out-of-band observer CLI: it attaches to a node's
// TALP shared registry and reads whatever its siblings have already
// published, without ever registering a region of its own.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/logging"
	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/bsc-dlb/talp-go/internal/report"
	"github.com/bsc-dlb/talp-go/pkg/dlb"
	"github.com/spf13/cobra"
)

var (
	shmKey  string
	format  string
	maxLen  int
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "talpctl",
		Short: "Out-of-band query tool for a node's TALP shared registry",
		Long: `talpctl attaches to the TALP shared memory registry of a running job and
reports whatever its sibling processes have already published: per-pid
region times, per-node aggregates, and live POP efficiency metrics.

It never registers a region itself; it is a read-only observer, the CLI
analogue of DLB_TALP_Attach/GetTimes/GetNodeTimes.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			errs.SetLogger(logging.New(verbose))
		},
	}

	root.PersistentFlags().StringVar(&shmKey, "key", "", "suffix distinguishing the job's /dev/shm segments")
	root.PersistentFlags().StringVar(&format, "format", "txt", "output format: txt, json, or csv")
	root.PersistentFlags().IntVar(&maxLen, "max", 64, "maximum number of entries to list")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development-mode (human-readable) logging")

	root.AddCommand(attachCmd(), timesCmd(), regionsCmd(), nodeTimesCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func attachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Attach to the shared registry and print node summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := dlb.Attach(shmKey)
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer o.Detach()

			pids := o.GetPidList(maxLen)
			fmt.Printf("node CPUs: %d\n", o.GetNumCPUs())
			fmt.Printf("shared registry size: %s\n", o.SegmentSize())
			fmt.Printf("registered pids (%d): %v\n", len(pids), pids)
			return nil
		},
	}
}

func timesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "times <pid> <region>",
		Short: "Print the mpi/useful time published by one pid's region",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			o, err := dlb.Attach(shmKey)
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer o.Detach()

			mpiTime, usefulTime, err := o.GetTimes(pid, args[1])
			if err != nil {
				return fmt.Errorf("times: %w", err)
			}
			fmt.Printf("pid %d region %q: mpiTime=%d usefulTime=%d\n", pid, args[1], mpiTime, usefulTime)
			return nil
		},
	}
}

func regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List every (pid, region) slot currently registered on the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := dlb.Attach(shmKey)
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer o.Detach()

			o.PrintInfo(os.Stdout)
			return nil
		},
	}
}

func nodeTimesCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "node-times <region>",
		Short: "Reduce every sibling's published times for a region into POP metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := dlb.Attach(shmKey)
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer o.Detach()

			name := args[0]
			records := o.GetNodeTimes(name, maxLen)
			m, err := parseModel(model)
			if err != nil {
				return err
			}
			pop := o.QueryPopNodeMetrics(name, m, maxLen)

			doc := report.Document{Pop: []reduce.PopMetrics{pop}}
			return writeDoc(doc, len(records))
		},
	}

	cmd.Flags().StringVar(&model, "model", "v2", "POP efficiency model: v1 or v2")
	return cmd
}

func writeDoc(doc report.Document, numSiblings int) error {
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout, doc)
	case "csv":
		return report.WriteCSV("talpctl-report", doc)
	case "txt", "":
		fmt.Printf("siblings reporting: %d\n", numSiblings)
		return report.WriteTXT(os.Stdout, doc)
	default:
		return fmt.Errorf("unknown format %q (want txt, json, or csv)", format)
	}
}

func parsePID(s string) (int32, error) {
	var pid int32
	if _, err := fmt.Sscanf(s, "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid pid %q: %w", s, err)
	}
	return pid, nil
}

func parseModel(s string) (reduce.Model, error) {
	switch s {
	case "v1":
		return reduce.ModelHybridV1, nil
	case "v2", "":
		return reduce.ModelHybridV2, nil
	default:
		return 0, fmt.Errorf("unknown model %q (want v1 or v2)", s)
	}
}
