package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/mesh"
	"github.com/sarchlab/meshflood/simulation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var floodCmd = &cobra.Command{
	Use:   "flood",
	Short: "Run the full-mesh flood experiment.",
	Long: "`flood` places --nodes nodes, lets node 0 at (0, 0) flood node N " +
		"at (N, N) three times, and reports which nodes received the packets.",
	RunE: runFlood,
}

func init() {
	addFloodFlags(floodCmd.Flags())
	rootCmd.AddCommand(floodCmd)
}

func addFloodFlags(flags *pflag.FlagSet) {
	flags.Float64("range", simulation.DefaultRange,
		"Distance below which nodes hear each other.")
	flags.Int("nodes", simulation.DefaultNodeCount, "Number of nodes.")
	flags.Int64("seed", 0,
		"Seed of node placement. The clock is used when unset.")
	flags.Duration("duration", 20*time.Second, "How long the flood runs.")
	flags.Int("ttl", mesh.DefaultInitialTTL, "TTL of originated packets.")
	flags.String("csv", "",
		"Dump the history into this file, with a .csv extension added.")
	flags.String("db", "",
		"Record the history into this SQLite file, "+
			"with a .sqlite3 extension added.")
	flags.Bool("monitor", false, "Serve the monitoring API.")
	flags.Int("monitor-port", 0, "Port of the monitoring server.")
	flags.Bool("open-browser", false, "Open the monitoring API in a browser.")
	flags.Bool("trace", false, "Print every envelope to stderr.")
	flags.Bool("parallel-ids", false,
		"Give envelopes globally unique IDs instead of sequential numbers.")
}

type floodOptions struct {
	rangeThreshold float64
	nodeCount      int
	seed           int64
	seedSet        bool
	duration       time.Duration
	ttl            int
	csvFile        string
	dbFile         string
	monitor        bool
	monitorPort    int
	openBrowser    bool
	trace          bool
	parallelIDs    bool
}

func readFloodOptions(cmd *cobra.Command) floodOptions {
	flags := cmd.Flags()

	o := floodOptions{}
	o.rangeThreshold, _ = flags.GetFloat64("range")
	o.nodeCount, _ = flags.GetInt("nodes")
	o.seed, _ = flags.GetInt64("seed")
	o.seedSet = flags.Changed("seed")
	o.duration, _ = flags.GetDuration("duration")
	o.ttl, _ = flags.GetInt("ttl")
	o.csvFile, _ = flags.GetString("csv")
	o.dbFile, _ = flags.GetString("db")
	o.monitor, _ = flags.GetBool("monitor")
	o.monitorPort, _ = flags.GetInt("monitor-port")
	o.openBrowser, _ = flags.GetBool("open-browser")
	o.trace, _ = flags.GetBool("trace")
	o.parallelIDs, _ = flags.GetBool("parallel-ids")

	return o
}

func (o floodOptions) builder() simulation.Builder {
	b := simulation.MakeBuilder().
		WithRange(o.rangeThreshold).
		WithNodeCount(o.nodeCount).
		WithAddressRange(0, mesh.Address(o.nodeCount+1)).
		WithInitialTTL(o.ttl)

	if o.seedSet {
		b = b.WithSeed(o.seed)
	}

	if o.monitor {
		if o.monitorPort > 0 {
			b = b.WithMonitorPort(o.monitorPort)
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if o.parallelIDs {
		b = b.WithParallelIDs()
	}

	if o.trace {
		b = b.WithEnvelopeLogger(log.New(os.Stderr, "", log.Lmicroseconds))
	}

	if o.dbFile == "" {
		b = b.WithoutDataRecording()
	} else {
		b = b.WithOutputFileName(o.dbFile)
	}

	return b
}

func runFlood(cmd *cobra.Command, _ []string) error {
	o := readFloodOptions(cmd)
	if o.nodeCount < 2 {
		return fmt.Errorf("--nodes must be at least 2, got %d", o.nodeCount)
	}

	s := o.builder().Build()
	defer s.Terminate()

	if err := simulation.SetUpFullMeshFlood(s); err != nil {
		return err
	}

	if o.monitor && o.openBrowser {
		if err := browser.OpenURL(s.MonitorURL()); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	err := s.RunFor(cmd.Context(), o.duration)

	if o.csvFile != "" {
		w := history.NewCSVWriter(o.csvFile)
		w.Init()
		w.WriteAll(s.History().Records())
		w.Close()
	}

	report(cmd.OutOrStdout(), s)

	return err
}

func report(out io.Writer, s *simulation.Simulation) {
	counts := s.History().ReceivedCount()

	reporters := make([]int, 0, len(counts))
	for r := range counts {
		reporters = append(reporters, r)
	}
	sort.Ints(reporters)

	fmt.Fprintf(out, "%d nodes, %d records\n",
		len(s.Network().Nodes()), s.History().Len())

	for _, r := range reporters {
		fmt.Fprintf(out, "node %d received %d\n", r, counts[r])
	}

	steps := s.StepCounter()
	for _, name := range steps.GetStepNames() {
		fmt.Fprintf(out, "%s: %d times, %d packets\n",
			name, steps.GetStepCount(name), steps.GetPacketCount(name))
	}

	fmt.Fprintf(out, "average hop latency: %v\n", s.HopLatency().AverageTime())
	fmt.Fprintf(out, "seed used to generate network: %d\n", s.Seed())
}
