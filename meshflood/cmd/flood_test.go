package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"
	"github.com/sarchlab/meshflood/datarecording"
	"github.com/sarchlab/meshflood/history"
	"github.com/spf13/cobra"
)

var _ = Describe("Flood command", func() {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		addFloodFlags(c.Flags())

		return c
	}

	It("should name environment variables after flags", func() {
		Expect(envName("monitor-port")).To(Equal("MESHFLOOD_MONITOR_PORT"))
		Expect(envName("nodes")).To(Equal("MESHFLOOD_NODES"))
	})

	It("should take unset flags from the environment", func() {
		GinkgoT().Setenv("MESHFLOOD_NODES", "7")
		GinkgoT().Setenv("MESHFLOOD_SEED", "42")

		c := &cobra.Command{}
		c.Flags().Int("nodes", 25, "")
		c.Flags().Int64("seed", 0, "")
		c.Flags().Float64("range", 15, "")
		Expect(c.Flags().Parse([]string{})).To(Succeed())

		Expect(applyEnvDefaults(c.Flags())).To(Succeed())

		nodes, _ := c.Flags().GetInt("nodes")
		Expect(nodes).To(Equal(7))
		Expect(c.Flags().Changed("seed")).To(BeTrue())

		rangeThreshold, _ := c.Flags().GetFloat64("range")
		Expect(rangeThreshold).To(Equal(15.0))
	})

	It("should prefer the command line over the environment", func() {
		GinkgoT().Setenv("MESHFLOOD_NODES", "7")

		c := &cobra.Command{}
		c.Flags().Int("nodes", 25, "")
		Expect(c.Flags().Parse([]string{"--nodes", "3"})).To(Succeed())

		Expect(applyEnvDefaults(c.Flags())).To(Succeed())

		nodes, _ := c.Flags().GetInt("nodes")
		Expect(nodes).To(Equal(3))
	})

	It("should reject malformed environment values", func() {
		GinkgoT().Setenv("MESHFLOOD_NODES", "many")

		c := &cobra.Command{}
		c.Flags().Int("nodes", 25, "")

		Expect(applyEnvDefaults(c.Flags())).NotTo(Succeed())
	})

	It("should read the flood options", func() {
		c := newCmd()
		Expect(c.Flags().Parse([]string{
			"--nodes", "5", "--seed", "3", "--duration", "2s",
		})).To(Succeed())

		o := readFloodOptions(c)

		Expect(o.nodeCount).To(Equal(5))
		Expect(o.seed).To(Equal(int64(3)))
		Expect(o.seedSet).To(BeTrue())
		Expect(o.duration).To(Equal(2 * time.Second))
		Expect(o.monitor).To(BeFalse())
		Expect(o.dbFile).To(BeEmpty())
	})

	It("should run a flood with unique envelope IDs", func() {
		dir := GinkgoT().TempDir()
		csvBase := filepath.Join(dir, "history")
		dbBase := filepath.Join(dir, "run")

		out := bytes.NewBuffer(nil)
		rootCmd.SetOut(out)
		rootCmd.SetArgs([]string{
			"flood",
			"--nodes", "4",
			"--seed", "1",
			"--duration", "3500ms",
			"--csv", csvBase,
			"--db", dbBase,
			"--parallel-ids",
		})

		Expect(rootCmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("5 nodes"))
		Expect(out.String()).To(ContainSubstring(
			"seed used to generate network: 1"))

		_, err := os.Stat(csvBase + ".csv")
		Expect(err).NotTo(HaveOccurred())

		reader := datarecording.NewReader(dbBase + ".sqlite3")
		defer reader.Close()

		records, err := history.Load(context.Background(), reader)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).NotTo(BeEmpty())

		_, err = xid.FromString(records[0].EnvelopeID)
		Expect(err).NotTo(HaveOccurred())
	})
})
