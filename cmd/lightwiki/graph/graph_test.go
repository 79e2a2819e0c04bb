package graphcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	graphcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/graph"
	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/storage/pagesql"
	"github.com/papercomputeco/lightwiki/pkg/storage/sqlite"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

func newCmd(dir string, out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := graphcmder.NewGraphCmd()
	cmd.PersistentFlags().BoolP("debug", "d", false, "")
	cmd.PersistentFlags().String("config-dir", "", "")
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config-dir", dir))
	return cmd
}

var _ = Describe("NewGraphCmd", func() {
	It("has build and show subcommands", func() {
		cmd := graphcmder.NewGraphCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("build", "show"))
	})
})

var _ = Describe("graph commands", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		ctx := context.Background()
		d, err := sqlite.NewSQLiteDriver(ctx, filepath.Join(dir, "lightwiki.sqlite"), pagesql.Config{})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		Expect(d.Upsert(ctx, []vector.Document{
			{ID: "A", Embedding: vector.Embedding{1, 0}},
			{ID: "B", Embedding: vector.Embedding{0.9, 0.1}},
			{ID: "C", Embedding: vector.Embedding{-1, 0}},
			{ID: "D", Embedding: vector.Embedding{0, 1}},
		})).To(Succeed())
	})

	It("builds a snapshot that show --raw reads back verbatim", func() {
		out := &bytes.Buffer{}
		Expect(newCmd(dir, out, "build", "--k", "1").Execute()).To(Succeed())
		Expect(filepath.Join(dir, "graph.json")).To(BeAnExistingFile())

		raw := &bytes.Buffer{}
		Expect(newCmd(dir, raw, "show", "--raw").Execute()).To(Succeed())

		g, err := graph.Decode(raw.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.K).To(Equal(1))

		targets := map[string]string{}
		for _, e := range g.Edges() {
			targets[e.Source] = e.Target
		}
		Expect(targets).To(Equal(map[string]string{"A": "B", "B": "A", "C": "D", "D": "B"}))
	})

	It("picks k from the corpus size when k is zero", func() {
		Expect(newCmd(dir, &bytes.Buffer{}, "build", "--k", "0", "--layout").Execute()).To(Succeed())

		out := &bytes.Buffer{}
		Expect(newCmd(dir, out, "show", "--raw").Execute()).To(Succeed())
		g, err := graph.Decode(out.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.K).To(Equal(graph.AutoK(4)))
		Expect(g.Nodes[0].Position).NotTo(BeNil())
	})

	It("prints a summary of the snapshot", func() {
		Expect(newCmd(dir, &bytes.Buffer{}, "build", "--k", "2").Execute()).To(Succeed())

		out := &bytes.Buffer{}
		Expect(newCmd(dir, out, "show").Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("cosine"))
		Expect(out.String()).To(ContainSubstring("nodes"))
	})

	It("summarizes zones of the k=1 graph", func() {
		Expect(newCmd(dir, &bytes.Buffer{}, "build", "--k", "1").Execute()).To(Succeed())

		out := &bytes.Buffer{}
		Expect(newCmd(dir, out, "show").Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Zones"))
		Expect(out.String()).To(ContainSubstring("connectivity ratio"))
		Expect(out.String()).To(ContainSubstring("0.250"))
		Expect(out.String()).To(ContainSubstring("zone 1"))
		Expect(out.String()).NotTo(ContainSubstring("zone 2"))
	})

	It("copies build logs as JSON to --log-file", func() {
		logPath := filepath.Join(dir, "logs", "build.log")
		Expect(newCmd(dir, &bytes.Buffer{}, "build", "--k", "1", "--log-file", logPath).Execute()).To(Succeed())

		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())

		var found bool
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			var rec map[string]any
			Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
			if rec["msg"] == "graph built" {
				found = true
				Expect(rec["zones"]).To(BeNumerically("==", 1))
				Expect(rec["nodes"]).To(BeNumerically("==", 4))
			}
		}
		Expect(found).To(BeTrue())
	})

	It("reports a missing snapshot", func() {
		err := newCmd(dir, &bytes.Buffer{}, "show").Execute()
		Expect(err).To(MatchError(graph.ErrNoSnapshot))
	})

	It("rejects --raw with --follow", func() {
		err := newCmd(dir, &bytes.Buffer{}, "show", "--raw", "--follow").Execute()
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown graph store", func() {
		err := newCmd(dir, &bytes.Buffer{}, "build", "--graph-store", "redis").Execute()
		Expect(err).To(MatchError(vector.ErrInvalidArgument))
	})
})
