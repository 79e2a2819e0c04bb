package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/config"
)

func newCmd(dir string, out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := configcmder.NewConfigCmd()
	cmd.PersistentFlags().String("config-dir", "", "")
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config-dir", dir))
	return cmd
}

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("writes config.toml", func() {
			Expect(newCmd(dir, out, "set", "index.metric", "euclidean").Execute()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`metric = "euclidean"`))
			Expect(out.String()).To(ContainSubstring("index.metric"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd(dir, out, "set", "invalid_key", "value").Execute()).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid values", func() {
			Expect(newCmd(dir, out, "set", "index.metric", "manhattan").Execute()).To(HaveOccurred())
			Expect(newCmd(dir, out, "set", "search.top_k", "many").Execute()).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(newCmd(dir, out, "set", "index.metric").Execute()).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("reads back a value that was set", func() {
			Expect(newCmd(dir, &bytes.Buffer{}, "set", "embedding.model", "nomic-embed-text").Execute()).To(Succeed())

			Expect(newCmd(dir, out, "get", "embedding.model").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("nomic-embed-text"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd(dir, out, "get", "nope").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(newCmd(dir, out, "list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("search.top_k"))
			Expect(out.String()).To(ContainSubstring("graph.object_key"))
		})
	})
})
