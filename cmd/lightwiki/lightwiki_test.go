package lightwikicmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	lightwikicmder "github.com/papercomputeco/lightwiki/cmd/lightwiki"
)

var _ = Describe("NewLightwikiCmd", func() {
	It("registers every subcommand", func() {
		cmd := lightwikicmder.NewLightwikiCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("search", "graph", "ingest", "config", "version"))
	})

	It("exposes the global flags to subcommands", func() {
		cmd := lightwikicmder.NewLightwikiCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints the version", func() {
		out := &bytes.Buffer{}
		cmd := lightwikicmder.NewLightwikiCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: "))
		Expect(out.String()).To(ContainSubstring("Sha: "))
	})

	It("routes config commands through --config-dir", func() {
		dir := GinkgoT().TempDir()
		out := &bytes.Buffer{}
		cmd := lightwikicmder.NewLightwikiCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"config", "get", "search.top_k", "--config-dir", dir})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(dir))
	})
})
