package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("reports success with a check mark", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Building graph", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Building graph"))
		Expect(buf.String()).To(ContainSubstring("✓"))
	})

	It("returns the step's error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		err := cliui.Step(&buf, "Loading", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("✗"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("FormatDistance", func() {
	It("keeps four decimals", func() {
		Expect(cliui.FormatDistance(0.0061157)).To(ContainSubstring("0.0061"))
	})
})
