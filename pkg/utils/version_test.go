package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReadBuildInfo", func() {
	It("reports stamped values verbatim", func() {
		prev := [3]string{Version, Sha, Buildtime}
		DeferCleanup(func() { Version, Sha, Buildtime = prev[0], prev[1], prev[2] })

		Version, Sha, Buildtime = "v0.3.0", "abc123", "2026-01-02T03:04:05Z"
		Expect(ReadBuildInfo()).To(Equal(BuildInfo{
			Version:   "v0.3.0",
			Sha:       "abc123",
			Buildtime: "2026-01-02T03:04:05Z",
		}))
	})

	It("always reports a version for unstamped binaries", func() {
		info := ReadBuildInfo()
		Expect(info.Version).NotTo(BeEmpty())
		Expect(info.Sha).NotTo(BeEmpty())
	})
})
