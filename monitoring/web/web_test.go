package web_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ahbfabric/monitoring/web"
)

var _ = Describe("Assets", func() {
	DescribeTable("serving the pages",
		func(mode string) {
			GinkgoT().Setenv(web.DevModeEnv, mode)

			assets := web.GetAssets()

			page, err := assets.Open("index.html")
			Expect(err).NotTo(HaveOccurred())
			defer page.Close()

			html, err := io.ReadAll(page)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(html)).To(HavePrefix("<!DOCTYPE html>"))
			Expect(string(html)).To(ContainSubstring("monitor.js"))

			script, err := assets.Open("monitor.js")
			Expect(err).NotTo(HaveOccurred())
			Expect(script.Close()).To(Succeed())
		},
		Entry("embedded", "false"),
		Entry("from the source tree", "1"),
		Entry("with a malformed switch", "maybe"),
	)

	It("should not serve files outside the pages", func() {
		_, err := web.GetAssets().Open("web.go")

		Expect(err).To(HaveOccurred())
	})
})
