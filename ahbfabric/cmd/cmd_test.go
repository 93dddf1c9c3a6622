package cmd

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ahbfabric/simulation"
)

var _ = Describe("Config loading", func() {
	It("should use the default fabric without a topology", func() {
		cfg, err := readConfig("", "")

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(simulation.DefaultConfig()))
	})

	It("should apply the env file over the topology", func() {
		envFile := filepath.Join(GinkgoT().TempDir(), "fabric.env")
		Expect(os.WriteFile(envFile,
			[]byte("AHBFABRIC_ARBITRATION=fixed\n"), 0o644)).To(Succeed())
		DeferCleanup(os.Unsetenv, simulation.EnvArbitration)

		cfg, err := readConfig("../soc.yaml", envFile)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Name).To(Equal("Soc"))
		Expect(cfg.Arbitration).To(Equal(simulation.ArbitrationFixed))
		Expect(cfg.Masters).To(HaveLen(2))
	})

	It("should report a missing topology", func() {
		_, err := readConfig("no-such-topology.yaml", "")

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Run", func() {
	It("should run the sample SoC to completion", func() {
		cfg, err := simulation.LoadConfig("../soc.yaml")
		Expect(err).NotTo(HaveOccurred())

		out := &bytes.Buffer{}
		Expect(runFabric(cfg, 0, 1000, out)).To(Succeed())

		Expect(out.String()).NotTo(ContainSubstring("did not finish"))
		Expect(out.String()).To(ContainSubstring("Soc.CPU.Traffic"))
		Expect(out.String()).To(ContainSubstring("Soc.DMA.Traffic"))
		Expect(out.String()).To(ContainSubstring("average latency"))
	})

	It("should run a fixed number of cycles", func() {
		out := &bytes.Buffer{}

		Expect(runFabric(simulation.DefaultConfig(), 5, 0, out)).To(Succeed())

		Expect(out.String()).To(HavePrefix("5 cycles"))
	})

	It("should refuse an invalid topology", func() {
		cfg := simulation.DefaultConfig()
		cfg.FreqMHz = 0

		err := runFabric(cfg, 5, 0, &bytes.Buffer{})

		Expect(err).To(MatchError(simulation.ErrInvalidConfig))
	})
})

var _ = Describe("Serve", func() {
	It("should serve the monitor of the fabric", func() {
		s, url, err := serveFabric(simulation.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(url + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(s.Terminate()).To(Succeed())
	})
})
