package simulation

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const topology = `
name: Soc
arbitration: round_robin
masters:
  - name: CPU
    bitband: true
    aligner: split
    traffic:
      - {op: write, addr: 0x20000000, size: 4, data: 0xdeadbeef}
      - {op: idle, cycles: 2}
      - {op: read, addr: 0x20000000, size: 4}
  - name: DMA
slaves:
  - name: SRAM
    start: 0x20000000
    end: 0x20010000
    read_waitstates: 1
  - name: Periph
    start: 0x40000000
    end: 0x40001000
    error_ranges:
      - {start: 0x40000800, end: 0x40001000}
`

var _ = Describe("Config", func() {
	It("should parse a topology", func() {
		cfg, err := ParseConfig([]byte(topology))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Name).To(Equal("Soc"))
		Expect(cfg.FreqMHz).To(Equal(100.0))
		Expect(cfg.Arbitration).To(Equal(ArbitrationRoundRobin))
		Expect(cfg.Masters).To(HaveLen(2))
		Expect(cfg.Masters[0].Traffic[0]).To(Equal(TransferConfig{
			Op: "write", Addr: 0x2000_0000, Size: 4, Data: 0xdeadbeef,
		}))
		Expect(cfg.Masters[0].Traffic[1].Cycles).To(Equal(2))
		Expect(cfg.Slaves[1].ErrorRanges).To(Equal([]RangeConfig{
			{Start: 0x4000_0800, End: 0x4000_1000},
		}))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should report malformed YAML", func() {
		_, err := ParseConfig([]byte("masters: [\n"))

		Expect(err).To(HaveOccurred())
	})

	It("should load a topology file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "soc.yaml")
		Expect(os.WriteFile(path, []byte(topology), 0o600)).To(Succeed())

		cfg, err := LoadConfig(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Slaves[0].ReadWaitstates).To(Equal(1))

		_, err = LoadConfig(path + ".missing")
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})

	Context("with environment overrides", func() {
		AfterEach(func() {
			for _, k := range []string{
				EnvArbitration, EnvFreqMHz, EnvLiteCompat, EnvTraceDB,
				EnvMonitorPort,
			} {
				os.Unsetenv(k)
			}
		})

		It("should apply a .env file", func() {
			path := filepath.Join(GinkgoT().TempDir(), ".env")
			Expect(os.WriteFile(path, []byte(
				"AHBFABRIC_ARBITRATION=round_robin\n"+
					"AHBFABRIC_FREQ_MHZ=48\n"+
					"AHBFABRIC_AHB_LITE_COMPAT=true\n"+
					"AHBFABRIC_MONITOR_PORT=8080\n"), 0o600)).To(Succeed())

			cfg := DefaultConfig()
			Expect(ApplyEnv(&cfg, path)).To(Succeed())

			Expect(cfg.Arbitration).To(Equal(ArbitrationRoundRobin))
			Expect(cfg.FreqMHz).To(Equal(48.0))
			Expect(cfg.AHBLiteCompat).To(BeTrue())
			Expect(cfg.MonitorPort).To(Equal(8080))
		})

		It("should prefer the environment over the file", func() {
			path := filepath.Join(GinkgoT().TempDir(), ".env")
			Expect(os.WriteFile(path,
				[]byte("AHBFABRIC_TRACE_DB=file\n"), 0o600)).To(Succeed())
			os.Setenv(EnvTraceDB, "env")

			cfg := DefaultConfig()
			Expect(ApplyEnv(&cfg, path)).To(Succeed())

			Expect(cfg.TraceDB).To(Equal("env"))
		})

		It("should ignore a missing .env file", func() {
			cfg := DefaultConfig()

			Expect(ApplyEnv(&cfg, "does/not/exist.env")).To(Succeed())
			Expect(cfg).To(Equal(DefaultConfig()))
		})

		It("should reject a bad value", func() {
			os.Setenv(EnvFreqMHz, "fast")

			cfg := DefaultConfig()
			Expect(ApplyEnv(&cfg, "")).To(HaveOccurred())
		})
	})

	DescribeTable("invalid topologies",
		func(mutate func(c *Config)) {
			cfg := DefaultConfig()
			mutate(&cfg)

			err := cfg.Validate()

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		},
		Entry("bad name", func(c *Config) { c.Masters[0].Name = "cpu" }),
		Entry("duplicate name", func(c *Config) { c.Slaves[0].Name = "CPU" }),
		Entry("no masters", func(c *Config) { c.Masters = nil }),
		Entry("unknown arbitration", func(c *Config) { c.Arbitration = "lottery" }),
		Entry("unknown aligner", func(c *Config) { c.Masters[0].Aligner = "pad" }),
		Entry("empty slave", func(c *Config) { c.Slaves[0].End = c.Slaves[0].Start }),
		Entry("overlapping slaves", func(c *Config) {
			c.Slaves = append(c.Slaves, SlaveConfig{
				Name: "ROM", Start: 0x2000_8000, End: 0x2002_0000,
			})
		}),
		Entry("unknown op", func(c *Config) {
			c.Masters[0].Traffic = []TransferConfig{{Op: "swap", Size: 4}}
		}),
		Entry("bad size", func(c *Config) {
			c.Masters[0].Traffic = []TransferConfig{{Op: "read", Size: 3}}
		}),
		Entry("default master out of range", func(c *Config) {
			c.DefaultMaster = 1
		}),
	)
})
