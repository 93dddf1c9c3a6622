package simulation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// ErrInvalidConfig is wrapped by every validation error of a topology.
var ErrInvalidConfig = errors.New("invalid topology")

// Arbitration schemes of the output stages.
const (
	ArbitrationFixed      = "fixed"
	ArbitrationRoundRobin = "round_robin"
)

// Aligner modes of a master.
const (
	AlignerNone     = "none"
	AlignerSplit    = "split"
	AlignerTruncate = "truncate"
)

// Config describes a fabric: the masters, the slaves, and how the masters
// share the slaves.
type Config struct {
	Name          string         `yaml:"name"`
	FreqMHz       float64        `yaml:"freq_mhz"`
	Arbitration   string         `yaml:"arbitration"`
	DefaultMaster int            `yaml:"default_master"`
	AHBLiteCompat bool           `yaml:"ahb_lite_compat"`
	LogTransfers  bool           `yaml:"log_transfers"`
	TraceDB       string         `yaml:"trace_db"`
	TraceWires    bool           `yaml:"trace_wires"`
	MonitorPort   int            `yaml:"monitor_port"`
	UniqueIDs     bool           `yaml:"unique_ids"`
	Masters       []MasterConfig `yaml:"masters"`
	Slaves        []SlaveConfig  `yaml:"slaves"`
}

// MasterConfig describes a master and the translators in front of it.
type MasterConfig struct {
	Name           string           `yaml:"name"`
	Bitband        bool             `yaml:"bitband"`
	Aligner        string           `yaml:"aligner"`
	TruncateRanges []RangeConfig    `yaml:"truncate_ranges"`
	Traffic        []TransferConfig `yaml:"traffic"`
}

// SlaveConfig describes a memory slave that serves [Start, End).
type SlaveConfig struct {
	Name            string        `yaml:"name"`
	Start           uint32        `yaml:"start"`
	End             uint32        `yaml:"end"`
	ReadWaitstates  int           `yaml:"read_waitstates"`
	WriteWaitstates int           `yaml:"write_waitstates"`
	ErrorRanges     []RangeConfig `yaml:"error_ranges"`
}

// RangeConfig is the half-open address range [Start, End).
type RangeConfig struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

func (r RangeConfig) addrRange() ahb.AddrRange {
	return ahb.AddrRange{Start: r.Start, End: r.End}
}

// TransferConfig is one scripted transfer. Op is "read", "write" or
// "idle"; an idle entry keeps the master quiet for Cycles cycles.
type TransferConfig struct {
	Op     string `yaml:"op"`
	Addr   uint32 `yaml:"addr"`
	Size   uint32 `yaml:"size"`
	Data   uint32 `yaml:"data"`
	Cycles int    `yaml:"cycles"`
}

// DefaultConfig returns a fabric with one master and one 64 KiB SRAM at the
// bottom of the SRAM bit-band region.
func DefaultConfig() Config {
	return Config{
		Name:        "Fabric",
		FreqMHz:     100,
		Arbitration: ArbitrationFixed,
		Masters: []MasterConfig{
			{Name: "CPU", Bitband: true, Aligner: AlignerSplit},
		},
		Slaves: []SlaveConfig{
			{Name: "SRAM", Start: 0x2000_0000, End: 0x2001_0000},
		},
	}
}

// ParseConfig parses a YAML topology. Missing top-level fields keep the
// values of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.Masters = nil
	cfg.Slaves = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse topology: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads and parses a YAML topology file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read topology: %w", err)
	}

	return ParseConfig(data)
}

// The environment variables that override a topology.
const (
	EnvArbitration = "AHBFABRIC_ARBITRATION"
	EnvFreqMHz     = "AHBFABRIC_FREQ_MHZ"
	EnvLiteCompat  = "AHBFABRIC_AHB_LITE_COMPAT"
	EnvTraceDB     = "AHBFABRIC_TRACE_DB"
	EnvMonitorPort = "AHBFABRIC_MONITOR_PORT"
)

// ApplyEnv loads envFile, if it exists, into the environment and applies the
// AHBFABRIC_* variables to the config. Variables already set in the
// environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		_, err := os.Stat(envFile)

		switch {
		case err == nil:
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv(EnvArbitration); ok {
		cfg.Arbitration = v
	}

	if v, ok := os.LookupEnv(EnvTraceDB); ok {
		cfg.TraceDB = v
	}

	if v, ok := os.LookupEnv(EnvFreqMHz); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFreqMHz, err)
		}

		cfg.FreqMHz = f
	}

	if v, ok := os.LookupEnv(EnvLiteCompat); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLiteCompat, err)
		}

		cfg.AHBLiteCompat = b
	}

	if v, ok := os.LookupEnv(EnvMonitorPort); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonitorPort, err)
		}

		cfg.MonitorPort = p
	}

	return nil
}

// Validate checks the config. The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error

	fail := func(format string, args ...any) {
		errs = append(errs,
			fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	names := map[string]bool{}
	checkName := func(kind, name string) {
		if err := nameError(name); err != "" {
			fail("%s name %q: %s", kind, name, err)
		}

		if names[name] {
			fail("duplicate name %q", name)
		}

		names[name] = true
	}

	if err := nameError(c.Name); err != "" {
		fail("fabric name %q: %s", c.Name, err)
	}

	if c.FreqMHz <= 0 {
		fail("frequency must be positive")
	}

	switch c.Arbitration {
	case ArbitrationFixed, ArbitrationRoundRobin:
	default:
		fail("unknown arbitration %q", c.Arbitration)
	}

	if len(c.Masters) == 0 {
		fail("no masters")
	}

	if len(c.Slaves) == 0 {
		fail("no slaves")
	}

	if c.DefaultMaster < 0 || c.DefaultMaster >= max(len(c.Masters), 1) {
		fail("default master %d out of range", c.DefaultMaster)
	}

	for _, m := range c.Masters {
		checkName("master", m.Name)
		c.validateMaster(m, fail)
	}

	for i, s := range c.Slaves {
		checkName("slave", s.Name)

		if s.Start >= s.End {
			fail("slave %s has an empty range", s.Name)
		}

		if s.ReadWaitstates < 0 || s.WriteWaitstates < 0 {
			fail("slave %s has negative wait-states", s.Name)
		}

		for _, o := range c.Slaves[:i] {
			if s.Start < o.End && o.Start < s.End {
				fail("slave %s overlaps slave %s", s.Name, o.Name)
			}
		}
	}

	return errors.Join(errs...)
}

func (c Config) validateMaster(m MasterConfig, fail func(string, ...any)) {
	switch m.Aligner {
	case "", AlignerNone, AlignerSplit, AlignerTruncate:
	default:
		fail("master %s: unknown aligner %q", m.Name, m.Aligner)
	}

	for i, t := range m.Traffic {
		switch t.Op {
		case "read", "write":
		case "idle":
			continue
		default:
			fail("master %s, transfer %d: unknown op %q", m.Name, i, t.Op)
			continue
		}

		switch ahb.Size(t.Size) {
		case ahb.SizeByte, ahb.SizeHalfword, ahb.SizeWord:
		default:
			fail("master %s, transfer %d: bad size %d", m.Name, i, t.Size)
		}
	}
}

func nameError(name string) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = strings.TrimSpace(fmt.Sprint(r))
		}
	}()

	sim.NameMustBeValid(name)

	return ""
}
