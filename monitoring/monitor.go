// Package monitoring serves the state of a running fabric over HTTP. Every
// access to the model goes through the monitor's lock, so the fabric may be
// stepped from the server and from the simulation loop.
package monitoring

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sarchlab/ahbfabric/monitoring/web"
	"github.com/sarchlab/ahbfabric/sim"
	"github.com/sarchlab/ahbfabric/tracing"
)

// A Stepper is a clock that the monitor can advance.
type Stepper interface {
	sim.Named
	Step()
	CurrentCycle() uint64
	Now() sim.VTimeInSec
}

// Monitor puts a fabric behind a web server. The server can inspect the
// registered components and step the clock.
type Monitor struct {
	lock       sync.Mutex
	clock      Stepper
	components []sim.Named
	byName     map[string]sim.Named
	collector  *tracing.TransferCollector
	portNumber int

	barsLock sync.Mutex
	bars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		byName: make(map[string]sim.Named),
		bars:   []*ProgressBar{},
	}
}

// WithPortNumber sets the port of the server. Ports below 1000 are
// reserved, so they fall back to a random port; so does 0.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port %d is reserved, the monitor uses a random port.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterClock sets the clock that the monitor steps.
func (m *Monitor) RegisterClock(c Stepper) {
	m.clock = c
}

// RegisterComponent makes a component visible to the server.
func (m *Monitor) RegisterComponent(c sim.Named) {
	if _, found := m.byName[c.Name()]; found {
		return
	}

	m.components = append(m.components, c)
	m.byName[c.Name()] = c
}

// RegisterCollector sets the collector whose statistics are served.
func (m *Monitor) RegisterCollector(c *tracing.TransferCollector) {
	m.collector = c
}

// Step runs one cycle while holding the lock of the monitor.
func (m *Monitor) Step() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.clock.Step()
}

// Run runs n cycles. Requests to the server are served between cycles.
func (m *Monitor) Run(n uint64) {
	for range n {
		m.Step()
	}
}

// CreateProgressBar adds a bar to the web page.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.barsLock.Lock()
	m.bars = append(m.bars, bar)
	m.barsLock.Unlock()

	return bar
}

// CompleteProgressBar removes a bar from the web page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.barsLock.Lock()
	defer m.barsLock.Unlock()

	m.bars = slices.DeleteFunc(m.bars, func(b *ProgressBar) bool {
		return b == pb
	})
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/now", m.now)
	api.HandleFunc("/step/{n}", m.step)
	api.HandleFunc("/list_components", m.listComponents)
	api.HandleFunc("/component/{name}", m.componentDetails)
	api.HandleFunc("/field/{json}", m.fieldValue)
	api.HandleFunc("/progress", m.progress)
	api.HandleFunc("/transfers", m.transferStats)
	api.HandleFunc("/resource", m.resources)
	api.HandleFunc("/profile", m.profile)

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer listens on the port of the monitor and serves the router in
// the background. It returns the URL of the web page.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring the fabric at %s\n", url)

	go func() {
		dieOnErr(http.Serve(listener, m.Router()))
	}()

	return url, nil
}
