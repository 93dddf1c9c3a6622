package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

type nowRsp struct {
	Cycle uint64  `json:"cycle"`
	Now   float64 `json:"now"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := nowRsp{
		Cycle: m.clock.CurrentCycle(),
		Now:   float64(m.clock.Now()),
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(mux.Vars(r)["n"], 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	m.Run(n)
	m.now(w, r)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, len(m.components))
	for i, c := range m.components {
		names[i] = c.Name()
	}

	writeJSON(w, names)
}

func (m *Monitor) componentDetails(w http.ResponseWriter, r *http.Request) {
	m.serialize(w, mux.Vars(r)["name"], nil)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}
	if err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	m.serialize(w, req.CompName, strings.Split(req.FieldName, "."))
}

// serialize writes one level of the state of a component, starting from
// the field at path, or from the component itself if path is nil.
func (m *Monitor) serialize(w http.ResponseWriter, name string, path []string) {
	c, found := m.byName[name]
	if !found {
		httpError(w, http.StatusNotFound,
			fmt.Errorf("component %q not found", name))
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	s := goseth.NewSerializer()
	s.SetRoot(c)
	s.SetMaxDepth(1)

	if path != nil {
		if err := s.SetEntryPoint(path); err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	dieOnErr(s.Serialize(w))
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	m.barsLock.Lock()
	rsp := make([]progressRsp, 0, len(m.bars))
	for _, b := range m.bars {
		rsp = append(rsp, b.snapshot())
	}
	m.barsLock.Unlock()

	writeJSON(w, rsp)
}

type transferRsp struct {
	Done           uint64  `json:"done"`
	InFlight       int     `json:"in_flight"`
	AverageLatency float64 `json:"average_latency"`
}

func (m *Monitor) transferStats(w http.ResponseWriter, _ *http.Request) {
	if m.collector == nil {
		httpError(w, http.StatusNotFound,
			fmt.Errorf("transfers are not collected"))
		return
	}

	writeJSON(w, transferRsp{
		Done:           m.collector.NumDone(),
		InFlight:       m.collector.NumInFlight(),
		AverageLatency: m.collector.AverageLatency(),
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) resources(w http.ResponseWriter, _ *http.Request) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, resourceRsp{CPUPercent: cpu, MemorySize: mem.RSS})
}

// profile samples the CPU for a second, or for the number of seconds in
// the query.
func (m *Monitor) profile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second

	if s := r.URL.Query().Get("seconds"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest,
				fmt.Errorf("bad profile duration %q", s))
			return
		}

		duration = time.Duration(n) * time.Second
	}

	buf := &bytes.Buffer{}
	if err := pprof.StartCPUProfile(buf); err != nil {
		httpError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(duration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	fmt.Fprintf(w, "Error: %s", err)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
