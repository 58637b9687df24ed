// Package monitoring serves a running flood simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/mesh"
	"github.com/sarchlab/meshflood/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a simulation into a server that exposes the node layout, the
// receipt history and a stop switch.
type Monitor struct {
	network     *mesh.Network
	history     *history.Log
	stepCounter *tracing.StepCountTracer
	stopFunc    func()
	portNumber  int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterNetwork registers the network whose nodes are shown.
func (m *Monitor) RegisterNetwork(nw *mesh.Network) {
	m.network = nw
}

// RegisterHistory registers the receipt log.
func (m *Monitor) RegisterHistory(l *history.Log) {
	m.history = l
}

// RegisterStepCounter registers the tracer whose counts are served.
func (m *Monitor) RegisterStepCounter(t *tracing.StepCountTracer) {
	m.stepCounter = t
}

// RegisterStopFunc sets the function called by the stop endpoint.
func (m *Monitor) RegisterStopFunc(f func()) {
	m.stopFunc = f
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        mesh.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves every monitoring endpoint.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{addr}", m.nodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/history", m.listHistory)
	r.HandleFunc("/api/history/{addr}", m.listReporterHistory)
	r.HandleFunc("/api/received", m.listReceived)
	r.HandleFunc("/api/lines", m.listLines)
	r.HandleFunc("/api/steps", m.listSteps)
	r.HandleFunc("/api/stop", m.stop)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		port)

	go func() {
		err := http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	if m.network == nil {
		writeJSON(w, mesh.NodesMap{})
		return
	}

	writeJSON(w, m.network.NodesMap())
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	node := m.findNodeOr404(w, mux.Vars(r)["addr"])
	if node == nil {
		return
	}

	info := node.Info()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&info)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	NodeAddr  string `json:"node_addr,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	node := m.findNodeOr404(w, req.NodeAddr)
	if node == nil {
		return
	}

	info := node.Info()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&info)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findNodeOr404(
	w http.ResponseWriter,
	addrString string,
) *mesh.Node {
	addr, err := strconv.Atoi(addrString)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return nil
	}

	var node *mesh.Node
	if m.network != nil {
		node, _ = m.network.Node(mesh.Address(addr))
	}

	if node == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Node not found"))
		dieOnErr(err)
	}

	return node
}

func (m *Monitor) listHistory(w http.ResponseWriter, _ *http.Request) {
	if m.history == nil {
		writeJSON(w, []history.Record{})
		return
	}

	writeJSON(w, m.history.Records())
}

func (m *Monitor) listReporterHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := strconv.Atoi(mux.Vars(r)["addr"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	records := []history.Record{}
	if m.history != nil {
		records = append(records, m.history.ByReporter(addr)...)
	}

	writeJSON(w, records)
}

type receivedCount struct {
	Reporter int `json:"reporter"`
	Count    int `json:"count"`
}

func (m *Monitor) listReceived(w http.ResponseWriter, _ *http.Request) {
	counts := []receivedCount{}

	if m.history != nil {
		for reporter, count := range m.history.ReceivedCount() {
			counts = append(counts, receivedCount{
				Reporter: reporter,
				Count:    count,
			})
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Reporter < counts[j].Reporter
	})

	writeJSON(w, counts)
}

func (m *Monitor) listLines(w http.ResponseWriter, r *http.Request) {
	onlyAccepted := r.URL.Query().Get("accepted") == "true"

	lines := []history.Line{}
	if m.history != nil {
		lines = append(lines, m.history.Lines(onlyAccepted)...)
	}

	writeJSON(w, lines)
}

type stepCount struct {
	Step    string `json:"step"`
	Count   uint64 `json:"count"`
	Packets uint64 `json:"packets"`
}

func (m *Monitor) listSteps(w http.ResponseWriter, _ *http.Request) {
	steps := []stepCount{}

	if m.stepCounter != nil {
		for _, name := range m.stepCounter.GetStepNames() {
			steps = append(steps, stepCount{
				Step:    name,
				Count:   m.stepCounter.GetStepCount(name),
				Packets: m.stepCounter.GetPacketCount(name),
			})
		}
	}

	writeJSON(w, steps)
}

func (m *Monitor) stop(w http.ResponseWriter, _ *http.Request) {
	if m.stopFunc == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	m.stopFunc()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
