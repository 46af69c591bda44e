package stats

import (
	"expvar"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// StatsProvider is the counter surface the hub reports into. Incr and Decr
// are safe to call from any goroutine and never block the caller.
type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater applies counter deltas from a single goroutine so hot paths
// (the hub loop, the read pumps) only pay for a channel send.
type StatsUpdater struct {
	vars     *expvar.Map
	counters map[string]*expvar.Int
	deltas   chan metricDelta
	stopped  chan struct{}
	stopOnce sync.Once
}

type metricDelta struct {
	name  string
	delta int64
}

func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:     expvar.NewMap("studiohub-stats"),
		counters: make(map[string]*expvar.Int),
		deltas:   make(chan metricDelta, 512),
		stopped:  make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

// expvar.Map renders itself as a JSON object, Func values included.
func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintln(w, su.vars.String())
}

// RegisterMetric declares a counter before Run starts applying deltas.
// Registering the same name twice keeps the existing counter.
func (su *StatsUpdater) RegisterMetric(name string) {
	if _, ok := su.counters[name]; ok {
		return
	}

	counter := expvar.NewInt(name)
	su.counters[name] = counter
	su.vars.Set(name, counter)
}

func (su *StatsUpdater) applyDeltas() {
	for {
		select {
		case d := <-su.deltas:
			counter, ok := su.counters[d.name]
			if !ok {
				// deltas for unregistered counters are absorbed,
				// like every other internal no-op
				continue
			}

			counter.Add(d.delta)
		case <-su.stopped:
			return
		}
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.send(metricDelta{name: name, delta: 1})
}

func (su *StatsUpdater) Decr(name string) {
	su.send(metricDelta{name: name, delta: -1})
}

// send queues a delta without ever blocking the caller. Counters are best
// effort: a full buffer or a stopped updater drops the delta.
func (su *StatsUpdater) send(d metricDelta) {
	select {
	case <-su.stopped:
	case su.deltas <- d:
	default:
	}
}

func (su *StatsUpdater) Run() {
	go su.applyDeltas()
}

func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.stopped) })
}
