package batch

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/migr8/migr8/internal/report"
)

// Pressure levels. The ladder degrades gracefully: first in-flight
// concurrency shrinks, then optional diagnostic detail is shed.
// Correctness-relevant work is never dropped, only richness of reporting.
const (
	pressureNone = iota
	pressureReduce
	pressureShed
)

// pressureController samples heap usage against a configured ceiling and
// tells the coordinator how heavily to weigh each worker acquisition.
type pressureController struct {
	ceiling    uint64 // bytes; 0 disables the controller
	level      atomic.Int32
	lastSample atomic.Int64 // unix nanos
	shedLogged atomic.Bool
}

const sampleInterval = 250 * time.Millisecond

func newPressureController(ceilingMB int) *pressureController {
	var ceiling uint64
	if ceilingMB > 0 {
		ceiling = uint64(ceilingMB) << 20
	}
	return &pressureController{ceiling: ceiling}
}

// sample refreshes the pressure level at most once per interval.
func (p *pressureController) sample() int32 {
	if p.ceiling == 0 {
		return pressureNone
	}
	now := time.Now().UnixNano()
	last := p.lastSample.Load()
	if now-last < int64(sampleInterval) {
		return p.level.Load()
	}
	if !p.lastSample.CompareAndSwap(last, now) {
		return p.level.Load()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var lvl int32
	switch {
	case ms.HeapAlloc > p.ceiling:
		lvl = pressureShed
	case ms.HeapAlloc > p.ceiling*8/10:
		lvl = pressureReduce
	}
	p.level.Store(lvl)
	return lvl
}

// weight returns the semaphore weight for the next task. Heavier weights
// shrink effective parallelism while total capacity stays constant. At the
// shed level accumulated diagnostic detail is also dropped.
func (p *pressureController) weight(concurrency int, proj *report.Project) int64 {
	lvl := p.sample()
	switch lvl {
	case pressureReduce:
		runtime.Gosched()
		w := int64(2)
		if w > int64(concurrency) {
			w = int64(concurrency)
		}
		return w
	case pressureShed:
		if p.shedLogged.CompareAndSwap(false, true) {
			log.Printf("[batch] memory ceiling reached, shedding diagnostic detail")
		}
		proj.ShedDetails()
		runtime.Gosched()
		w := int64(4)
		if w > int64(concurrency) {
			w = int64(concurrency)
		}
		return w
	default:
		return 1
	}
}

// shedding reports whether new results should omit diagnostic detail.
func (p *pressureController) shedding() bool {
	return p.level.Load() >= pressureShed
}
