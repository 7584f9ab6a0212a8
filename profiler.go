package depthsort

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps wall-clock timings of named frame scopes plus a few counters.
// Scopes are reported in first-use order.
type Profiler struct {
	last   map[string]time.Duration
	total  map[string]time.Duration
	starts map[string]time.Time
	counts map[string]int
	order  []string
	frames int
}

func NewProfiler() *Profiler {
	return &Profiler{
		last:   make(map[string]time.Duration),
		total:  make(map[string]time.Duration),
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
	}
}

func (p *Profiler) Begin(name string) {
	if _, seen := p.total[name]; !seen {
		p.order = append(p.order, name)
		p.total[name] = 0
	}
	p.starts[name] = time.Now()
}

// End closes a scope opened by Begin. Unmatched calls are ignored.
func (p *Profiler) End(name string) {
	start, ok := p.starts[name]
	if !ok {
		return
	}
	delete(p.starts, name)
	d := time.Since(start)
	p.last[name] = d
	p.total[name] += d
}

func (p *Profiler) SetCount(name string, n int) { p.counts[name] = n }
func (p *Profiler) Count(name string) int       { return p.counts[name] }

// EndFrame marks the end of one frame for averaging.
func (p *Profiler) EndFrame() { p.frames++ }

func (p *Profiler) Frames() int { return p.frames }

func (p *Profiler) Last(name string) time.Duration { return p.last[name] }

func (p *Profiler) Average(name string) time.Duration {
	if p.frames == 0 {
		return 0
	}
	return p.total[name] / time.Duration(p.frames)
}

// Reset clears timings and the frame count but keeps scope order.
func (p *Profiler) Reset() {
	for _, name := range p.order {
		p.last[name] = 0
		p.total[name] = 0
	}
	p.frames = 0
}

func (p *Profiler) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "timings over %d frames (last / avg):\n", p.frames)
	for _, name := range p.order {
		fmt.Fprintf(&sb, "  %-10s: %.2f ms / %.2f ms\n", name, ms(p.last[name]), ms(p.Average(name)))
	}

	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-10s: %d\n", k, p.counts[k])
	}
	return sb.String()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
