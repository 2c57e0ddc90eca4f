package profiling

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight per-frame CPU profiler. The render thread records into the
// current frame; other goroutines read the last completed one.

// Frame is one completed frame of timings and counters.
type Frame struct {
	Index    uint64
	Duration time.Duration
	Timings  map[string]time.Duration
	Counters map[string]int
}

type Profiler struct {
	mu       sync.Mutex
	index    uint64
	start    time.Time
	timings  map[string]time.Duration
	counters map[string]int
	last     Frame
	now      func() time.Time
}

func New() *Profiler {
	p := &Profiler{
		timings:  make(map[string]time.Duration),
		counters: make(map[string]int),
		now:      time.Now,
	}
	p.start = p.now()
	return p
}

// Track returns a stop function that records the elapsed time under name.
// Usage: defer p.Track("renderer.world")()
func (p *Profiler) Track(name string) func() {
	start := p.now()
	return func() {
		d := p.now().Sub(start)
		p.mu.Lock()
		p.timings[name] += d
		p.mu.Unlock()
	}
}

// Count adds n to the counter name for the current frame.
func (p *Profiler) Count(name string, n int) {
	p.mu.Lock()
	p.counters[name] += n
	p.mu.Unlock()
}

// EndFrame publishes the current frame and starts the next one.
func (p *Profiler) EndFrame() {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index++
	p.last = Frame{
		Index:    p.index,
		Duration: now.Sub(p.start),
		Timings:  p.timings,
		Counters: p.counters,
	}
	p.timings = make(map[string]time.Duration, len(p.last.Timings))
	p.counters = make(map[string]int, len(p.last.Counters))
	p.start = now
}

// Last returns a copy of the last completed frame.
func (p *Profiler) Last() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.last
	f.Timings = make(map[string]time.Duration, len(p.last.Timings))
	for k, v := range p.last.Timings {
		f.Timings[k] = v
	}
	f.Counters = make(map[string]int, len(p.last.Counters))
	for k, v := range p.last.Counters {
		f.Counters[k] = v
	}
	return f
}

// TopN formats the top N durations of the last completed frame.
// Example: "renderer.world:4.2ms, renderer.ui:2.1ms"
func (p *Profiler) TopN(n int) string {
	ss := p.Last().Timings
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur == list[j].dur {
			return list[i].name < list[j].name
		}
		return list[i].dur > list[j].dur
	})
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ms := float64(list[i].dur.Microseconds()) / 1000.0
		parts = append(parts, list[i].name+":"+FormatMs(ms))
	}
	return strings.Join(parts, ", ")
}

// FormatMs keeps one decimal and drops ".0".
func FormatMs(ms float64) string {
	return trimTrailingZerosF(ms) + "ms"
}

func trimTrailingZerosF(f float64) string {
	whole := int64(f)
	frac := int64((f-float64(whole))*10.0 + 0.0001)
	if frac <= 0 {
		return itoa(whole)
	}
	return itoa(whole) + "." + itoa(frac)
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := false
	if i < 0 {
		neg = true
		i = -i
	}
	buf := make([]byte, 0, 20)
	for i > 0 {
		d := i % 10
		buf = append(buf, byte('0'+d))
		i /= 10
	}
	// reverse
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}
