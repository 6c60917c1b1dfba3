package sweep

import "time"

// durationBuffer keeps a rolling window of recent combination run times
// and exposes their moving average for the completion estimate.
type durationBuffer struct {
	max int
	buf []time.Duration
}

func newDurationBuffer(max int) *durationBuffer {
	if max <= 0 {
		max = 10
	}
	return &durationBuffer{max: max}
}

func (p *durationBuffer) Add(v time.Duration) {
	p.buf = append(p.buf, v)
	if len(p.buf) > p.max {
		p.buf = p.buf[len(p.buf)-p.max:]
	}
}

func (p *durationBuffer) Len() int {
	return len(p.buf)
}

func (p *durationBuffer) Last() time.Duration {
	if len(p.buf) == 0 {
		return 0
	}
	return p.buf[len(p.buf)-1]
}

// Mean is the moving average over the window.
func (p *durationBuffer) Mean() time.Duration {
	if len(p.buf) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range p.buf {
		sum += d
	}
	return sum / time.Duration(len(p.buf))
}

// Estimate projects the time left for remaining combinations spread over
// workers.
func (p *durationBuffer) Estimate(remaining, workers int) time.Duration {
	if remaining <= 0 || len(p.buf) == 0 {
		return 0
	}
	if workers < 1 {
		workers = 1
	}
	rounds := (remaining + workers - 1) / workers
	return p.Mean() * time.Duration(rounds)
}
