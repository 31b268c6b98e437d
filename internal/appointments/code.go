package appointments

import (
	"sync"
	"time"
)

const codeLayout = "020106150405"

// CodeGenerator issues AG+DDMMYYHHMMSS booking codes. Two calls within the
// same second get consecutive seconds so a process never repeats a code.
type CodeGenerator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewCodeGenerator(now func() time.Time) *CodeGenerator {
	if now == nil {
		now = time.Now
	}
	return &CodeGenerator{now: now}
}

func (g *CodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.now().Truncate(time.Second)
	if !t.After(g.last) {
		t = g.last.Add(time.Second)
	}
	g.last = t
	return "AG" + t.Format(codeLayout)
}
