package sentence

import "sync/atomic"

// Generator hands out sentence IDs. IDs are never reused within a process.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next() uint64 {
	return atomic.AddUint64(&g.counter, 1)
}
