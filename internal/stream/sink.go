// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"
)

// =============================================================================
// OUTPUT SINK
// =============================================================================

// Sink receives text deltas. Append is called once per delta, in order, from
// a single goroutine.
type Sink interface {
	Append(text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string)

func (f SinkFunc) Append(text string) { f(text) }

// BufferSink collects deltas in memory. Safe for concurrent use.
type BufferSink struct {
	mu     sync.Mutex
	chunks []string
}

func (b *BufferSink) Append(text string) {
	b.mu.Lock()
	b.chunks = append(b.chunks, text)
	b.mu.Unlock()
}

// Chunks returns a copy of every delta received.
func (b *BufferSink) Chunks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.chunks...)
}

// String returns the concatenated deltas.
func (b *BufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.chunks, "")
}

// Reset clears the buffer.
func (b *BufferSink) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.mu.Unlock()
}

// =============================================================================
// PUMP
// =============================================================================

// pumpItem is a delta or a callback queued behind the deltas before it.
type pumpItem struct {
	text string
	fn   func()
}

// Pump decouples the read loop from a slow Sink. Append never blocks on the
// consumer: items go to an unbounded FIFO drained by one goroutine, so
// delivery order always equals Append order.
type Pump struct {
	sink Sink

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []pumpItem
	busy   bool
	closed bool
	done   chan struct{}
}

// NewPump starts a pump delivering to sink.
func NewPump(sink Sink) *Pump {
	p := &Pump{sink: sink, done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// Append queues a delta. Deltas appended after Close are dropped.
func (p *Pump) Append(text string) {
	p.enqueue(pumpItem{text: text})
}

// Do queues fn to run on the delivery goroutine after every delta queued
// before it.
func (p *Pump) Do(fn func()) {
	p.enqueue(pumpItem{fn: fn})
}

func (p *Pump) enqueue(it pumpItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, it)
	p.cond.Broadcast()
}

func (p *Pump) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		batch := p.queue
		p.queue = nil
		p.busy = true
		p.mu.Unlock()

		for _, it := range batch {
			if it.fn != nil {
				it.fn()
				continue
			}
			p.sink.Append(it.text)
		}

		p.mu.Lock()
		p.busy = false
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// Pending returns the number of queued items not yet delivered.
func (p *Pump) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Flush blocks until everything queued so far has been delivered. It must
// not be called from inside the Sink.
func (p *Pump) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 || p.busy {
		p.cond.Wait()
	}
}

// Close delivers what is already queued and stops the pump.
func (p *Pump) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	<-p.done
}
