// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPumpPreservesOrder(t *testing.T) {
	sink := &BufferSink{}
	slow := SinkFunc(func(s string) {
		time.Sleep(100 * time.Microsecond)
		sink.Append(s)
	})
	p := NewPump(slow)
	defer p.Close()

	var want []string
	for i := 0; i < 200; i++ {
		s := fmt.Sprint(i)
		want = append(want, s)
		p.Append(s)
	}
	p.Flush()
	assert.Equal(t, want, sink.Chunks())
	assert.Equal(t, 0, p.Pending())
}

func TestPumpAppendDoesNotBlockOnSlowSink(t *testing.T) {
	release := make(chan struct{})
	p := NewPump(SinkFunc(func(string) { <-release }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			p.Append("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Append blocked on a stalled sink")
	}
	close(release)
	p.Close()
}

func TestPumpDoRunsAfterEarlierDeltas(t *testing.T) {
	sink := &BufferSink{}
	p := NewPump(sink)
	defer p.Close()

	var seen string
	p.Append("a")
	p.Append("b")
	p.Do(func() { seen = sink.String() })
	p.Flush()
	assert.Equal(t, "ab", seen)
}

func TestPumpCloseDrainsAndDropsLater(t *testing.T) {
	sink := &BufferSink{}
	p := NewPump(sink)
	p.Append("a")
	p.Close()
	p.Append("b")
	require.Equal(t, []string{"a"}, sink.Chunks())
	p.Close()
}
