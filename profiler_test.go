package depthsort

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_ScopesAndAverages(t *testing.T) {
	p := NewProfiler()
	for i := 0; i < 2; i++ {
		p.Begin("sort")
		time.Sleep(time.Millisecond)
		p.End("sort")
		p.Begin("transform")
		p.End("transform")
		p.EndFrame()
	}
	p.SetCount("passes", 10)

	assert.Equal(t, 2, p.Frames())
	assert.GreaterOrEqual(t, p.Last("sort"), time.Millisecond)
	assert.GreaterOrEqual(t, p.Average("sort"), time.Millisecond)
	assert.Equal(t, 10, p.Count("passes"))

	s := p.String()
	assert.Less(t, strings.Index(s, "sort"), strings.Index(s, "transform"), "first-use order")
	assert.Contains(t, s, "passes")
}

func TestProfiler_UnmatchedEndAndReset(t *testing.T) {
	p := NewProfiler()
	p.End("never")
	assert.Zero(t, p.Last("never"))
	assert.Zero(t, p.Average("never"))

	p.Begin("x")
	p.End("x")
	p.EndFrame()
	p.Reset()
	assert.Zero(t, p.Frames())
	assert.Zero(t, p.Last("x"))
	assert.Contains(t, p.String(), "x")
}
