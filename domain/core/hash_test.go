package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashTraces(t *testing.T) {
	a := map[string][]float64{"mu": {1, 2, 3}, "tau": {0.5, 0.25}}
	b := map[string][]float64{"tau": {0.5, 0.25}, "mu": {1, 2, 3}}

	assert.Equal(t, HashTraces(a), HashTraces(b))
	assert.Len(t, HashTraces(a).String(), 64)
	assert.Len(t, HashTraces(a).Short(), 12)

	b["mu"] = []float64{1, 2, 3.0000001}
	assert.NotEqual(t, HashTraces(a), HashTraces(b))
}

func TestHashTracesSplitsNames(t *testing.T) {
	a := map[string][]float64{"ab": {1}, "c": {2}}
	b := map[string][]float64{"a": {1}, "bc": {2}}
	assert.NotEqual(t, HashTraces(a), HashTraces(b))
}

func TestNewHash(t *testing.T) {
	assert.True(t, Hash("").IsEmpty())
	assert.Equal(t, NewHash([]byte("x")), NewHash([]byte("x")))
}
