package diagnostics

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohbm/domain/core"
	"gohbm/domain/node"
	"gohbm/internal"
	"gohbm/internal/testkit"
)

func TestGeweke_StationaryChain(t *testing.T) {
	scores, err := Geweke(testkit.Periodic(1000, 0, 1, 4), DefaultGewekeOptions())
	require.NoError(t, err)

	require.Len(t, scores, 20)
	assert.Equal(t, 0, scores[0].Start)
	assert.Equal(t, 26, scores[1].Start)
	assert.Less(t, MaxAbsZ(scores), 0.5)
	assert.Greater(t, scores[0].PValue(), 0.5)
}

func TestGeweke_TrendingChain(t *testing.T) {
	scores, err := Geweke(testkit.Trending(1000, 10), DefaultGewekeOptions())
	require.NoError(t, err)

	for _, s := range scores {
		assert.Greater(t, -s.Z, DefaultZThreshold, "start %d", s.Start)
	}
}

func TestGeweke_InvalidInput(t *testing.T) {
	_, err := Geweke(testkit.Periodic(20, 0, 1, 4), DefaultGewekeOptions())
	assert.ErrorIs(t, err, core.ErrTraceTooShort)

	_, err = Geweke(testkit.Periodic(1000, 0, 1, 4), GewekeOptions{First: 0.6, Last: 0.5, Intervals: 20})
	assert.True(t, core.IsInvalidInput(err))

	_, err = Geweke(testkit.Periodic(1000, 0, 1, 4), GewekeOptions{First: 0.1, Last: 0.5, Intervals: 1})
	assert.True(t, core.IsInvalidInput(err))
}

func gewekeModel(bad ...string) node.Nodes {
	n := 1000
	traces := map[string][]float64{
		"a":        testkit.Periodic(n, 1, 1, 4),
		"t":        testkit.Periodic(n, 2, 1, 4),
		"a1":       testkit.Trending(n, 10),
		"deviance": testkit.Trending(n, 10),
	}
	order := []string{"t", "a", "a1", "deviance"}
	for _, name := range bad {
		traces[name] = testkit.Trending(n, 10)
		order = append(order, name)
	}
	return testkit.Model(traces, order...)
}

func newTestChecker() (*GewekeChecker, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewGewekeChecker(internal.NewLoggerTo(&buf, internal.LogLevelWarn)), &buf
}

func TestCheck_ReportAllConverged(t *testing.T) {
	c, buf := newTestChecker()

	ok, err := c.Check(gewekeModel(), PolicyReport)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, buf.String())
}

func TestCheck_ReportWarns(t *testing.T) {
	c, buf := newTestChecker()

	ok, err := c.Check(gewekeModel("z", "v"), PolicyReport)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Chain of v not properly converged")
	assert.Contains(t, buf.String(), "Chain of z not properly converged")
}

func TestCheck_StrictListsEveryFailure(t *testing.T) {
	c, _ := newTestChecker()

	ok, err := c.Check(gewekeModel("z", "v"), PolicyStrict)
	assert.False(t, ok)

	var cf *core.ConvergenceFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, []string{"v", "z"}, cf.Params)
	assert.True(t, core.IsConvergenceFailure(err))
}

func TestCheckFirst_StopsAtFirstFailure(t *testing.T) {
	c, buf := newTestChecker()

	ok, err := c.CheckFirst(gewekeModel("z", "v"), PolicyStrict)
	assert.False(t, ok)
	var cf *core.ConvergenceFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, []string{"v"}, cf.Params)

	ok, err = c.CheckFirst(gewekeModel("z", "v"), PolicyReport)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Chain of v")
	assert.NotContains(t, buf.String(), "Chain of z")

	ok, err = c.CheckFirst(gewekeModel(), PolicyStrict)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_GroupParamsInNameOrder(t *testing.T) {
	c, _ := newTestChecker()

	results, err := c.Evaluate(gewekeModel("v"))
	require.NoError(t, err)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Param
	}
	assert.Equal(t, []string{"a", "t", "v"}, names)
	assert.True(t, results[0].Converged)
	assert.False(t, results[2].Converged)
}

func TestGeweke_NonFiniteSamples(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		tr := testkit.Periodic(1000, 0, 1, 4)
		tr[10] = bad

		_, err := Geweke(tr, DefaultGewekeOptions())
		assert.ErrorIs(t, err, core.ErrNonFinite)
		assert.True(t, core.IsInvalidInput(err))
	}
}

func TestCheck_NaNTraceIsNotConverged(t *testing.T) {
	tr := testkit.Periodic(1000, 0, 1, 4)
	tr[10] = math.NaN()
	model := testkit.Model(map[string][]float64{"mu": tr}, "mu")

	checker := NewGewekeChecker(internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError))
	ok, err := checker.Check(model, PolicyReport)
	assert.False(t, ok)
	assert.True(t, core.IsInvalidInput(err))
}

func TestMaxAbsZ_NaNScore(t *testing.T) {
	scores := []ZScore{{Start: 0, Z: 0.5}, {Start: 5, Z: math.NaN()}, {Start: 10, Z: -3}}
	assert.True(t, math.IsNaN(MaxAbsZ(scores)))
	assert.Equal(t, 3.0, MaxAbsZ([]ZScore{{Z: 0.5}, {Z: -3}}))
}
