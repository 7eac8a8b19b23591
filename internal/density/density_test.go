package density

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohbm/domain/core"
	"gohbm/internal"
	"gohbm/internal/testkit"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)
}

func TestGroupDensities_PanelPerGroupWithSubjects(t *testing.T) {
	model := testkit.Model(map[string][]float64{
		"v":     {0, 1, 2, 3},
		"v1":    {0, 0, 1, 1},
		"v2":    {2, 3, 3, 4},
		"a(1)":  {1, 2},
		"a(1)3": {1, 1},
		"mu":    {5, 6},
	}, "mu", "v2", "v", "v1", "a(1)", "a(1)3")

	panels, err := GroupDensities(model, 4, quietLogger())
	require.NoError(t, err)
	require.Len(t, panels, 2)

	assert.Equal(t, "a(1)", panels[0].Name)
	assert.Equal(t, "v", panels[1].Name)

	v := panels[1]
	assert.InDeltaSlice(t, []float64{0, 4.0 / 3, 8.0 / 3, 4}, v.X, 1e-12)
	require.Len(t, v.Subjects, 2)
	assert.Equal(t, "1", v.Subjects[0].Label)
	assert.Equal(t, "2", v.Subjects[1].Label)

	// each density integrates to one over the shared range
	width := 1.0
	for _, series := range append(v.Subjects, v.Group) {
		sum := 0.0
		for _, y := range series.Y {
			sum += y * width
		}
		assert.InDelta(t, 1.0, sum, 1e-9, series.Label)
	}
}

func TestGroupDensities_ConstantTraces(t *testing.T) {
	model := testkit.Model(map[string][]float64{
		"t":  testkit.Constant(10, 2),
		"t1": testkit.Constant(10, 2),
	}, "t", "t1")

	panels, err := GroupDensities(model, 5, quietLogger())
	require.NoError(t, err)
	require.Len(t, panels, 1)
	assert.Equal(t, 2.0, panels[0].X[0])
	assert.InDelta(t, 3.0, panels[0].X[4], 1e-12)
}

func TestGroupDensities_InvalidInput(t *testing.T) {
	model := testkit.Model(map[string][]float64{"t": nil, "t1": {1}}, "t", "t1")

	_, err := GroupDensities(model, 5, quietLogger())
	assert.ErrorIs(t, err, core.ErrEmptyTrace)

	_, err = GroupDensities(model, 1, quietLogger())
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
}
