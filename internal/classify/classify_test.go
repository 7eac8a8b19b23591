package classify

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohbm/domain/core"
	"gohbm/domain/node"
)

func model(names ...string) node.Nodes {
	out := make(node.Nodes, len(names))
	for i, name := range names {
		out[i] = node.New(name, []float64{float64(i)})
	}
	return out
}

func TestGroupNodes_IncludesOnlyUnindexedNames(t *testing.T) {
	nodes := model("mu", "v1", "sigma", "a(1)12", "x_1", "Metropolis_mu", "deviance", "v2", "tau")

	got := GroupNodes(nodes)

	assert.Equal(t, []string{"mu", "sigma", "x_1", "tau"}, got.Names())
}

func TestGroupNodeMap_KeepsKeys(t *testing.T) {
	m := model("mu", "v1", "sigma", "deviance").ToMap()

	got := GroupNodeMap(m)

	assert.Equal(t, []string{"mu", "sigma"}, got.Keys())
	assert.Same(t, m["mu"], got["mu"])
}

func TestSubjectIndices(t *testing.T) {
	assert.Equal(t, []int{1, 2}, SubjectIndices(model("v1", "v2", "mu")))
	assert.Equal(t, []int{1, 2}, SubjectIndicesOf(model("v1", "a2", "v2", "mu").ToMap()))
	assert.Empty(t, SubjectIndices(model("mu", "sigma")))
	// any trailing digit run counts
	assert.Equal(t, []int{1}, SubjectIndices(model("x_1")))
}

func TestSubjectNodes_GroupSentinelMatchesGroupNodes(t *testing.T) {
	inputs := []node.Nodes{
		model("mu", "v1", "v2", "sigma"),
		model("a(1)12", "deviance", "tau"),
		model(),
	}

	for _, nodes := range inputs {
		got, err := SubjectNodes(nodes, GroupLevel())
		require.NoError(t, err)
		assert.Equal(t, GroupNodes(nodes).Names(), got.Names())

		gotMap, err := SubjectNodeMap(nodes.ToMap(), GroupLevel())
		require.NoError(t, err)
		assert.Equal(t, GroupNodeMap(nodes.ToMap()).Keys(), gotMap.Keys())
	}
}

func TestSubjectNodes_SingleSubject(t *testing.T) {
	nodes := model("v1", "v2", "a2", "v12", "v02", "mu", "va2", "vb3")

	got, err := SubjectNodes(nodes, Subject("", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "a2", "va2"}, got.Names())

	// the prefix precedes the letter that introduces the subject digits
	got, err = SubjectNodes(nodes, Subject("v", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"va2"}, got.Names())
}

func TestSubjectNodes_AllSubjects(t *testing.T) {
	nodes := model("v1", "mu", "a2", "v12", "x_3")

	got, err := SubjectNodes(nodes, AllSubjects(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "a2", "v12"}, got.Names())

	got, err = SubjectNodes(nodes, AllSubjects("v"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubjectNodes_PrefixWithParentheses(t *testing.T) {
	nodes := model("a(b2", "a(b12", "a(b3", "ab2", "c2")

	got, err := SubjectNodes(nodes, Subject("a(", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"a(b2"}, got.Names())

	// unescaped, the same pattern does not compile
	_, err = regexp.Compile("a(" + subjectMarker + "2$")
	assert.Error(t, err)
}

func TestSubjectNodeMap_PrefixWithClosedParentheses(t *testing.T) {
	m := model("a(1)2", "a(1)3", "a12").ToMap()

	got, err := SubjectNodeMap(m, AllSubjects("a(1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a(1)2", "a(1)3"}, got.Keys())
}

func TestSubjectNodes_NegativeIndexRejected(t *testing.T) {
	_, err := SubjectNodes(model("v1"), Subject("", -3))
	assert.True(t, core.IsInvalidInput(err))
}

func TestShapePreservation(t *testing.T) {
	nodes := model("z1", "mu", "b1", "a1", "v2")

	seq, err := SubjectNodes(nodes, Subject("", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"z1", "b1", "a1"}, seq.Names())

	m, err := SubjectNodeMap(nodes.ToMap(), Subject("", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1", "z1"}, m.Keys())
	for name, n := range m {
		assert.Equal(t, name, n.Name())
	}
}

func TestSubjectsOfGroup(t *testing.T) {
	nodes := model("a(1)", "a(1)2", "a(1)10", "a(1)x2", "va(1)3", "mu1")

	got, err := SubjectsOfGroup("a(1)", nodes)
	require.NoError(t, err)
	assert.Equal(t, []string{"a(1)10", "a(1)2"}, got.Names())
}

func TestOverflowingSubjectIndex(t *testing.T) {
	nodes := model("mu", "v99999999999999999999", "v2")

	assert.Equal(t, []string{"mu"}, GroupNodes(nodes).Names())
	assert.Equal(t, []string{"mu"}, GroupNodeMap(nodes.ToMap()).Keys())

	got, err := SubjectNodes(nodes, AllSubjects(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"v99999999999999999999", "v2"}, got.Names())

	// the partitions stay disjoint and the unusable index is not reported
	assert.Equal(t, []int{2}, SubjectIndices(nodes))
}
