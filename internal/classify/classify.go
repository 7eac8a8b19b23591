// Package classify partitions model nodes into group-level parameters and
// per-subject parameters using the trailing subject index in each node name.
package classify

import (
	"regexp"
	"sort"
	"strconv"

	"gohbm/domain/core"
	"gohbm/domain/node"
)

// GroupLevelIndex selects group-level nodes when used as a subject index.
const GroupLevelIndex = -1

const subjectMarker = `[A-Za-z)]`

// Selector chooses which subject nodes to return.
// A nil Subject selects every subject; GroupLevelIndex selects group-level nodes.
type Selector struct {
	Prefix  string
	Subject *int
}

// AllSubjects selects the nodes of every subject whose name continues prefix.
func AllSubjects(prefix string) Selector {
	return Selector{Prefix: prefix}
}

// Subject selects the nodes of exactly one subject.
func Subject(prefix string, idx int) Selector {
	return Selector{Prefix: prefix, Subject: &idx}
}

// GroupLevel selects group-level nodes.
func GroupLevel() Selector {
	return Subject("", GroupLevelIndex)
}

func (s Selector) isGroupLevel() bool {
	return s.Subject != nil && *s.Subject == GroupLevelIndex
}

// GroupNodes returns the group-level nodes, preserving order.
func GroupNodes(nodes node.Nodes) node.Nodes {
	out := make(node.Nodes, 0, len(nodes))
	for _, n := range nodes {
		if n.Parsed().IsGroup() {
			out = append(out, n)
		}
	}
	return out
}

// GroupNodeMap returns the group-level entries of m.
func GroupNodeMap(m node.NodeMap) node.NodeMap {
	out := make(node.NodeMap)
	for name, n := range m {
		if node.ParseName(name).IsGroup() {
			out[name] = n
		}
	}
	return out
}

// SubjectIndices returns the unique subject indices found in node names, ascending.
// Any trailing run of digits counts, whatever precedes it.
func SubjectIndices(nodes node.Nodes) []int {
	seen := make(map[int]struct{})
	for _, n := range nodes {
		digits, ok := node.TrailingDigits(n.Name())
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		seen[idx] = struct{}{}
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// SubjectIndicesOf is SubjectIndices over a node map.
func SubjectIndicesOf(m node.NodeMap) []int {
	return SubjectIndices(m.Sorted())
}

// SubjectNodes returns the nodes picked by sel, preserving order.
func SubjectNodes(nodes node.Nodes, sel Selector) (node.Nodes, error) {
	if sel.isGroupLevel() {
		return GroupNodes(nodes), nil
	}

	re, err := SubjectPattern(sel.Prefix, sel.Subject)
	if err != nil {
		return nil, err
	}

	out := make(node.Nodes, 0, len(nodes))
	for _, n := range nodes {
		if re.MatchString(n.Name()) {
			out = append(out, n)
		}
	}
	return out, nil
}

// SubjectNodeMap returns the entries of m picked by sel.
func SubjectNodeMap(m node.NodeMap, sel Selector) (node.NodeMap, error) {
	if sel.isGroupLevel() {
		return GroupNodeMap(m), nil
	}

	re, err := SubjectPattern(sel.Prefix, sel.Subject)
	if err != nil {
		return nil, err
	}

	out := make(node.NodeMap)
	for name, n := range m {
		if re.MatchString(name) {
			out[name] = n
		}
	}
	return out, nil
}

// SubjectPattern builds the matcher for prefix followed by a letter or ')' and
// the subject digits at the end of a name. Prefix metacharacters are escaped.
func SubjectPattern(prefix string, subject *int) (*regexp.Regexp, error) {
	digits := `[0-9]+`
	if subject != nil {
		if *subject < 0 {
			return nil, core.NewInvalidInputError("subject index must be non-negative or -1, got " + strconv.Itoa(*subject))
		}
		digits = strconv.Itoa(*subject)
	}
	return compile(regexp.QuoteMeta(prefix) + subjectMarker + digits + `$`)
}

// SubjectsOfGroup returns the nodes named exactly <group><digits>, sorted by name.
func SubjectsOfGroup(group string, nodes node.Nodes) (node.Nodes, error) {
	re, err := compile(`^` + regexp.QuoteMeta(group) + `[0-9]+$`)
	if err != nil {
		return nil, err
	}

	out := make(node.Nodes, 0)
	for _, n := range nodes {
		if re.MatchString(n.Name()) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, core.NewPatternCompileError(pattern, err)
	}
	return re, nil
}
