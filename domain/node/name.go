package node

import (
	"strconv"
	"strings"
)

// Reserved prefixes of bookkeeping nodes the sampler adds to a model.
const (
	PrefixProposal = "Metropolis"
	PrefixDeviance = "deviance"
)

// Name is the parsed form of a node name: an optional subject index trailing a base.
//
// A name carries a subject index when it ends in a letter or ')' followed by one
// or more decimal digits, e.g. "v3" or "a(1)12".
//
// A suffix whose digits do not fit an int still marks a subject name; Subject is
// then 0 and IndexOverflow is set.
type Name struct {
	Raw           string
	Base          string
	Subject       int
	HasSubject    bool
	IndexOverflow bool
}

// ParseName splits a node name into its base and subject index.
func ParseName(raw string) Name {
	n := Name{Raw: raw, Base: raw}

	digits, ok := TrailingDigits(raw)
	if !ok {
		return n
	}
	head := raw[:len(raw)-len(digits)]
	if head == "" || !isSubjectMarker(head[len(head)-1]) {
		return n
	}

	n.Base = head
	n.HasSubject = true
	idx, err := strconv.Atoi(digits)
	if err != nil {
		n.IndexOverflow = true
		return n
	}
	n.Subject = idx
	return n
}

// TrailingDigits returns the maximal run of decimal digits at the end of s.
func TrailingDigits(s string) (string, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return "", false
	}
	return s[i:], true
}

// IsReserved reports whether the name belongs to a sampler bookkeeping node.
func IsReserved(raw string) bool {
	return strings.HasPrefix(raw, PrefixProposal) || strings.HasPrefix(raw, PrefixDeviance)
}

// IsGroup reports whether the name denotes a group-level parameter.
func (n Name) IsGroup() bool {
	return !n.HasSubject && !IsReserved(n.Raw)
}

func isSubjectMarker(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == ')'
}
