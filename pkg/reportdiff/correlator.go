// Package reportdiff correlates the findings of two exported reports,
// typically a previous run and the current one, to tell new findings
// from resolved and persisting ones.
package reportdiff

import (
	"sort"

	"github.com/shamash-tools/shamash/internal/report"
)

// Match groups one previous finding with the current findings that
// correlate to it. A current finding may appear under several previous
// findings when it correlates to more than one.
type Match struct {
	Previous report.ExportedFinding
	Current  []report.ExportedFinding
}

// Correlator computes correlations between the findings of a previous
// and a current report. Use NewCorrelator, then Matches, NewFindings
// and ResolvedFindings; Process runs lazily and is idempotent.
type Correlator struct {
	Previous []report.ExportedFinding
	Current  []report.ExportedFinding

	prevToCur map[int][]int
	curToPrev map[int][]int

	processed bool
}

func NewCorrelator(previous, current []report.ExportedFinding) *Correlator {
	return &Correlator{
		Previous: previous,
		Current:  current,
	}
}

// Process correlates every previous finding with every current one in
// ordered stages. An item matched in an earlier stage is excluded from
// later stages; multiple matches within one stage are allowed. Stages:
//
//  1. equal fingerprint
//  2. rule id + file path + class + member
//  3. rule id + class + member (the file moved)
//  4. rule id + file path
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.prevToCur = make(map[int][]int)
	c.curToPrev = make(map[int][]int)

	matchedPrev := make(map[int]bool)
	matchedCur := make(map[int]bool)

	for stage := 1; stage <= 4; stage++ {
		matchedPrevThis := make(map[int]bool)
		matchedCurThis := make(map[int]bool)

		for pi := range c.Previous {
			if matchedPrev[pi] {
				continue
			}
			for ci := range c.Current {
				if matchedCur[ci] {
					continue
				}
				if matchStage(&c.Previous[pi], &c.Current[ci], stage) {
					c.prevToCur[pi] = append(c.prevToCur[pi], ci)
					c.curToPrev[ci] = append(c.curToPrev[ci], pi)
					matchedPrevThis[pi] = true
					matchedCurThis[ci] = true
				}
			}
		}

		for pi := range matchedPrevThis {
			matchedPrev[pi] = true
		}
		for ci := range matchedCurThis {
			matchedCur[ci] = true
		}
	}

	c.processed = true
}

// matchStage applies one stage's matching rule. Rule id is required in
// every stage; fields the stage compares must agree exactly.
func matchStage(a, b *report.ExportedFinding, stage int) bool {
	if a.RuleID == "" || b.RuleID == "" || a.RuleID != b.RuleID {
		return false
	}

	switch stage {
	case 1:
		return a.Fingerprint != "" && a.Fingerprint == b.Fingerprint
	case 2:
		return a.FilePath == b.FilePath && a.ClassFqn == b.ClassFqn && a.MemberName == b.MemberName
	case 3:
		return a.ClassFqn != "" && a.ClassFqn == b.ClassFqn && a.MemberName == b.MemberName
	case 4:
		return a.FilePath != "" && a.FilePath == b.FilePath
	default:
		return false
	}
}

// NewFindings returns current findings with no correlated previous
// finding, in current-report order.
func (c *Correlator) NewFindings() []report.ExportedFinding {
	if !c.processed {
		c.Process()
	}

	var out []report.ExportedFinding
	for ci := range c.Current {
		if len(c.curToPrev[ci]) == 0 {
			out = append(out, c.Current[ci])
		}
	}
	return out
}

// ResolvedFindings returns previous findings with no correlated
// current finding, in previous-report order.
func (c *Correlator) ResolvedFindings() []report.ExportedFinding {
	if !c.processed {
		c.Process()
	}

	var out []report.ExportedFinding
	for pi := range c.Previous {
		if len(c.prevToCur[pi]) == 0 {
			out = append(out, c.Previous[pi])
		}
	}
	return out
}

// Matches returns every previous finding with at least one correlated
// current finding, in previous-report order.
func (c *Correlator) Matches() []Match {
	if !c.processed {
		c.Process()
	}

	prevIdxs := make([]int, 0, len(c.prevToCur))
	for pi := range c.prevToCur {
		prevIdxs = append(prevIdxs, pi)
	}
	sort.Ints(prevIdxs)

	var out []Match
	for _, pi := range prevIdxs {
		curIdxs := c.prevToCur[pi]
		if len(curIdxs) == 0 {
			continue
		}
		m := Match{Previous: c.Previous[pi], Current: make([]report.ExportedFinding, 0, len(curIdxs))}
		for _, ci := range curIdxs {
			m.Current = append(m.Current, c.Current[ci])
		}
		out = append(out, m)
	}
	return out
}
